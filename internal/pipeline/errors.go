package pipeline

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the pipeline. Transport-level failures are
// reported as iterable.TransportError by the client.
var (
	// ErrIdentityResolution: no usable email or placeholder source exists.
	ErrIdentityResolution = errors.New("identity resolution failed")

	// ErrMalformedPayload: a payload is present but missing the expected
	// structure. Fatal for the event it belongs to.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrUnsupportedEnvironment: the runtime environment is not recognized
	// for a device-registration flow.
	ErrUnsupportedEnvironment = errors.New("unsupported runtime environment")
)

// RejectedError is an outbound call the API transported successfully but
// rejected at the application level.
type RejectedError struct {
	Op   string
	Code string
	Msg  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("iterable rejected %s: code=%s msg=%s", e.Op, e.Code, e.Msg)
}
