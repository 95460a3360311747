package pipeline

import (
	"encoding/json"
	"fmt"
	"math"

	"iterable-forwarder/internal/domain"
)

// Codec decodes an opaque payload blob into a generic string-keyed map.
// It exists so payload extraction does not hardwire a serialization
// format; the default implementation uses encoding/json.
type Codec interface {
	Decode(payload string) (map[string]any, error)
}

// JSONCodec is the Codec used in production.
type JSONCodec struct{}

func (JSONCodec) Decode(payload string) (map[string]any, error) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

// pushPayloadKey is the vendor block inside a push notification payload
// that carries campaign metadata.
const pushPayloadKey = "itbl"

// PushMetadata is the campaign block extracted from a push payload.
type PushMetadata struct {
	CampaignID int
	TemplateID int
	MessageID  string
}

// ExtractPushMetadata decodes the vendor block of a push payload. Two
// encodings exist: Android nests the block as a JSON string, every other
// platform nests it as an object. The second return is false when the
// payload has no vendor block at all, which is not an error; a block that
// is present but unreadable is ErrMalformedPayload.
func ExtractPushMetadata(codec Codec, payload string, platform domain.Platform) (PushMetadata, bool, error) {
	var meta PushMetadata

	decoded, err := codec.Decode(payload)
	if err != nil {
		return meta, false, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	raw, ok := decoded[pushPayloadKey]
	if !ok {
		return meta, false, nil
	}

	var block map[string]any
	if platform == domain.PlatformAndroid {
		// Android delivers the block as a nested JSON string.
		encoded, ok := raw.(string)
		if !ok {
			return meta, false, fmt.Errorf("%w: %s block is not a string", ErrMalformedPayload, pushPayloadKey)
		}
		block, err = codec.Decode(encoded)
		if err != nil {
			return meta, false, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	} else {
		block, ok = raw.(map[string]any)
		if !ok {
			return meta, false, fmt.Errorf("%w: %s block is not an object", ErrMalformedPayload, pushPayloadKey)
		}
	}

	meta.CampaignID, err = intField(block, "campaignId")
	if err != nil {
		return meta, false, err
	}
	meta.TemplateID, err = intField(block, "templateId")
	if err != nil {
		return meta, false, err
	}
	if id, ok := block["messageId"].(string); ok {
		meta.MessageID = id
	}
	return meta, true, nil
}

func intField(block map[string]any, key string) (int, error) {
	switch v := block[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s is not an integer", ErrMalformedPayload, key)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not an integer", ErrMalformedPayload, key)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: missing integer field %s", ErrMalformedPayload, key)
	}
}
