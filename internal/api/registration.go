package api

import (
	"net/http"

	"iterable-forwarder/internal/domain"
)

// RegistrationHandler serves the integration's capability declaration so
// the host can discover supported event types, platforms, and settings.
func RegistrationHandler() http.HandlerFunc {
	registration := domain.DefaultRegistration()
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, registration)
	}
}
