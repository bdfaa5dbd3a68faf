// Package handlers provides HTTP handlers for the different services across
// the application.
package handlers

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/cloudleakage/cloudleakage-api/errors"
)

// envelope is the uniform response shape. Every endpoint answers with
// either data or an error message, never both.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// handleError is a helper function for unified HTTP error handling.
func handleError(rw http.ResponseWriter, err error) {
	status := errors.StatusCode(err)

	log.WithFields(log.Fields{"error": err, "status": status}).Warn("Request error")

	message := err.Error()
	if status >= http.StatusInternalServerError {
		// Do not leak internals to the client.
		message = http.StatusText(status)
		if status == http.StatusBadGateway {
			message = "cloud provider temporarily unavailable"
		}
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(envelope{Error: message})
}

// handleJsonResponse is a helper function for unified JSON response handling.
func handleJsonResponse(rw http.ResponseWriter, status int, res interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(envelope{Success: true, Data: res})
}
