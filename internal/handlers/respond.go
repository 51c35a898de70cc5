// Package handlers wires the HTTP surface to the services. Handlers stay
// thin: decode, delegate, encode. All domain decisions live in the services.
package handlers

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/mkadri-dev/autocare-backend/internal/apperr"
)

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

// writeError maps a domain error onto the wire. Internal details never leak;
// the client sees the kind and a safe message.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{
		"msg":  msg,
		"kind": string(apperr.KindOf(err)),
	})
}

// decodeJSON parses a request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	return nil
}
