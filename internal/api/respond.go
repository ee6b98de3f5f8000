// Package api holds the small helpers shared by the HTTP handlers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"libris/internal/model"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps the domain error taxonomy onto HTTP statuses. Every
// declared error kind becomes a user-facing message; nothing panics the
// handler layer.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, model.ErrStorage):
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}
