// Package api holds the JSON helpers shared by the HTTP handlers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/grupomaster/raqs/internal/logging"
	"github.com/grupomaster/raqs/rules"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// WriteValidation writes the field errors with 422.
func WriteValidation(w http.ResponseWriter, errs rules.ValidationErrors) {
	WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
}

// InternalError logs err with the request logger and hides it from the
// client.
func InternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logging.LogError(logging.FromContext(r.Context()), msg, err)
	WriteError(w, http.StatusInternalServerError, msg)
}

// PathID parses a numeric path parameter.
func PathID(r *http.Request, name string) (uint, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

// DecodeJSON reads the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
