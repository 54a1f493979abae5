package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Responses use a {success, message, ...} envelope throughout.

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, message string, extra map[string]any) {
	body := map[string]any{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{"success": false, "message": message})
}

func writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"success": false,
		"message": "validation failed",
		"errors":  fields,
	})
}

// writeDenial renders an authorization gate denial: 401 with the login
// redirect for anonymous callers, 403 with the role home otherwise.
func writeDenial(w http.ResponseWriter, code int, message, redirect string) {
	writeJSON(w, code, map[string]any{
		"success":  false,
		"message":  message,
		"redirect": redirect,
	})
}

var errBadJSON = errors.New("invalid JSON body")

func decodeJSON(r *http.Request, dst any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errBadJSON
	}
	return nil
}
