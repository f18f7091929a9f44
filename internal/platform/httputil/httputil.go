// Package httputil centralizes the JSON response envelopes used by the relay
// endpoints so handlers stay consistent.
package httputil

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes the generic success envelope. Bot submissions get the
// same body as real ones so automated clients learn nothing from the response.
func WriteSuccess(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// WriteError writes the generic error envelope. Messages are deliberately
// coarse; field-level detail would help callers probe the validation rules.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
