package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorBody has the same shape as the payload of a socket error envelope.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// JSON writes a JSON response with status code
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// JSONError writes {"error": {"message", "code"}}.
func JSONError(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, map[string]ErrorBody{"error": {Message: message, Code: code}})
}
