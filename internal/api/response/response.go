package response

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in the error envelope.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeExpiredToken      = "EXPIRED_TOKEN"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL_ERROR"
)

type envelope struct {
	Data any `json:"data"`
}

type messageEnvelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type collectionEnvelope struct {
	Data any      `json:"data"`
	Meta ListMeta `json:"meta"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ListMeta struct {
	Total int `json:"total"`
}

func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, envelope{Data: data})
}

func Accepted(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusAccepted, envelope{Data: data})
}

// Message writes {"message": ..., "data": ...}; data is dropped when nil.
func Message(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, messageEnvelope{Message: message, Data: data})
}

// Collection writes a list and its length. A nil slice is still encoded as the
// caller's value, so callers should pass an empty slice for "no results".
func Collection(w http.ResponseWriter, data any, total int) {
	writeJSON(w, http.StatusOK, collectionEnvelope{Data: data, Meta: ListMeta{Total: total}})
}

// Raw writes v as the whole body, without an envelope.
func Raw(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v)
}

func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
