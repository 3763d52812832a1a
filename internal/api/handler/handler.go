// Package handler implements the HTTP handlers for the AgentOps API.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kiranshivaraju/agentops/internal/api/response"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON decodes and validates the request body into dst. It writes the
// error response itself and returns false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(w, http.StatusRequestEntityTooLarge,
				response.CodeInvalidRequest, "Request body too large", nil)
			return false
		}
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid JSON body", nil)
		return false
	}
	return validateRequest(w, dst)
}

func validateRequest(w http.ResponseWriter, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid request", nil)
		return false
	}
	response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid request", fieldErrors(verrs))
	return false
}

// fieldErrors maps each failing field to a short reason.
func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// Drop the request type name: "signupRequest.email" -> "email".
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			out[field] = "is required"
		case "email":
			out[field] = "must be a valid email"
		case "oneof":
			out[field] = "must be one of: " + fe.Param()
		case "min":
			out[field] = "must be at least " + fe.Param() + " long"
		case "max":
			out[field] = "must be at most " + fe.Param() + " long"
		case "gte":
			out[field] = "must be >= " + fe.Param()
		case "lte":
			out[field] = "must be <= " + fe.Param()
		case "datetime":
			out[field] = "must be an RFC3339 timestamp"
		default:
			out[field] = "is invalid"
		}
	}
	return out
}

func internalError(w http.ResponseWriter) {
	response.Error(w, http.StatusInternalServerError, response.CodeInternal, "An unexpected error occurred", nil)
}

func notFound(w http.ResponseWriter, what string) {
	response.Error(w, http.StatusNotFound, response.CodeNotFound, what+" not found", nil)
}

// isObject reports whether raw is absent or a JSON object.
func isObject(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	var obj map[string]json.RawMessage
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}

// objectOrAbsent treats an explicit null like an omitted field. It reports
// false when raw is present but not a JSON object.
func objectOrAbsent(raw json.RawMessage) (json.RawMessage, bool) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, true
	}
	return raw, isObject(raw)
}
