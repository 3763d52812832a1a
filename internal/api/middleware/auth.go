package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/kiranshivaraju/agentops/internal/api/response"
	"github.com/kiranshivaraju/agentops/internal/store"
	"github.com/kiranshivaraju/agentops/pkg/models"
)

// OrgHeader carries the organization a dashboard request acts on.
const OrgHeader = "X-Org-Id"

// KeyFinder resolves an API key secret to its key record.
type KeyFinder interface {
	FindBySecret(ctx context.Context, secret string) (*models.APIKey, error)
}

// Auth provides API key authentication and scope-checking middleware.
type Auth struct {
	keys KeyFinder
}

// NewAuth creates a new Auth middleware.
func NewAuth(keys KeyFinder) *Auth {
	return &Auth{keys: keys}
}

// Authenticate validates the Bearer token, looks up the API key, and sets
// org_id, api_key_id, and scopes in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := extractBearerToken(r)
		if secret == "" {
			response.Error(w, http.StatusUnauthorized,
				response.CodeUnauthorized, "Missing or invalid Authorization header", nil)
			return
		}

		key, err := a.keys.FindBySecret(r.Context(), secret)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusForbidden,
				response.CodeForbidden, "Invalid API key", nil)
			return
		}
		if err != nil {
			slog.Error("api key lookup failed", "error", err)
			response.Error(w, http.StatusInternalServerError,
				response.CodeInternal, "Failed to validate API key", nil)
			return
		}

		ctx := r.Context()
		ctx = SetOrgID(ctx, key.OrgID)
		ctx = SetAPIKeyID(ctx, key.ID)
		ctx = setScopes(ctx, key.Scope)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireScope returns middleware that checks whether the authenticated
// API key has the specified scope.
func (a *Auth) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(getScopes(r), scope) {
				next.ServeHTTP(w, r)
				return
			}
			response.Error(w, http.StatusForbidden,
				response.CodeForbidden, "Insufficient permissions", nil)
		})
	}
}

// OrgContext takes the organization from the X-Org-Id header. Requests
// without it are rejected.
func OrgContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := strings.TrimSpace(r.Header.Get(OrgHeader))
		if orgID == "" {
			response.Error(w, http.StatusBadRequest,
				response.CodeInvalidRequest, "Missing "+OrgHeader+" header", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(SetOrgID(r.Context(), orgID)))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
