package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/agentops/internal/api/middleware"
	"github.com/kiranshivaraju/agentops/internal/api/response"
	"github.com/kiranshivaraju/agentops/internal/store"
	"github.com/kiranshivaraju/agentops/pkg/models"
)

// Credentials defines the API key lifecycle operations the handlers depend on.
type Credentials interface {
	Issue(ctx context.Context, orgID, name string, scope []string, createdBy string) (*models.APIKey, error)
	Get(ctx context.Context, id string) (*models.APIKey, error)
	List(ctx context.Context, orgID string) ([]*models.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

type createKeyRequest struct {
	Name      string   `json:"name" validate:"required,min=2"`
	Scope     []string `json:"scope" validate:"omitempty,dive,oneof=ingest read"`
	CreatedBy string   `json:"created_by" validate:"required"`
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/api-keys.
// The secret is only ever present in this response.
func NewCreateKeyHandler(creds Credentials) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := mw.GetOrgID(r)

		var req createKeyRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		key, err := creds.Issue(r.Context(), orgID, req.Name, req.Scope, req.CreatedBy)
		if err != nil {
			internalError(w)
			return
		}

		response.Created(w, key)
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/api-keys.
func NewListKeysHandler(creds Credentials) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := mw.GetOrgID(r)

		keys, err := creds.List(r.Context(), orgID)
		if err != nil {
			internalError(w)
			return
		}
		if keys == nil {
			keys = []*models.APIKey{}
		}

		response.Collection(w, keys, len(keys))
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for DELETE /api/v1/api-keys/{keyID}.
func NewRevokeKeyHandler(creds Credentials) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := mw.GetOrgID(r)
		id := chi.URLParam(r, "keyID")

		key, err := creds.Get(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) || (err == nil && key.OrgID != orgID) {
			notFound(w, "API key")
			return
		}
		if err != nil {
			internalError(w)
			return
		}

		if err := creds.Revoke(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				notFound(w, "API key")
				return
			}
			internalError(w)
			return
		}

		response.JSON(w, map[string]bool{"deleted": true})
	}
}
