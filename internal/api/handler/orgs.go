package handler

import (
	"context"
	"errors"
	"net/http"

	mw "github.com/kiranshivaraju/agentops/internal/api/middleware"
	"github.com/kiranshivaraju/agentops/internal/api/response"
	"github.com/kiranshivaraju/agentops/internal/store"
	"github.com/kiranshivaraju/agentops/pkg/models"
)

// Organizations defines the organization profile operations the handlers depend on.
type Organizations interface {
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, id string, upd models.OrganizationUpdate) (*models.Organization, error)
}

// NewGetOrgProfileHandler returns an http.HandlerFunc for GET /api/v1/orgs/profile.
func NewGetOrgProfileHandler(orgs Organizations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := mw.GetOrgID(r)

		org, err := orgs.GetOrganization(r.Context(), orgID)
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Organization")
			return
		}
		if err != nil {
			internalError(w)
			return
		}

		response.JSON(w, org)
	}
}

type updateOrgRequest struct {
	Name *string `json:"name" validate:"omitnil,min=2"`
	Plan *string `json:"plan" validate:"omitnil,min=2"`
}

// NewUpdateOrgProfileHandler returns an http.HandlerFunc for PATCH /api/v1/orgs/profile.
func NewUpdateOrgProfileHandler(orgs Organizations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := mw.GetOrgID(r)

		var req updateOrgRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		org, err := orgs.UpdateOrganization(r.Context(), orgID, models.OrganizationUpdate{
			Name: req.Name,
			Plan: req.Plan,
		})
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Organization")
			return
		}
		if err != nil {
			internalError(w)
			return
		}

		response.JSON(w, org)
	}
}
