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

// Members defines the membership operations the handlers depend on.
type Members interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	AddMember(ctx context.Context, member *models.OrganizationMember) (*models.OrganizationMember, error)
	GetMember(ctx context.Context, id string) (*models.OrganizationMember, error)
	ListMembers(ctx context.Context, orgID string) ([]*models.OrganizationMember, error)
	UpdateMember(ctx context.Context, id string, upd models.MemberUpdate) (*models.OrganizationMember, error)
	RemoveMember(ctx context.Context, id string) error
}

type addMemberRequest struct {
	UserID string   `json:"user_id" validate:"required"`
	Role   string   `json:"role" validate:"required,oneof=Admin TeamLead Member Viewer"`
	Teams  []string `json:"teams" validate:"omitempty,dive,required"`
}

// NewAddMemberHandler returns an http.HandlerFunc for POST /api/v1/org-members.
func NewAddMemberHandler(members Members) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := mw.GetOrgID(r)

		var req addMemberRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if _, err := members.GetUser(r.Context(), req.UserID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				notFound(w, "User")
				return
			}
			internalError(w)
			return
		}

		teams := req.Teams
		if teams == nil {
			teams = []string{}
		}
		member, err := members.AddMember(r.Context(), &models.OrganizationMember{
			OrgID:  orgID,
			UserID: req.UserID,
			Role:   req.Role,
			Teams:  teams,
		})
		if err != nil {
			internalError(w)
			return
		}

		response.Created(w, member)
	}
}

// NewListMembersHandler returns an http.HandlerFunc for GET /api/v1/org-members.
func NewListMembersHandler(members Members) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := mw.GetOrgID(r)

		list, err := members.ListMembers(r.Context(), orgID)
		if err != nil {
			internalError(w)
			return
		}
		if list == nil {
			list = []*models.OrganizationMember{}
		}

		response.Collection(w, list, len(list))
	}
}

type updateMemberRequest struct {
	Role  *string  `json:"role" validate:"omitnil,oneof=Admin TeamLead Member Viewer"`
	Teams []string `json:"teams" validate:"omitempty,dive,required"`
}

// NewUpdateMemberHandler returns an http.HandlerFunc for PATCH /api/v1/org-members/{memberID}.
func NewUpdateMemberHandler(members Members) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateMemberRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		id := chi.URLParam(r, "memberID")
		if !memberInOrg(w, r, members, id) {
			return
		}

		member, err := members.UpdateMember(r.Context(), id, models.MemberUpdate{
			Role:  req.Role,
			Teams: req.Teams,
		})
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Member")
			return
		}
		if err != nil {
			internalError(w)
			return
		}

		response.JSON(w, member)
	}
}

// NewRemoveMemberHandler returns an http.HandlerFunc for DELETE /api/v1/org-members/{memberID}.
func NewRemoveMemberHandler(members Members) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "memberID")
		if !memberInOrg(w, r, members, id) {
			return
		}

		err := members.RemoveMember(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Member")
			return
		}
		if err != nil {
			internalError(w)
			return
		}

		response.JSON(w, map[string]bool{"deleted": true})
	}
}

// memberInOrg reports whether the member exists in the request's
// organization. Members of other organizations are reported as not found.
func memberInOrg(w http.ResponseWriter, r *http.Request, members Members, id string) bool {
	orgID, _ := mw.GetOrgID(r)

	member, err := members.GetMember(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && member.OrgID != orgID) {
		notFound(w, "Member")
		return false
	}
	if err != nil {
		internalError(w)
		return false
	}
	return true
}
