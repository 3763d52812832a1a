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

// Runs defines the read-side run and event operations the handlers depend on.
type Runs interface {
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, orgID string, filter models.RunFilter) ([]*models.Run, error)
	ListEvents(ctx context.Context, runID string, orgID string) ([]models.Event, error)
}

type listRunsQuery struct {
	AgentID string `json:"agent_id" validate:"omitempty,max=128"`
	Status  string `json:"status" validate:"omitempty,oneof=queued running completed failed"`
}

// NewListRunsHandler returns an http.HandlerFunc for GET /api/v1/runs.
func NewListRunsHandler(runs Runs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := mw.GetOrgID(r)

		q := listRunsQuery{
			AgentID: r.URL.Query().Get("agent_id"),
			Status:  r.URL.Query().Get("status"),
		}
		if !validateRequest(w, &q) {
			return
		}

		list, err := runs.ListRuns(r.Context(), orgID, models.RunFilter{
			AgentID: q.AgentID,
			Status:  q.Status,
		})
		if err != nil {
			internalError(w)
			return
		}
		if list == nil {
			list = []*models.Run{}
		}

		response.Collection(w, list, len(list))
	}
}

// NewGetRunHandler returns an http.HandlerFunc for GET /api/v1/runs/{runID}.
func NewGetRunHandler(runs Runs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := mw.GetOrgID(r)

		run, err := runs.GetRun(r.Context(), chi.URLParam(r, "runID"))
		if errors.Is(err, store.ErrNotFound) || (err == nil && run.OrgID != orgID) {
			notFound(w, "Run")
			return
		}
		if err != nil {
			internalError(w)
			return
		}

		response.JSON(w, run)
	}
}

// NewListEventsHandler returns an http.HandlerFunc for GET /api/v1/events/{runID}.
// Events of runs owned by other organizations are never returned; such runs
// simply have no visible events.
func NewListEventsHandler(runs Runs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := mw.GetOrgID(r)

		events, err := runs.ListEvents(r.Context(), chi.URLParam(r, "runID"), orgID)
		if err != nil {
			internalError(w)
			return
		}
		if events == nil {
			events = []models.Event{}
		}

		response.Collection(w, events, len(events))
	}
}
