package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/agentops/internal/api/middleware"
	"github.com/kiranshivaraju/agentops/internal/api/response"
	"github.com/kiranshivaraju/agentops/internal/store"
	"github.com/kiranshivaraju/agentops/pkg/models"
)

// Agents defines the agent registry operations the handlers depend on.
type Agents interface {
	CreateAgent(ctx context.Context, agent *models.Agent) (*models.Agent, error)
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	ListAgents(ctx context.Context, orgID string) ([]*models.Agent, error)
	UpdateAgent(ctx context.Context, id string, upd models.AgentUpdate) (*models.Agent, error)
}

type createAgentRequest struct {
	Name        string          `json:"name" validate:"required,min=2"`
	Type        string          `json:"type" validate:"required,min=2"`
	Provider    string          `json:"provider" validate:"required,min=2"`
	Tags        []string        `json:"tags" validate:"omitempty,dive,required"`
	Environment string          `json:"environment" validate:"omitempty,oneof=prod staging dev"`
	Config      json.RawMessage `json:"config"`
}

// NewCreateAgentHandler returns an http.HandlerFunc for POST /api/v1/agents.
func NewCreateAgentHandler(agents Agents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := mw.GetOrgID(r)

		var req createAgentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		config, ok := objectOrAbsent(req.Config)
		if !ok {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid request",
				map[string]string{"config": "must be an object"})
			return
		}
		req.Config = config

		agent := &models.Agent{
			OrgID:       orgID,
			Name:        req.Name,
			Type:        req.Type,
			Provider:    req.Provider,
			Status:      models.AgentStatusActive,
			Tags:        req.Tags,
			Environment: req.Environment,
			Config:      req.Config,
		}
		if agent.Tags == nil {
			agent.Tags = []string{}
		}
		if agent.Environment == "" {
			agent.Environment = models.EnvironmentProd
		}
		if len(agent.Config) == 0 {
			agent.Config = json.RawMessage(`{}`)
		}

		created, err := agents.CreateAgent(r.Context(), agent)
		if err != nil {
			internalError(w)
			return
		}

		response.Created(w, created)
	}
}

// NewListAgentsHandler returns an http.HandlerFunc for GET /api/v1/agents.
func NewListAgentsHandler(agents Agents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := mw.GetOrgID(r)

		list, err := agents.ListAgents(r.Context(), orgID)
		if err != nil {
			internalError(w)
			return
		}
		if list == nil {
			list = []*models.Agent{}
		}

		response.Collection(w, list, len(list))
	}
}

// NewGetAgentHandler returns an http.HandlerFunc for GET /api/v1/agents/{agentID}.
func NewGetAgentHandler(agents Agents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := agentInOrg(w, r, agents)
		if !ok {
			return
		}
		response.JSON(w, agent)
	}
}

type updateAgentRequest struct {
	Name        *string         `json:"name" validate:"omitnil,min=2"`
	Type        *string         `json:"type" validate:"omitnil,min=2"`
	Provider    *string         `json:"provider" validate:"omitnil,min=2"`
	Status      *string         `json:"status" validate:"omitnil,oneof=active paused archived"`
	Tags        []string        `json:"tags" validate:"omitempty,dive,required"`
	Environment *string         `json:"environment" validate:"omitnil,oneof=prod staging dev"`
	Config      json.RawMessage `json:"config"`
}

// NewUpdateAgentHandler returns an http.HandlerFunc for PATCH /api/v1/agents/{agentID}.
func NewUpdateAgentHandler(agents Agents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateAgentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		config, ok := objectOrAbsent(req.Config)
		if !ok {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid request",
				map[string]string{"config": "must be an object"})
			return
		}
		req.Config = config

		agent, ok := agentInOrg(w, r, agents)
		if !ok {
			return
		}

		updated, err := agents.UpdateAgent(r.Context(), agent.ID, models.AgentUpdate{
			Name:        req.Name,
			Type:        req.Type,
			Provider:    req.Provider,
			Status:      req.Status,
			Tags:        req.Tags,
			Environment: req.Environment,
			Config:      req.Config,
		})
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Agent")
			return
		}
		if err != nil {
			internalError(w)
			return
		}

		response.JSON(w, updated)
	}
}

// NewArchiveAgentHandler returns an http.HandlerFunc for DELETE /api/v1/agents/{agentID}.
// Agents are archived rather than removed so their runs stay attributable.
func NewArchiveAgentHandler(agents Agents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := agentInOrg(w, r, agents)
		if !ok {
			return
		}

		archived := models.AgentStatusArchived
		updated, err := agents.UpdateAgent(r.Context(), agent.ID, models.AgentUpdate{Status: &archived})
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Agent")
			return
		}
		if err != nil {
			internalError(w)
			return
		}

		response.JSON(w, updated)
	}
}

func agentInOrg(w http.ResponseWriter, r *http.Request, agents Agents) (*models.Agent, bool) {
	orgID, _ := mw.GetOrgID(r)

	agent, err := agents.GetAgent(r.Context(), chi.URLParam(r, "agentID"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && agent.OrgID != orgID) {
		notFound(w, "Agent")
		return nil, false
	}
	if err != nil {
		internalError(w)
		return nil, false
	}
	return agent, true
}
