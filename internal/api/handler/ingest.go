package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	mw "github.com/kiranshivaraju/agentops/internal/api/middleware"
	"github.com/kiranshivaraju/agentops/internal/api/response"
	"github.com/kiranshivaraju/agentops/internal/ingest"
	"github.com/kiranshivaraju/agentops/pkg/models"
)

// Ingester defines the ingestion operation the handler depends on.
type Ingester interface {
	Ingest(ctx context.Context, orgID string, report ingest.RunReport) (*ingest.Ack, error)
}

type tokenUsageRequest struct {
	Model            string `json:"model" validate:"required"`
	PromptTokens     int64  `json:"prompt_tokens" validate:"gte=0,lte=1000000000000"`
	CompletionTokens int64  `json:"completion_tokens" validate:"gte=0,lte=1000000000000"`
}

type eventRequest struct {
	EventType string          `json:"event_type" validate:"required,min=2"`
	Timestamp string          `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Payload   json.RawMessage `json:"payload"`
}

type ingestRunRequest struct {
	RunID             string             `json:"run_id" validate:"omitempty,max=128"`
	AgentID           string             `json:"agent_id" validate:"required"`
	Status            string             `json:"status" validate:"omitempty,oneof=queued running completed failed"`
	InputData         json.RawMessage    `json:"input_data"`
	OutputData        json.RawMessage    `json:"output_data"`
	StartTime         string             `json:"start_time"`
	EndTime           string             `json:"end_time"`
	TokenUsage        *tokenUsageRequest `json:"token_usage"`
	ExternalReference *string            `json:"external_reference"`
	Events            []eventRequest     `json:"events" validate:"omitempty,dive"`
}

// NewIngestRunHandler returns an http.HandlerFunc for POST /api/v1/ingest/run.
// First-time and duplicate deliveries both answer 202; the message tells them apart.
func NewIngestRunHandler(ing Ingester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := mw.GetOrgID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "Missing API key", nil)
			return
		}

		var req ingestRunRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		report, details := req.toReport()
		if details != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid request", details)
			return
		}

		ack, err := ing.Ingest(r.Context(), orgID, report)
		if errors.Is(err, ingest.ErrAgentNotFound) {
			notFound(w, "Agent")
			return
		}
		if err != nil {
			internalError(w)
			return
		}

		response.Raw(w, http.StatusAccepted, ack)
	}
}

// toReport converts the request and checks that documents are JSON objects.
// An explicit null is treated as absent.
func (req *ingestRunRequest) toReport() (ingest.RunReport, map[string]string) {
	details := map[string]string{}

	input, ok := objectOrAbsent(req.InputData)
	if !ok {
		details["input_data"] = "must be an object"
	}
	output, ok := objectOrAbsent(req.OutputData)
	if !ok {
		details["output_data"] = "must be an object"
	}

	report := ingest.RunReport{
		RunID:             req.RunID,
		AgentID:           req.AgentID,
		Status:            req.Status,
		InputData:         input,
		OutputData:        output,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		ExternalReference: req.ExternalReference,
	}
	if req.TokenUsage != nil {
		report.TokenUsage = &models.TokenUsage{
			Model:            req.TokenUsage.Model,
			PromptTokens:     req.TokenUsage.PromptTokens,
			CompletionTokens: req.TokenUsage.CompletionTokens,
		}
	}

	for i, e := range req.Events {
		payload, ok := objectOrAbsent(e.Payload)
		if !ok {
			details["events["+strconv.Itoa(i)+"].payload"] = "must be an object"
		}
		report.Events = append(report.Events, ingest.EventReport{
			EventType: e.EventType,
			Timestamp: e.Timestamp,
			Payload:   payload,
		})
	}

	if len(details) > 0 {
		return ingest.RunReport{}, details
	}
	return report, nil
}
