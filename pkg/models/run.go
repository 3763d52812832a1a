package models

import "encoding/json"

const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// TokenUsage is the model token accounting reported with a run.
type TokenUsage struct {
	Model            string `json:"model"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
}

// Run is one reported execution of an agent. The ID doubles as the ingestion
// idempotency key. LatencyMs and CostUSD are derived at ingestion time.
// Timestamps are kept exactly as reported (RFC 3339).
type Run struct {
	ID                string          `json:"id"`
	OrgID             string          `json:"org_id"`
	AgentID           string          `json:"agent_id"`
	Status            string          `json:"status"`
	InputData         json.RawMessage `json:"input_data"`
	OutputData        json.RawMessage `json:"output_data"`
	StartTime         string          `json:"start_time"`
	EndTime           *string         `json:"end_time"`
	LatencyMs         *int64          `json:"latency_ms"`
	TokenUsage        *TokenUsage     `json:"token_usage"`
	CostUSD           *float64        `json:"cost_usd"`
	ExternalReference *string         `json:"external_reference"`
}

// Event is a timestamped step within a run. Events carry the org id of their
// run so reads can be scoped without consulting the run.
type Event struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	OrgID     string          `json:"org_id"`
	EventType string          `json:"event_type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// RunFilter narrows a run listing. Empty fields match everything.
type RunFilter struct {
	AgentID string
	Status  string
}
