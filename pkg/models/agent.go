package models

import "encoding/json"

const (
	AgentStatusActive   = "active"
	AgentStatusPaused   = "paused"
	AgentStatusArchived = "archived"
)

const (
	EnvironmentProd    = "prod"
	EnvironmentStaging = "staging"
	EnvironmentDev     = "dev"
)

// Agent is an AI agent registered by an organization. Config is an opaque
// document passed through verbatim.
type Agent struct {
	ID          string          `json:"id"`
	OrgID       string          `json:"org_id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Provider    string          `json:"provider"`
	Status      string          `json:"status"`
	Tags        []string        `json:"tags"`
	Environment string          `json:"environment"`
	Config      json.RawMessage `json:"config"`
}

// AgentUpdate carries the mutable agent fields. Nil pointers and nil slices
// are left unchanged.
type AgentUpdate struct {
	Name        *string
	Type        *string
	Provider    *string
	Status      *string
	Tags        []string
	Environment *string
	Config      json.RawMessage
}
