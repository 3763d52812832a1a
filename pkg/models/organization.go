// Package models contains shared data models used across the AgentOps codebase.
package models

// Organization is the tenant boundary. Every other entity except User is scoped to one.
type Organization struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Plan      string `json:"plan"`
	CreatedBy string `json:"created_by"`
}

// OrganizationUpdate carries the whitelisted fields of an organization profile.
// Nil fields are left unchanged.
type OrganizationUpdate struct {
	Name *string
	Plan *string
}
