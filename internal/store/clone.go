package store

import (
	"slices"

	"github.com/kiranshivaraju/agentops/pkg/models"
)

func cloneOrganization(o models.Organization) models.Organization { return o }

func cloneUser(u models.User) models.User { return u }

func cloneMember(m models.OrganizationMember) models.OrganizationMember {
	m.Teams = slices.Clone(m.Teams)
	return m
}

func cloneAPIKey(k models.APIKey) models.APIKey {
	k.Scope = slices.Clone(k.Scope)
	return k
}

func cloneAgent(a models.Agent) models.Agent {
	a.Tags = slices.Clone(a.Tags)
	a.Config = slices.Clone(a.Config)
	return a
}

func cloneRun(r models.Run) models.Run {
	r.InputData = slices.Clone(r.InputData)
	r.OutputData = slices.Clone(r.OutputData)
	r.EndTime = clonePtr(r.EndTime)
	r.LatencyMs = clonePtr(r.LatencyMs)
	r.TokenUsage = clonePtr(r.TokenUsage)
	r.CostUSD = clonePtr(r.CostUSD)
	r.ExternalReference = clonePtr(r.ExternalReference)
	return r
}

func cloneEvent(e models.Event) models.Event {
	e.Payload = slices.Clone(e.Payload)
	return e
}

func clonePasswordReset(p models.PasswordReset) models.PasswordReset { return p }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
