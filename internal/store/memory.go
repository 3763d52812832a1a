package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/agentops/pkg/models"
)

// MemoryStore implements the Store interface in process memory. It owns every
// entity collection exclusively; nothing survives a restart.
type MemoryStore struct {
	organizations *collection[models.Organization]
	users         *collection[models.User]
	members       *collection[models.OrganizationMember]
	apiKeys       *collection[models.APIKey]
	agents        *collection[models.Agent]
	runs          *collection[models.Run]
	resets        *collection[models.PasswordReset]
	events        *eventLog
}

// eventLog holds run events in submission order, keyed by run id.
type eventLog struct {
	mu    sync.RWMutex
	byRun map[string][]models.Event
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		organizations: newCollection(func(o models.Organization) string { return o.ID }, cloneOrganization),
		users: newCollection(func(models.User) string { return "" }, cloneUser).
			withUniqueIndex(func(u models.User) string { return normalizeEmail(u.Email) }),
		members: newCollection(func(m models.OrganizationMember) string { return m.OrgID }, cloneMember),
		apiKeys: newCollection(func(k models.APIKey) string { return k.OrgID }, cloneAPIKey).
			withUniqueIndex(func(k models.APIKey) string { return k.Key }),
		agents: newCollection(func(a models.Agent) string { return a.OrgID }, cloneAgent),
		runs:   newCollection(func(r models.Run) string { return r.OrgID }, cloneRun),
		resets: newCollection(func(models.PasswordReset) string { return "" }, clonePasswordReset),
		events: &eventLog{byRun: make(map[string][]models.Event)},
	}
}

// Ping always succeeds; the store has no external dependency.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func newID() string {
	return uuid.NewString()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// --- Organizations ---

func (s *MemoryStore) CreateOrganization(_ context.Context, org *models.Organization) (*models.Organization, error) {
	v := *org
	v.ID = newID()
	stored, ok := s.organizations.insert(v.ID, v)
	if !ok {
		return nil, fmt.Errorf("create organization: %w", ErrDuplicateKey)
	}
	return &stored, nil
}

func (s *MemoryStore) GetOrganization(_ context.Context, id string) (*models.Organization, error) {
	org, ok := s.organizations.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &org, nil
}

func (s *MemoryStore) UpdateOrganization(_ context.Context, id string, upd models.OrganizationUpdate) (*models.Organization, error) {
	org, ok := s.organizations.update(id, func(o *models.Organization) {
		if upd.Name != nil {
			o.Name = *upd.Name
		}
		if upd.Plan != nil {
			o.Plan = *upd.Plan
		}
	})
	if !ok {
		return nil, ErrNotFound
	}
	return &org, nil
}

// --- Users ---

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	v := *user
	v.ID = newID()
	stored, ok := s.users.insert(v.ID, v)
	if !ok {
		return nil, ErrDuplicateKey
	}
	return &stored, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := s.users.getByKey(normalizeEmail(email))
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) UpdateUserPassword(_ context.Context, id string, passwordHash string) (*models.User, error) {
	u, ok := s.users.update(id, func(u *models.User) {
		u.PasswordHash = passwordHash
	})
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// --- Members ---

func (s *MemoryStore) AddMember(_ context.Context, member *models.OrganizationMember) (*models.OrganizationMember, error) {
	v := *member
	v.ID = newID()
	if v.Teams == nil {
		v.Teams = []string{}
	}
	stored, ok := s.members.insert(v.ID, v)
	if !ok {
		return nil, fmt.Errorf("add member: %w", ErrDuplicateKey)
	}
	return &stored, nil
}

func (s *MemoryStore) GetMember(_ context.Context, id string) (*models.OrganizationMember, error) {
	m, ok := s.members.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) ListMembers(_ context.Context, orgID string) ([]*models.OrganizationMember, error) {
	return pointers(s.members.listByOrg(orgID, nil)), nil
}

func (s *MemoryStore) UpdateMember(_ context.Context, id string, upd models.MemberUpdate) (*models.OrganizationMember, error) {
	m, ok := s.members.update(id, func(m *models.OrganizationMember) {
		if upd.Role != nil {
			m.Role = *upd.Role
		}
		if upd.Teams != nil {
			m.Teams = append([]string{}, upd.Teams...)
		}
	})
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) RemoveMember(_ context.Context, id string) error {
	if _, ok := s.members.delete(id); !ok {
		return ErrNotFound
	}
	return nil
}

// --- API Keys ---

func (s *MemoryStore) CreateAPIKey(_ context.Context, key *models.APIKey) (*models.APIKey, error) {
	v := *key
	v.ID = newID()
	stored, ok := s.apiKeys.insert(v.ID, v)
	if !ok {
		return nil, ErrDuplicateKey
	}
	return &stored, nil
}

func (s *MemoryStore) GetAPIKey(_ context.Context, id string) (*models.APIKey, error) {
	k, ok := s.apiKeys.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &k, nil
}

func (s *MemoryStore) GetAPIKeyBySecret(_ context.Context, secret string) (*models.APIKey, error) {
	if secret == "" {
		return nil, ErrNotFound
	}
	k, ok := s.apiKeys.getByKey(secret)
	if !ok {
		return nil, ErrNotFound
	}
	return &k, nil
}

func (s *MemoryStore) ListAPIKeys(_ context.Context, orgID string) ([]*models.APIKey, error) {
	return pointers(s.apiKeys.listByOrg(orgID, nil)), nil
}

func (s *MemoryStore) DeleteAPIKey(_ context.Context, id string) error {
	if _, ok := s.apiKeys.delete(id); !ok {
		return ErrNotFound
	}
	return nil
}

// --- Agents ---

func (s *MemoryStore) CreateAgent(_ context.Context, agent *models.Agent) (*models.Agent, error) {
	v := *agent
	v.ID = newID()
	stored, ok := s.agents.insert(v.ID, v)
	if !ok {
		return nil, fmt.Errorf("create agent: %w", ErrDuplicateKey)
	}
	return &stored, nil
}

func (s *MemoryStore) GetAgent(_ context.Context, id string) (*models.Agent, error) {
	a, ok := s.agents.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) ListAgents(_ context.Context, orgID string) ([]*models.Agent, error) {
	return pointers(s.agents.listByOrg(orgID, nil)), nil
}

func (s *MemoryStore) UpdateAgent(_ context.Context, id string, upd models.AgentUpdate) (*models.Agent, error) {
	a, ok := s.agents.update(id, func(a *models.Agent) {
		if upd.Name != nil {
			a.Name = *upd.Name
		}
		if upd.Type != nil {
			a.Type = *upd.Type
		}
		if upd.Provider != nil {
			a.Provider = *upd.Provider
		}
		if upd.Status != nil {
			a.Status = *upd.Status
		}
		if upd.Tags != nil {
			a.Tags = append([]string{}, upd.Tags...)
		}
		if upd.Environment != nil {
			a.Environment = *upd.Environment
		}
		if upd.Config != nil {
			a.Config = append([]byte(nil), upd.Config...)
		}
	})
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// --- Runs & Events ---

func (s *MemoryStore) CreateRun(_ context.Context, run *models.Run, events []models.Event) (*models.Run, []models.Event, error) {
	v := *run
	if v.ID == "" {
		v.ID = newID()
	}

	// Duplicate check, run insert and event append form one critical section.
	// Lock order is always runs, then events.
	s.runs.mu.Lock()
	defer s.runs.mu.Unlock()

	stored, ok := s.runs.insertLocked(v.ID, v)
	if !ok {
		return nil, nil, ErrDuplicateKey
	}

	created := make([]models.Event, 0, len(events))
	for _, e := range events {
		e.ID = newID()
		e.RunID = stored.ID
		created = append(created, cloneEvent(e))
	}

	s.events.mu.Lock()
	for _, e := range created {
		s.events.byRun[stored.ID] = append(s.events.byRun[stored.ID], cloneEvent(e))
	}
	s.events.mu.Unlock()

	return &stored, created, nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (*models.Run, error) {
	r, ok := s.runs.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, orgID string, filter models.RunFilter) ([]*models.Run, error) {
	runs := s.runs.listByOrg(orgID, func(r models.Run) bool {
		if filter.AgentID != "" && r.AgentID != filter.AgentID {
			return false
		}
		if filter.Status != "" && r.Status != filter.Status {
			return false
		}
		return true
	})
	return pointers(runs), nil
}

func (s *MemoryStore) ListEvents(_ context.Context, runID string, orgID string) ([]models.Event, error) {
	s.events.mu.RLock()
	defer s.events.mu.RUnlock()

	out := make([]models.Event, 0)
	for _, e := range s.events.byRun[runID] {
		if e.OrgID == orgID {
			out = append(out, cloneEvent(e))
		}
	}
	return out, nil
}

// --- Password Resets ---

func (s *MemoryStore) CreatePasswordReset(_ context.Context, reset *models.PasswordReset) error {
	if _, ok := s.resets.insert(reset.Token, *reset); !ok {
		return ErrDuplicateKey
	}
	return nil
}

func (s *MemoryStore) TakePasswordReset(_ context.Context, token string) (*models.PasswordReset, error) {
	r, ok := s.resets.delete(token)
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func pointers[T any](vs []T) []*T {
	out := make([]*T, len(vs))
	for i := range vs {
		out[i] = &vs[i]
	}
	return out
}
