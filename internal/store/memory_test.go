package store_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/agentops/internal/store"
	"github.com/kiranshivaraju/agentops/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// newOrg creates an organization and returns its id.
func newOrg(t *testing.T, s store.Store, name string) string {
	t.Helper()
	org, err := s.CreateOrganization(context.Background(), &models.Organization{Name: name, Plan: "starter"})
	require.NoError(t, err)
	return org.ID
}

func newAgent(t *testing.T, s store.Store, orgID string) *models.Agent {
	t.Helper()
	a, err := s.CreateAgent(context.Background(), &models.Agent{
		OrgID:       orgID,
		Name:        "support-bot",
		Type:        "chat",
		Provider:    "openai",
		Status:      models.AgentStatusActive,
		Tags:        []string{"tier1"},
		Environment: models.EnvironmentProd,
		Config:      json.RawMessage(`{"temperature":0.2}`),
	})
	require.NoError(t, err)
	return a
}

// --- Organization Tests ---

func TestOrganization_CreateGetUpdate(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	org, err := s.CreateOrganization(ctx, &models.Organization{ID: "caller-chosen", Name: "Acme", Plan: "starter", CreatedBy: "u1"})
	require.NoError(t, err)
	assert.NotEqual(t, "caller-chosen", org.ID)
	assert.Len(t, org.ID, 36)

	got, err := s.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, org, got)

	updated, err := s.UpdateOrganization(ctx, org.ID, models.OrganizationUpdate{Plan: ptr("growth")})
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Name)
	assert.Equal(t, "growth", updated.Plan)
	assert.Equal(t, org.ID, updated.ID)
}

func TestOrganization_NotFound(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetOrganization(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.UpdateOrganization(ctx, "missing", models.OrganizationUpdate{Name: ptr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- User Tests ---

func TestUser_EmailUnique(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, &models.User{Email: "ada@example.com", FullName: "Ada"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, &models.User{Email: "ADA@example.com ", FullName: "Imposter"})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	got, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUser_UpdatePassword(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, &models.User{Email: "ada@example.com", FullName: "Ada"})
	require.NoError(t, err)

	updated, err := s.UpdateUserPassword(ctx, u.ID, "hash")
	require.NoError(t, err)
	assert.Equal(t, "hash", updated.PasswordHash)
	assert.Equal(t, u.Email, updated.Email)

	_, err = s.UpdateUserPassword(ctx, "missing", "hash")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- Member Tests ---

func TestMember_Lifecycle(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	orgID := newOrg(t, s, "Acme")

	m, err := s.AddMember(ctx, &models.OrganizationMember{OrgID: orgID, UserID: "u1", Role: models.RoleMember})
	require.NoError(t, err)
	assert.Equal(t, []string{}, m.Teams)

	updated, err := s.UpdateMember(ctx, m.ID, models.MemberUpdate{Teams: []string{"infra"}})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, updated.Role)
	assert.Equal(t, []string{"infra"}, updated.Teams)

	updated, err = s.UpdateMember(ctx, m.ID, models.MemberUpdate{Role: ptr(models.RoleViewer)})
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, updated.Role)
	assert.Equal(t, []string{"infra"}, updated.Teams)

	require.NoError(t, s.RemoveMember(ctx, m.ID))
	assert.ErrorIs(t, s.RemoveMember(ctx, m.ID), store.ErrNotFound)

	members, err := s.ListMembers(ctx, orgID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

// --- API Key Tests ---

func TestAPIKey_SecretIndex(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	orgID := newOrg(t, s, "Acme")

	key, err := s.CreateAPIKey(ctx, &models.APIKey{
		OrgID: orgID, Name: "ci", Key: "ak_0123456789", Scope: []string{"ingest"}, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	got, err := s.GetAPIKeyBySecret(ctx, "ak_0123456789")
	require.NoError(t, err)
	assert.Equal(t, key.ID, got.ID)

	for _, candidate := range []string{"", "ak_", "ak_012345678", "ak_01234567890", "0123456789", "AK_0123456789"} {
		_, err := s.GetAPIKeyBySecret(ctx, candidate)
		assert.ErrorIs(t, err, store.ErrNotFound, "candidate %q", candidate)
	}

	_, err = s.CreateAPIKey(ctx, &models.APIKey{OrgID: orgID, Name: "dup", Key: "ak_0123456789"})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestAPIKey_DeleteRemovesIndex(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	orgID := newOrg(t, s, "Acme")

	key, err := s.CreateAPIKey(ctx, &models.APIKey{OrgID: orgID, Name: "ci", Key: "ak_revoke"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteAPIKey(ctx, key.ID))

	_, err = s.GetAPIKeyBySecret(ctx, "ak_revoke")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetAPIKey(ctx, key.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteAPIKey(ctx, key.ID), store.ErrNotFound)

	// The secret is free again once its record is gone.
	_, err = s.CreateAPIKey(ctx, &models.APIKey{OrgID: orgID, Name: "ci", Key: "ak_revoke"})
	assert.NoError(t, err)
}

// --- Agent Tests ---

func TestAgent_UpdateKeepsIdentity(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	orgID := newOrg(t, s, "Acme")
	a := newAgent(t, s, orgID)

	updated, err := s.UpdateAgent(ctx, a.ID, models.AgentUpdate{
		Status: ptr(models.AgentStatusPaused),
		Config: json.RawMessage(`{"b":1,"a":2}`),
	})
	require.NoError(t, err)
	assert.Equal(t, a.ID, updated.ID)
	assert.Equal(t, orgID, updated.OrgID)
	assert.Equal(t, models.AgentStatusPaused, updated.Status)
	assert.Equal(t, "support-bot", updated.Name)
	assert.Equal(t, []string{"tier1"}, updated.Tags)
	assert.Equal(t, `{"b":1,"a":2}`, string(updated.Config))

	_, err = s.UpdateAgent(ctx, "missing", models.AgentUpdate{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAgent_ReturnsCopies(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	a := newAgent(t, s, newOrg(t, s, "Acme"))

	a.Tags[0] = "mutated"
	a.Config[0] = 'X'

	got, err := s.GetAgent(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"tier1"}, got.Tags)
	assert.Equal(t, `{"temperature":0.2}`, string(got.Config))
}

// --- Run Tests ---

func TestRun_CreateIsFirstWriteWins(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	orgID := newOrg(t, s, "Acme")
	a := newAgent(t, s, orgID)

	first, _, err := s.CreateRun(ctx, &models.Run{ID: "r1", OrgID: orgID, AgentID: a.ID, Status: models.RunStatusCompleted}, nil)
	require.NoError(t, err)
	assert.Equal(t, "r1", first.ID)

	_, _, err = s.CreateRun(ctx, &models.Run{ID: "r1", OrgID: orgID, AgentID: a.ID, Status: models.RunStatusFailed},
		[]models.Event{{OrgID: orgID, EventType: "late"}})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	got, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)

	events, err := s.ListEvents(ctx, "r1", orgID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRun_MintsIDWhenAbsent(t *testing.T) {
	s := store.NewMemoryStore()
	run, _, err := s.CreateRun(context.Background(), &models.Run{OrgID: "o1", AgentID: "a1"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
}

func TestRun_ConcurrentDuplicateCreatesOnce(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	orgID := newOrg(t, s, "Acme")

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.CreateRun(ctx, &models.Run{ID: "same", OrgID: orgID, AgentID: "a1"},
				[]models.Event{{OrgID: orgID, EventType: "step"}})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	runs, err := s.ListRuns(ctx, orgID, models.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	events, err := s.ListEvents(ctx, "same", orgID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRun_EventsKeepOrderAndScope(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	orgID := newOrg(t, s, "Acme")

	_, created, err := s.CreateRun(ctx, &models.Run{ID: "r1", OrgID: orgID, AgentID: "a1"}, []models.Event{
		{OrgID: orgID, EventType: "first"},
		{OrgID: orgID, EventType: "second"},
		{OrgID: orgID, EventType: "third"},
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	for _, e := range created {
		assert.Equal(t, "r1", e.RunID)
		assert.NotEmpty(t, e.ID)
	}

	events, err := s.ListEvents(ctx, "r1", orgID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "first", events[0].EventType)
	assert.Equal(t, "second", events[1].EventType)
	assert.Equal(t, "third", events[2].EventType)

	other, err := s.ListEvents(ctx, "r1", "another-org")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRun_ListFilter(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	orgID := newOrg(t, s, "Acme")

	runs := []models.Run{
		{ID: "r1", OrgID: orgID, AgentID: "a1", Status: models.RunStatusCompleted},
		{ID: "r2", OrgID: orgID, AgentID: "a2", Status: models.RunStatusCompleted},
		{ID: "r3", OrgID: orgID, AgentID: "a1", Status: models.RunStatusFailed},
	}
	for i := range runs {
		_, _, err := s.CreateRun(ctx, &runs[i], nil)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter models.RunFilter
		want   []string
	}{
		{"no filter keeps insertion order", models.RunFilter{}, []string{"r1", "r2", "r3"}},
		{"by agent", models.RunFilter{AgentID: "a1"}, []string{"r1", "r3"}},
		{"by status", models.RunFilter{Status: models.RunStatusCompleted}, []string{"r1", "r2"}},
		{"by both", models.RunFilter{AgentID: "a1", Status: models.RunStatusFailed}, []string{"r3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListRuns(ctx, orgID, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

// --- Isolation ---

func TestListByOrg_NeverLeaksAcrossOrgs(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	orgA := newOrg(t, s, "A")
	orgB := newOrg(t, s, "B")

	for _, orgID := range []string{orgA, orgB} {
		a := newAgent(t, s, orgID)
		_, err := s.AddMember(ctx, &models.OrganizationMember{OrgID: orgID, UserID: "u", Role: models.RoleAdmin})
		require.NoError(t, err)
		_, err = s.CreateAPIKey(ctx, &models.APIKey{OrgID: orgID, Name: "k", Key: "ak_" + orgID})
		require.NoError(t, err)
		_, _, err = s.CreateRun(ctx, &models.Run{OrgID: orgID, AgentID: a.ID}, nil)
		require.NoError(t, err)
	}

	agents, err := s.ListAgents(ctx, orgA)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, orgA, agents[0].OrgID)

	members, err := s.ListMembers(ctx, orgA)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, orgA, members[0].OrgID)

	keys, err := s.ListAPIKeys(ctx, orgA)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, orgA, keys[0].OrgID)

	runs, err := s.ListRuns(ctx, orgA, models.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, orgA, runs[0].OrgID)
}

// --- Password Reset Tests ---

func TestPasswordReset_TakeOnce(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	reset := &models.PasswordReset{Token: "tok", UserID: "u1", Email: "a@b.c", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.CreatePasswordReset(ctx, reset))
	assert.ErrorIs(t, s.CreatePasswordReset(ctx, reset), store.ErrDuplicateKey)

	got, err := s.TakePasswordReset(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = s.TakePasswordReset(ctx, "tok")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
