package store

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/agentops/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All entity reads and writes go through here.
// Implementations must be safe for concurrent use and must return copies, so that
// callers can never mutate stored records in place.
type Store interface {
	Ping(ctx context.Context) error

	CreateOrganization(ctx context.Context, org *models.Organization) (*models.Organization, error)
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, id string, upd models.OrganizationUpdate) (*models.Organization, error)

	// CreateUser returns ErrDuplicateKey if the email is already registered.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id string, passwordHash string) (*models.User, error)

	AddMember(ctx context.Context, member *models.OrganizationMember) (*models.OrganizationMember, error)
	GetMember(ctx context.Context, id string) (*models.OrganizationMember, error)
	ListMembers(ctx context.Context, orgID string) ([]*models.OrganizationMember, error)
	UpdateMember(ctx context.Context, id string, upd models.MemberUpdate) (*models.OrganizationMember, error)
	RemoveMember(ctx context.Context, id string) error

	// CreateAPIKey returns ErrDuplicateKey if the secret is already in use.
	CreateAPIKey(ctx context.Context, key *models.APIKey) (*models.APIKey, error)
	GetAPIKey(ctx context.Context, id string) (*models.APIKey, error)
	GetAPIKeyBySecret(ctx context.Context, secret string) (*models.APIKey, error)
	ListAPIKeys(ctx context.Context, orgID string) ([]*models.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error

	CreateAgent(ctx context.Context, agent *models.Agent) (*models.Agent, error)
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	ListAgents(ctx context.Context, orgID string) ([]*models.Agent, error)
	UpdateAgent(ctx context.Context, id string, upd models.AgentUpdate) (*models.Agent, error)

	// CreateRun stores the run and its events in one step. The run ID is kept if
	// set (it is the idempotency key) and minted otherwise. If a run with the same
	// ID exists, nothing is written and ErrDuplicateKey is returned.
	CreateRun(ctx context.Context, run *models.Run, events []models.Event) (*models.Run, []models.Event, error)
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, orgID string, filter models.RunFilter) ([]*models.Run, error)
	ListEvents(ctx context.Context, runID string, orgID string) ([]models.Event, error)

	// CreatePasswordReset returns ErrDuplicateKey if the token is already stored.
	CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error
	// TakePasswordReset removes the token and returns it. A token can be taken once.
	TakePasswordReset(ctx context.Context, token string) (*models.PasswordReset, error)
}
