// Package credential issues, resolves and revokes organization API keys.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/agentops/internal/metrics"
	"github.com/kiranshivaraju/agentops/internal/store"
	"github.com/kiranshivaraju/agentops/pkg/models"
)

// SecretPrefix starts every API key secret.
const SecretPrefix = "ak_"

const maxIssueAttempts = 3

// DefaultScope is granted when a key is issued without an explicit scope.
var DefaultScope = []string{"ingest", "read"}

var ErrNotFound = store.ErrNotFound

// Service manages the API key lifecycle. Keys never expire; they are valid
// until revoked.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService creates a new credential Service.
func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// Issue creates a key for orgID and returns it with the secret populated.
// This is the only call that ever returns the secret.
func (s *Service) Issue(ctx context.Context, orgID, name string, scope []string, createdBy string) (*models.APIKey, error) {
	if len(scope) == 0 {
		scope = DefaultScope
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		secret := newSecret()
		key, err := s.store.CreateAPIKey(ctx, &models.APIKey{
			OrgID:     orgID,
			Name:      name,
			Key:       secret,
			KeyHint:   hint(secret),
			Scope:     append([]string{}, scope...),
			CreatedBy: createdBy,
			CreatedAt: s.now().UTC(),
		})
		if errors.Is(err, store.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create api key: %w", err)
		}

		metrics.APIKeysIssued.Inc()
		slog.Info("api key issued", "org_id", orgID, "key_id", key.ID, "key_hint", key.KeyHint)
		return key, nil
	}
	return nil, fmt.Errorf("create api key: %w", store.ErrDuplicateKey)
}

// FindBySecret resolves a presented secret to its key. Only an exact match is
// accepted.
func (s *Service) FindBySecret(ctx context.Context, secret string) (*models.APIKey, error) {
	key, err := s.store.GetAPIKeyBySecret(ctx, secret)
	if err != nil {
		return nil, err
	}
	return key, nil
}

// Get returns the key with the secret removed.
func (s *Service) Get(ctx context.Context, id string) (*models.APIKey, error) {
	key, err := s.store.GetAPIKey(ctx, id)
	if err != nil {
		return nil, err
	}
	redacted := key.Redacted()
	return &redacted, nil
}

// List returns the organization's keys with secrets removed.
func (s *Service) List(ctx context.Context, orgID string) ([]*models.APIKey, error) {
	keys, err := s.store.ListAPIKeys(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	out := make([]*models.APIKey, len(keys))
	for i, k := range keys {
		redacted := k.Redacted()
		out[i] = &redacted
	}
	return out, nil
}

// Revoke deletes the key. Returns ErrNotFound if no key has this id.
func (s *Service) Revoke(ctx context.Context, id string) error {
	if err := s.store.DeleteAPIKey(ctx, id); err != nil {
		return err
	}
	metrics.APIKeysRevoked.Inc()
	slog.Info("api key revoked", "key_id", id)
	return nil
}

func newSecret() string {
	return SecretPrefix + uuid.NewString()
}

// hint keeps the prefix and the last four characters of the secret.
func hint(secret string) string {
	if len(secret) <= len(SecretPrefix)+4 {
		return SecretPrefix + "…"
	}
	return SecretPrefix + "…" + secret[len(secret)-4:]
}
