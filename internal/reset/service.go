// Package reset implements single-use, time-bounded password reset tokens.
//
// A token moves from issued to exactly one terminal state: consumed, expired or
// invalid. Consumed and expired tokens are deleted, so a replay of either is
// indistinguishable from a token that was never issued.
package reset

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/agentops/internal/metrics"
	"github.com/kiranshivaraju/agentops/internal/store"
	"github.com/kiranshivaraju/agentops/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTTL = time.Hour
	tokenBytes = 32

	// MaxPasswordBytes is the longest password bcrypt accepts, in bytes.
	MaxPasswordBytes = 72
)

var (
	ErrInvalidToken    = errors.New("reset token invalid")
	ErrExpiredToken    = errors.New("reset token expired")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// Service issues and consumes password reset tokens.
type Service struct {
	store      store.Store
	ttl        time.Duration
	bcryptCost int
	now        func() time.Time
}

type Option func(*Service)

// WithTTL overrides how long a token stays valid after issuance.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithBcryptCost overrides the bcrypt cost used for new passwords.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new reset Service.
func NewService(s store.Store, opts ...Option) *Service {
	svc := &Service{
		store:      s,
		ttl:        DefaultTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Request mints a token for the user registered under email. It returns a nil
// reset and a nil error when no such user exists; callers must not reveal the
// difference. Earlier tokens for the same user stay valid.
func (s *Service) Request(ctx context.Context, email string) (*models.PasswordReset, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		metrics.PasswordResetsRequested.WithLabelValues("false").Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now().UTC()
	reset := &models.PasswordReset{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.CreatePasswordReset(ctx, reset); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	metrics.PasswordResetsRequested.WithLabelValues("true").Inc()
	slog.Info("password reset issued", "user_id", user.ID, "expires_at", reset.ExpiresAt)
	return reset, nil
}

// Consume spends token and sets newPassword on its user. It fails with
// ErrInvalidToken for unknown or already used tokens and ErrExpiredToken once
// the token's lifetime has elapsed. The token is deleted in both the success
// and the expired case. A password longer than MaxPasswordBytes fails with
// ErrPasswordTooLong and leaves the token untouched.
func (s *Service) Consume(ctx context.Context, token, newPassword string) (*models.User, error) {
	if len(newPassword) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	reset, err := s.store.TakePasswordReset(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		metrics.PasswordResetsConsumed.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("take reset token: %w", err)
	}

	if reset.Expired(s.now()) {
		metrics.PasswordResetsConsumed.WithLabelValues("expired").Inc()
		return nil, ErrExpiredToken
	}

	user, err := s.store.UpdateUserPassword(ctx, reset.UserID, string(hash))
	if errors.Is(err, store.ErrNotFound) {
		metrics.PasswordResetsConsumed.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}

	metrics.PasswordResetsConsumed.WithLabelValues("ok").Inc()
	slog.Info("password reset consumed", "user_id", user.ID)
	return user, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
