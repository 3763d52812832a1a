// Package account handles user signup and login for the dashboard.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiranshivaraju/agentops/internal/store"
	"github.com/kiranshivaraju/agentops/pkg/models"
)

// DefaultPlan is assigned to organizations created at signup.
const DefaultPlan = "starter"

// Session tokens are fixed placeholders until token issuance is implemented.
const (
	PlaceholderToken        = "mock-jwt-token"
	PlaceholderRefreshToken = "mock-refresh-token"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Signup is the result of a successful signup.
type Signup struct {
	User         *models.User               `json:"user"`
	Org          *models.Organization       `json:"org"`
	Membership   *models.OrganizationMember `json:"membership"`
	Token        string                     `json:"token"`
	RefreshToken string                     `json:"refresh_token"`
}

// Login is the result of a successful login.
type Login struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
}

type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Signup registers a user, creates their organization and makes them its Admin.
func (s *Service) Signup(ctx context.Context, email, fullName, orgName string) (*Signup, error) {
	user, err := s.store.CreateUser(ctx, &models.User{
		Email:    strings.TrimSpace(email),
		FullName: fullName,
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	org, err := s.store.CreateOrganization(ctx, &models.Organization{
		Name:      orgName,
		Plan:      DefaultPlan,
		CreatedBy: user.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}

	member, err := s.store.AddMember(ctx, &models.OrganizationMember{
		OrgID:  org.ID,
		UserID: user.ID,
		Role:   models.RoleAdmin,
		Teams:  []string{},
	})
	if err != nil {
		return nil, fmt.Errorf("add admin member: %w", err)
	}

	slog.Info("account created", "user_id", user.ID, "org_id", org.ID)

	return &Signup{
		User:         user,
		Org:          org,
		Membership:   member,
		Token:        PlaceholderToken,
		RefreshToken: PlaceholderRefreshToken,
	}, nil
}

// Login looks the user up by email. Passwords are not checked yet.
func (s *Service) Login(ctx context.Context, email string) (*Login, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &Login{
		User:         user,
		Token:        PlaceholderToken,
		RefreshToken: PlaceholderRefreshToken,
	}, nil
}
