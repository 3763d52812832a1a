package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kiranshivaraju/agentops/internal/account"
	"github.com/kiranshivaraju/agentops/internal/api/response"
	"github.com/kiranshivaraju/agentops/internal/reset"
	"github.com/kiranshivaraju/agentops/pkg/models"
)

// ResetRequestMessage is returned whether or not the email is registered.
const ResetRequestMessage = "If an account exists, a reset email has been sent."

// Accounts defines the signup and login operations the handlers depend on.
type Accounts interface {
	Signup(ctx context.Context, email, fullName, orgName string) (*account.Signup, error)
	Login(ctx context.Context, email string) (*account.Login, error)
}

// PasswordResets defines the reset token operations the handlers depend on.
type PasswordResets interface {
	Request(ctx context.Context, email string) (*models.PasswordReset, error)
	Consume(ctx context.Context, token, newPassword string) (*models.User, error)
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,min=2"`
	OrgName  string `json:"org_name" validate:"required,min=2"`
}

// NewSignupHandler returns an http.HandlerFunc for POST /api/v1/auth/signup.
func NewSignupHandler(accts Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := accts.Signup(r.Context(), req.Email, req.FullName, req.OrgName)
		if errors.Is(err, account.ErrEmailTaken) {
			response.Error(w, http.StatusConflict, response.CodeConflict, "Email already registered", nil)
			return
		}
		if err != nil {
			internalError(w)
			return
		}

		response.Message(w, http.StatusCreated, "Signup successful", res)
	}
}

type loginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/v1/auth/login.
func NewLoginHandler(accts Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := accts.Login(r.Context(), req.Email)
		if errors.Is(err, account.ErrInvalidCredentials) {
			response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid credentials", nil)
			return
		}
		if err != nil {
			internalError(w)
			return
		}

		response.Message(w, http.StatusOK, "Login successful", res)
	}
}

// NewLogoutHandler returns an http.HandlerFunc for POST /api/v1/auth/logout.
func NewLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.Message(w, http.StatusOK, "Logged out", map[string]bool{"revoked": true})
	}
}

// NewRefreshTokenHandler returns an http.HandlerFunc for POST /api/v1/auth/refresh-token.
func NewRefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.Message(w, http.StatusOK, "Token refreshed", map[string]string{
			"token":         account.PlaceholderToken,
			"refresh_token": account.PlaceholderRefreshToken,
		})
	}
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetIssued struct {
	ResetToken string    `json:"reset_token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// NewPasswordResetRequestHandler returns an http.HandlerFunc for
// POST /api/v1/auth/password-reset/request. The response does not reveal
// whether the email is registered, except through the data field which only
// carries a token when one was issued.
func NewPasswordResetRequestHandler(resets PasswordResets) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		pr, err := resets.Request(r.Context(), req.Email)
		if err != nil {
			internalError(w)
			return
		}

		var data any
		if pr != nil {
			data = resetIssued{ResetToken: pr.Token, ExpiresAt: pr.ExpiresAt}
		}
		response.Message(w, http.StatusOK, ResetRequestMessage, data)
	}
}

type resetConfirmRequest struct {
	Token       string `json:"token" validate:"required,min=8"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// NewPasswordResetConfirmHandler returns an http.HandlerFunc for
// POST /api/v1/auth/password-reset/confirm.
func NewPasswordResetConfirmHandler(resets PasswordResets) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetConfirmRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		user, err := resets.Consume(r.Context(), req.Token, req.NewPassword)
		switch {
		case errors.Is(err, reset.ErrExpiredToken):
			response.Error(w, http.StatusBadRequest, response.CodeExpiredToken,
				"Reset token expired. Request a new one.", nil)
			return
		case errors.Is(err, reset.ErrInvalidToken):
			response.Error(w, http.StatusBadRequest, response.CodeInvalidToken,
				"Reset token invalid.", nil)
			return
		case errors.Is(err, reset.ErrPasswordTooLong):
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid request",
				map[string]string{"new_password": "must be at most 72 bytes long"})
			return
		case err != nil:
			internalError(w)
			return
		}

		response.Message(w, http.StatusOK, "Password reset successful.", map[string]string{"user_id": user.ID})
	}
}
