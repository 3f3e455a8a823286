// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/constants"
	"github.com/taibuivan/trailhead/internal/platform/mail"
	"github.com/taibuivan/trailhead/internal/platform/sec"
	"github.com/taibuivan/trailhead/internal/platform/validate"
	"github.com/taibuivan/trailhead/pkg/uuid"
)

// # Contracts & Types

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Issue(principalID string) (string, error)
	Verify(token string) (*sec.AuthClaims, error)
	TimeToLive() time.Duration
}

// Session is the result of every operation that logs a user in.
type Session struct {
	User  *User
	Token string
}

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token issuance
// or the reset flow must be reviewed with care.
type Service struct {
	users  UserRepository
	tokens TokenIssuer
	hasher *sec.Hasher
	mailer mail.Sender
	now    func() time.Time
}

// Option configures a [Service].
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(service *Service) { service.now = now }
}

// NewService constructs the authentication [Service].
func NewService(users UserRepository, tokens TokenIssuer, hasher *sec.Hasher, mailer mail.Sender, options ...Option) *Service {
	service := &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		mailer: mailer,
		now:    time.Now,
	}
	for _, option := range options {
		option(service)
	}
	return service
}

// # Registration Flow

// SignupInput holds the data required to enroll a new member.
type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

/*
Signup validates, hashes and persists a new account, then logs it in.

The welcome mail is best-effort: a delivery failure is logged and the signup
still succeeds.

Parameters:
  - ctx: context.Context
  - input: SignupInput
  - accountURL: string (Link placed in the welcome mail)

Returns:
  - *Session: The new account and its token
  - error: VALIDATION_ERROR, CONFLICT (email taken) or storage errors
*/
func (service *Service) Signup(ctx context.Context, input SignupInput, accountURL string) (*Session, error) {

	// ── 1. Validate Input ─────────────────────────────────────────────────
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		MinLen(FieldName, input.Name, NameMinLength).
		MaxLen(FieldName, input.Name, NameMaxLength).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email)
	checkNewPassword(validator, input.Password, input.PasswordConfirm)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 2. Persist ────────────────────────────────────────────────────────
	passwordHash, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	// Role is never taken from the request body
	user := &User{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		Photo:        DefaultPhoto,
		Role:         sec.RoleUser,
		PasswordHash: passwordHash,
		Active:       true,
	}
	if err := service.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// ── 3. Welcome Mail (best-effort) ─────────────────────────────────────
	if err := service.mailer.Send(ctx, mail.Welcome(user.Email, user.Name, accountURL)); err != nil {
		slog.WarnContext(ctx, "auth_welcome_mail_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return service.session(user)
}

// # Authentication Flow

/*
Login checks credentials and issues a session token.

Unknown emails and wrong passwords produce the same error so accounts cannot be
enumerated.
*/
func (service *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.ValidationError(msgProvideCredentials)
	}

	user, err := service.users.FindByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized(msgIncorrectCredentials)
		}
		return nil, err
	}

	if !service.hasher.Verify(user.PasswordHash, password) {
		return nil, apperr.Unauthorized(msgIncorrectCredentials)
	}

	return service.session(user)
}

/*
Authenticate resolves a session token into its account.

Returns:
  - *User: The active account the token belongs to
  - error: UNAUTHORIZED for invalid, expired or stale tokens and missing accounts
*/
func (service *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := service.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, sec.ErrTokenExpired) {
			return nil, apperr.Unauthorized(msgExpiredToken).WithCause(err)
		}
		return nil, apperr.Unauthorized(msgInvalidToken).WithCause(err)
	}

	user, err := service.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized(msgUserGone)
		}
		return nil, err
	}

	if user.ChangedPasswordAfter(claims.IssuedAt()) {
		return nil, apperr.Unauthorized(msgPasswordChanged)
	}

	return user, nil
}

// # Password Recovery

/*
ForgotPassword mails a one-time reset link to the account owner.

Only the SHA-256 fingerprint of the token is stored. If the mail cannot be
delivered the pending reset is discarded again.

Parameters:
  - ctx: context.Context
  - email: string
  - resetURLPrefix: string (The raw token is appended to it)

Returns:
  - error: NOT_FOUND for unknown emails, DELIVERY_ERROR when mail fails
*/
func (service *Service) ForgotPassword(ctx context.Context, email, resetURLPrefix string) error {
	user, err := service.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound(msgNoUserWithEmail)
		}
		return err
	}

	// ── 1. Store The Fingerprint ──────────────────────────────────────────
	rawToken, err := sec.GenerateSecureToken(sec.ResetTokenBytes)
	if err != nil {
		return apperr.Internal(fmt.Errorf("auth_service_generate_reset_token_failed: %w", err))
	}

	expiresAt := service.now().Add(constants.PasswordResetTTL)
	if err := service.users.SetResetToken(ctx, user.ID, sec.Fingerprint(rawToken), expiresAt); err != nil {
		return err
	}

	// ── 2. Deliver The Raw Token ──────────────────────────────────────────
	message := mail.PasswordReset(user.Email, user.Name, resetURLPrefix+rawToken)
	if err := service.mailer.Send(ctx, message); err != nil {
		if clearErr := service.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			slog.ErrorContext(ctx, "auth_clear_reset_token_failed",
				slog.String("user_id", user.ID),
				slog.Any("error", clearErr),
			)
		}
		return apperr.Delivery(msgMailFailed, err)
	}

	return nil
}

// ResetPasswordInput completes the forgot-password flow.
type ResetPasswordInput struct {
	Token           string `json:"-"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

/*
ResetPassword sets a new password for the holder of an open reset token and
logs them in.

Returns:
  - *Session: The account and a fresh token
  - error: VALIDATION_ERROR "Token is invalid or has expired" for unusable tokens
*/
func (service *Service) ResetPassword(ctx context.Context, input ResetPasswordInput) (*Session, error) {
	user, err := service.users.FindByResetToken(ctx, sec.Fingerprint(input.Token), service.now())
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.InvalidToken()
		}
		return nil, err
	}

	validator := &validate.Validator{}
	checkNewPassword(validator, input.Password, input.PasswordConfirm)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.setPassword(ctx, user, input.Password); err != nil {
		return nil, err
	}
	return service.session(user)
}

// UpdatePasswordInput changes the password of a logged-in user.
type UpdatePasswordInput struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

/*
UpdatePassword changes the password after re-checking the current one.

Every token issued before the change stops working; the returned session carries
a fresh one.
*/
func (service *Service) UpdatePassword(ctx context.Context, userID string, input UpdatePasswordInput) (*Session, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !service.hasher.Verify(user.PasswordHash, input.PasswordCurrent) {
		return nil, apperr.Unauthorized(msgCurrentPasswordWrong)
	}

	validator := &validate.Validator{}
	checkNewPassword(validator, input.Password, input.PasswordConfirm)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.setPassword(ctx, user, input.Password); err != nil {
		return nil, err
	}
	return service.session(user)
}

// # Internals

// setPassword hashes and stores a new password and clears any pending reset.
func (service *Service) setPassword(ctx context.Context, user *User, password string) error {
	passwordHash, err := service.hasher.Hash(password)
	if err != nil {
		return apperr.Internal(fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	changedAt := service.now().Add(-passwordChangeSkew)
	if err := service.users.UpdatePassword(ctx, user.ID, passwordHash, changedAt); err != nil {
		return err
	}

	user.PasswordHash = passwordHash
	user.PasswordChangedAt = &changedAt
	user.ResetTokenHash = nil
	user.ResetExpiresAt = nil
	return nil
}

// session issues a token for user.
func (service *Service) session(user *User) (*Session, error) {
	token, err := service.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_token_generation_failed: %w", err))
	}
	return &Session{User: user, Token: token}, nil
}

// checkNewPassword applies the password policy.
func checkNewPassword(validator *validate.Validator, password, confirm string) {
	validator.Required(FieldPassword, password).
		MinLen(FieldPassword, password, PasswordMinLength).
		MaxBytes(FieldPassword, password, PasswordMaxBytes).
		Required(FieldPasswordConfirm, confirm).
		Matches(FieldPasswordConfirm, confirm, password, msgPasswordMismatch)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
