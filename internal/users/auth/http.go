// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/trailhead/internal/platform/constants"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	requestutil "github.com/taibuivan/trailhead/internal/platform/request"
	"github.com/taibuivan/trailhead/internal/platform/respond"
)

// # Definitions & Constructors

// CookiePolicy controls how the session cookie is written.
type CookiePolicy struct {
	// TTL is the lifetime of the session cookie.
	TTL time.Duration
	// Secure restricts the cookie to HTTPS.
	Secure bool
}

// Handler implements the authentication endpoints under /users.
type Handler struct {
	service   *Service
	cookie    CookiePolicy
	publicURL string
}

// NewHandler constructs a new [Handler]. Mailed links start with publicURL,
// never with the Host of the incoming request.
func NewHandler(service *Service, cookie CookiePolicy, publicURL string) *Handler {
	return &Handler{service: service, cookie: cookie, publicURL: strings.TrimRight(publicURL, "/")}
}

/*
Register mounts the authentication routes on router.

Endpoints:
  - POST  /signup
  - POST  /login
  - GET   /logout
  - POST  /forgotPassword
  - PATCH /resetPassword/{token}
  - PATCH /updateMyPassword (protected)
*/
func (handler *Handler) Register(router chi.Router, base *pipeline.Chain) {
	router.Method(http.MethodPost, "/signup", base.With(pipeline.Terminal(handler.signup)))
	router.Method(http.MethodPost, "/login", base.With(pipeline.Terminal(handler.login)))
	router.Method(http.MethodGet, "/logout", base.With(pipeline.Terminal(handler.logout)))
	router.Method(http.MethodPost, "/forgotPassword", base.With(pipeline.Terminal(handler.forgotPassword)))
	router.Method(http.MethodPatch, "/resetPassword/{token}", base.With(pipeline.Terminal(handler.resetPassword)))

	router.Method(http.MethodPatch, "/updateMyPassword", base.With(
		handler.service.Protect(),
		pipeline.Terminal(handler.updatePassword),
	))
}

// # Request Payloads

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

/*
signup creates an account and logs it in.

POST /api/v1/users/signup

Response:
  - 201: {status, token, data:{user}}
  - 400: VALIDATION_ERROR
  - 409: CONFLICT email already registered
*/
func (handler *Handler) signup(exchange *pipeline.Exchange) error {
	var input SignupInput
	if err := requestutil.DecodeBody(exchange.Body, &input); err != nil {
		return err
	}

	session, err := handler.service.Signup(exchange.Context(), input, handler.publicURL+"/me")
	if err != nil {
		return err
	}

	handler.sendSession(exchange, http.StatusCreated, session)
	return nil
}

/*
login authenticates with email and password.

POST /api/v1/users/login

Response:
  - 200: {status, token, data:{user}}
  - 400: missing email or password
  - 401: incorrect email or password
*/
func (handler *Handler) login(exchange *pipeline.Exchange) error {
	var input loginRequest
	if err := requestutil.DecodeBody(exchange.Body, &input); err != nil {
		return err
	}

	session, err := handler.service.Login(exchange.Context(), input.Email, input.Password)
	if err != nil {
		return err
	}

	handler.sendSession(exchange, http.StatusOK, session)
	return nil
}

// logout overwrites the session cookie with a short-lived placeholder.
//
// GET /api/v1/users/logout
func (handler *Handler) logout(exchange *pipeline.Exchange) error {
	http.SetCookie(exchange.Writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    constants.LoggedOutCookieValue,
		Path:     "/",
		Expires:  time.Now().Add(constants.LoggedOutCookieTTL),
		HttpOnly: true,
	})
	respond.JSON(exchange.Writer, http.StatusOK, respond.SuccessEnvelope{Status: respond.StatusSuccess})
	return nil
}

/*
forgotPassword mails a reset link.

POST /api/v1/users/forgotPassword

Response:
  - 200: "Token sent to email!"
  - 404: no user with that email
  - 500: DELIVERY_ERROR
*/
func (handler *Handler) forgotPassword(exchange *pipeline.Exchange) error {
	var input forgotPasswordRequest
	if err := requestutil.DecodeBody(exchange.Body, &input); err != nil {
		return err
	}

	resetPrefix := handler.publicURL + "/api/v1/users/resetPassword/"
	if err := handler.service.ForgotPassword(exchange.Context(), input.Email, resetPrefix); err != nil {
		return err
	}

	respond.Message(exchange.Writer, msgTokenSent)
	return nil
}

// resetPassword consumes a reset token and logs the user in.
//
// PATCH /api/v1/users/resetPassword/{token}
func (handler *Handler) resetPassword(exchange *pipeline.Exchange) error {
	var input ResetPasswordInput
	if err := requestutil.DecodeBody(exchange.Body, &input); err != nil {
		return err
	}
	input.Token = exchange.Param("token")

	session, err := handler.service.ResetPassword(exchange.Context(), input)
	if err != nil {
		return err
	}

	handler.sendSession(exchange, http.StatusOK, session)
	return nil
}

// updatePassword changes the password of the logged-in user.
//
// PATCH /api/v1/users/updateMyPassword
func (handler *Handler) updatePassword(exchange *pipeline.Exchange) error {
	var input UpdatePasswordInput
	if err := requestutil.DecodeBody(exchange.Body, &input); err != nil {
		return err
	}

	session, err := handler.service.UpdatePassword(exchange.Context(), exchange.Principal.ID, input)
	if err != nil {
		return err
	}

	handler.sendSession(exchange, http.StatusOK, session)
	return nil
}

// # Helpers

// sendSession sets the session cookie and writes {status, token, data:{user}}.
func (handler *Handler) sendSession(exchange *pipeline.Exchange, status int, session *Session) {
	http.SetCookie(exchange.Writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  time.Now().Add(handler.cookie.TTL),
		HttpOnly: true,
		Secure:   handler.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	respond.Token(exchange.Writer, status, session.Token, map[string]any{
		FieldUser: session.User.Public(),
	})
}
