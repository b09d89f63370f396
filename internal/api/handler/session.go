package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcoot/playersync/internal/api/request"
	"github.com/mcoot/playersync/internal/api/response"
	"github.com/mcoot/playersync/internal/services/auth"
)

// CredentialSetter is implemented by identity providers that accept
// username and password ahead of a handshake
type CredentialSetter interface {
	SetCredentials(username, password string)
}

// SessionHandler handles session endpoints
type SessionHandler struct {
	auth        *auth.Controller
	credentials CredentialSetter
}

// NewSessionHandler creates a new session handler. credentials may be nil
// when the provider does not take credentials.
func NewSessionHandler(controller *auth.Controller, credentials CredentialSetter) *SessionHandler {
	return &SessionHandler{
		auth:        controller,
		credentials: credentials,
	}
}

// Get handles GET /api/v1/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.SessionFromModel(h.auth.Session()))
}

// SignIn handles POST /api/v1/session/signin
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req request.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username != "" && req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	if h.credentials != nil {
		h.credentials.SetCredentials(req.Username, req.Password)
	}

	if err := h.auth.BeginSignIn(r.Context()); err != nil {
		WriteError(w, err)
		return
	}

	response.Accept(w)
}

// SignOut handles POST /api/v1/session/signout
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	response.Accept(w)
}

// UpdateName handles PUT /api/v1/session/name
func (h *SessionHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	var req request.NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.auth.UpdateName(r.Context(), req.Name); err != nil {
		WriteError(w, err)
		return
	}
	response.Accept(w)
}

// DeleteAccount handles DELETE /api/v1/session/account
func (h *SessionHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.DeleteAccount(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	response.Accept(w)
}
