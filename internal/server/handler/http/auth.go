// Package http provides the HTTP handlers of the SERO-EST API.
package http

import (
	"context"
	"net/http"

	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/auth"
	"github.com/thunderdz19/sero-est/internal/middleware"
	"github.com/thunderdz19/sero-est/internal/service"
)

// AuthService defines the session operations required by AuthHandler.
type AuthService interface {
	Login(ctx context.Context, nom, password string) (service.LoginResult, error)
	Logout(ctx context.Context, sess access.Session, claims auth.Claims) error
	Describe(sess access.Session) service.LoginResult
}

// AuthHandler handles login, logout and session introspection.
type AuthHandler struct {
	AuthService AuthService
}

// LoginRequest is the JSON payload of POST /api/login.
type LoginRequest struct {
	Nom        string `json:"nom"`
	MotDePasse string `json:"motDePasse"`
}

// Login checks the credentials and returns a bearer token with the user,
// the tabs the user may open and whether they are the main administrator.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.AuthService.Login(r.Context(), req.Nom, req.MotDePasse)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if err := h.AuthService.Logout(r.Context(), sessionOf(r), claims); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me describes the current session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := access.FromContext(r.Context())
	if !ok {
		writeError(w, service.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, h.AuthService.Describe(sess))
}
