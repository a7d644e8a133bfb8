package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/activity"
	"github.com/thunderdz19/sero-est/internal/auth"
	"github.com/thunderdz19/sero-est/internal/metrics"
	"github.com/thunderdz19/sero-est/internal/models"
)

// Tokens issues and verifies session tokens.
type Tokens interface {
	Issue(userID string) (string, auth.Claims, error)
	Parse(raw string) (auth.Claims, error)
}

// RevocationList remembers logged-out tokens.
type RevocationList interface {
	Revoke(id string, expiresAt time.Time)
	Revoked(id string) bool
}

// SessionSlot persists the most recent session user.
type SessionSlot interface {
	SetCurrentUser(ctx context.Context, u *models.User) error
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string         `json:"token"`
	User      models.User    `json:"user"`
	Tabs      []access.Tab   `json:"tabs"`
	MainAdmin bool           `json:"mainAdmin"`
	Session   access.Session `json:"-"`
}

// AuthService implements login, logout and token verification.
type AuthService struct {
	*base
	tokens  Tokens
	revoked RevocationList
	slot    SessionSlot
}

// NewAuthService constructs an AuthService. slot may be nil.
func NewAuthService(d Deps, tokens Tokens, revoked RevocationList, slot SessionSlot) *AuthService {
	return &AuthService{base: newBase(d), tokens: tokens, revoked: revoked, slot: slot}
}

// Login matches nom case-insensitively after trimming and the password
// exactly. Unknown users, wrong passwords and inactive accounts fail alike.
func (s *AuthService) Login(ctx context.Context, nom, password string) (LoginResult, error) {
	users, err := s.data.Users.All(ctx)
	if err != nil {
		return LoginResult{}, err
	}
	want := strings.ToLower(strings.TrimSpace(nom))
	i := indexOf(users, func(u models.User) bool {
		return strings.ToLower(strings.TrimSpace(u.Nom)) == want && u.MotDePasse == password && u.Actif
	})
	if i < 0 {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return LoginResult{}, ErrInvalidCredentials
	}
	user := users[i]

	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	sess := access.Session{User: user, TokenID: claims.TokenID, IssuedAt: claims.IssuedAt}

	if s.slot != nil {
		if err := s.slot.SetCurrentUser(ctx, &user); err != nil {
			return LoginResult{}, err
		}
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.record(ctx, sess, models.EntitySession, models.OpLogin, activity.ActionLogin,
		fmt.Sprintf("Connexion réussie avec le rôle %s", user.Role))

	return LoginResult{
		Token:     token,
		User:      user,
		Tabs:      s.policy.Tabs(user),
		MainAdmin: s.policy.IsMainAdmin(user),
		Session:   sess,
	}, nil
}

// Logout revokes the session token and clears the current-user slot.
func (s *AuthService) Logout(ctx context.Context, sess access.Session, claims auth.Claims) error {
	if sess.User.ID == "" {
		return ErrUnauthenticated
	}
	s.revoked.Revoke(sess.TokenID, claims.ExpiresAt)
	if s.slot != nil {
		if err := s.slot.SetCurrentUser(ctx, nil); err != nil {
			return err
		}
	}
	s.record(ctx, sess, models.EntitySession, models.OpLogout,
		activity.ActionLogout, "Déconnexion de l'application")
	return nil
}

// Authenticate turns a bearer token into a session. Revoked tokens and
// tokens of deleted or inactive users are refused.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (access.Session, auth.Claims, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return access.Session{}, auth.Claims{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if s.revoked.Revoked(claims.TokenID) {
		return access.Session{}, auth.Claims{}, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}
	users, err := s.data.Users.All(ctx)
	if err != nil {
		return access.Session{}, auth.Claims{}, err
	}
	i := indexOf(users, func(u models.User) bool { return u.ID == claims.UserID })
	if i < 0 || !users[i].Actif {
		return access.Session{}, auth.Claims{}, fmt.Errorf("%w: account unavailable", ErrUnauthenticated)
	}
	return access.Session{User: users[i], TokenID: claims.TokenID, IssuedAt: claims.IssuedAt}, claims, nil
}

// IsUnauthenticated reports whether err from Authenticate means the token was
// refused rather than that the user store could not be read.
func (s *AuthService) IsUnauthenticated(err error) bool {
	return IsUnauthenticated(err)
}

// Describe returns what the shell shows for a session.
func (s *AuthService) Describe(sess access.Session) LoginResult {
	return LoginResult{
		User:      sess.User,
		Tabs:      s.policy.Tabs(sess.User),
		MainAdmin: s.policy.IsMainAdmin(sess.User),
		Session:   sess,
	}
}

// IsUnauthenticated reports whether err should be answered with 401.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrInvalidCredentials)
}
