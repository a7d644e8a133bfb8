package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/activity"
	"github.com/thunderdz19/sero-est/internal/models"
)

// UserDraft creates a user.
type UserDraft struct {
	Nom        string      `json:"nom"`
	MotDePasse string      `json:"motDePasse"`
	Role       models.Role `json:"role"`
	Actif      *bool       `json:"actif,omitempty"`
}

// UserPatch updates the non-nil fields of a user.
type UserPatch struct {
	Nom        *string      `json:"nom,omitempty"`
	MotDePasse *string      `json:"motDePasse,omitempty"`
	Role       *models.Role `json:"role,omitempty"`
	Actif      *bool        `json:"actif,omitempty"`
}

type UserService struct {
	*base
}

func NewUserService(d Deps) *UserService {
	return &UserService{base: newBase(d)}
}

func (s *UserService) List(ctx context.Context, sess access.Session) ([]models.User, error) {
	if err := s.authorize(sess, access.PermManageUsers); err != nil {
		return nil, err
	}
	return s.data.Users.All(ctx)
}

func (s *UserService) Create(ctx context.Context, sess access.Session, d UserDraft) (models.User, error) {
	if err := s.authorize(sess, access.PermManageUsers); err != nil {
		return models.User{}, err
	}
	u := models.User{
		ID:           s.newID(),
		Nom:          strings.TrimSpace(d.Nom),
		MotDePasse:   d.MotDePasse,
		Role:         d.Role,
		Actif:        d.Actif == nil || *d.Actif,
		DateCreation: s.now(),
	}
	if err := validateUser(u); err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.data.Users.All(ctx)
	if err != nil {
		return models.User{}, err
	}
	if err := s.data.Users.Save(ctx, append(users, u)); err != nil {
		return models.User{}, err
	}
	s.record(ctx, sess, models.EntityUser, models.OpCreate, activity.ActionCreateUser,
		fmt.Sprintf("Nouvel utilisateur créé: %s (%s)", u.Nom, u.Role))
	return u, nil
}

func (s *UserService) Update(ctx context.Context, sess access.Session, id string, p UserPatch) (models.User, error) {
	if err := s.authorize(sess, access.PermManageUsers); err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.data.Users.All(ctx)
	if err != nil {
		return models.User{}, err
	}
	i := indexOf(users, func(u models.User) bool { return u.ID == id })
	if i < 0 {
		return models.User{}, fmt.Errorf("utilisateur %q: %w", id, ErrNotFound)
	}
	oldName := users[i].Nom
	u := users[i]
	if p.Nom != nil {
		u.Nom = strings.TrimSpace(*p.Nom)
	}
	if p.MotDePasse != nil {
		u.MotDePasse = *p.MotDePasse
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Actif != nil {
		u.Actif = *p.Actif
	}
	if err := validateUser(u); err != nil {
		return models.User{}, err
	}
	users[i] = u
	if err := s.data.Users.Save(ctx, users); err != nil {
		return models.User{}, err
	}
	s.record(ctx, sess, models.EntityUser, models.OpUpdate, activity.ActionUpdateUser,
		"Utilisateur modifié: "+oldName)
	return u, nil
}

// Delete removes a user. The session user and administrators cannot be deleted.
func (s *UserService) Delete(ctx context.Context, sess access.Session, id string) error {
	if err := s.authorize(sess, access.PermManageUsers); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.data.Users.All(ctx)
	if err != nil {
		return err
	}
	i := indexOf(users, func(u models.User) bool { return u.ID == id })
	if i < 0 {
		return fmt.Errorf("utilisateur %q: %w", id, ErrNotFound)
	}
	target := users[i]
	if !s.policy.CanDeleteUser(sess, target) {
		return fmt.Errorf("delete %s: %w", target.Nom, ErrForbidden)
	}
	if err := s.data.Users.Save(ctx, append(users[:i], users[i+1:]...)); err != nil {
		return err
	}
	s.record(ctx, sess, models.EntityUser, models.OpDelete, activity.ActionDeleteUser,
		"Utilisateur supprimé: "+target.Nom)
	return nil
}

func validateUser(u models.User) error {
	if u.Nom == "" {
		return invalid("nom", "required")
	}
	if u.MotDePasse == "" {
		return invalid("motDePasse", "required")
	}
	if !u.Role.Valid() {
		return invalid("role", fmt.Sprintf("unknown role %q", u.Role))
	}
	return nil
}
