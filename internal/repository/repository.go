package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/thunderdz19/sero-est/internal/store"
)

// Storage keys of the persisted layout.
const (
	KeyUsers       = "users"
	KeyProjects    = "projets"
	KeyPhases      = "phases"
	KeyStations    = "stations"
	KeyReports     = "rapports"
	KeyActionLogs  = "action-logs"
	KeyCurrentUser = "current-user"
)

// Repository groups the application collections stored in one KV.
type Repository struct {
	Users    *Collection[models.User]
	Projects *Collection[models.Project]
	Phases   *Collection[models.Phase]
	Stations *Collection[models.Station]
	Reports  *Collection[models.Report]
	Logs     *Collection[models.ActionLog]

	kv store.KV
}

// New binds the collections to kv. now stamps the seeded user accounts.
func New(kv store.KV, now func() time.Time) *Repository {
	return &Repository{
		Users:    NewCollection(kv, KeyUsers, func() []models.User { return models.DefaultUsers(now()) }),
		Projects: NewCollection[models.Project](kv, KeyProjects, nil),
		Phases:   NewCollection(kv, KeyPhases, models.DefaultPhases),
		Stations: NewCollection(kv, KeyStations, models.DefaultStations),
		Reports:  NewCollection[models.Report](kv, KeyReports, nil),
		Logs:     NewCollection[models.ActionLog](kv, KeyActionLogs, nil),
		kv:       kv,
	}
}

// Init seeds every collection whose key is absent. Existing data, users
// included, is left untouched. It returns the keys that were seeded.
func (r *Repository) Init(ctx context.Context) ([]string, error) {
	type seeder interface {
		EnsureSeeded(context.Context) (bool, error)
		Key() string
	}
	var seeded []string
	for _, c := range []seeder{r.Users, r.Phases, r.Stations, r.Projects, r.Reports, r.Logs} {
		ok, err := c.EnsureSeeded(ctx)
		if err != nil {
			return seeded, err
		}
		if ok {
			seeded = append(seeded, c.Key())
		}
	}
	return seeded, nil
}

// CurrentUser returns the user in the session slot, or nil when empty.
func (r *Repository) CurrentUser(ctx context.Context) (*models.User, error) {
	raw, err := r.kv.Get(ctx, KeyCurrentUser)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", KeyCurrentUser, err)
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyCurrentUser, err)
	}
	return &u, nil
}

// SetCurrentUser fills the session slot, or clears it when u is nil.
func (r *Repository) SetCurrentUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return r.kv.Delete(ctx, KeyCurrentUser)
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyCurrentUser, err)
	}
	return r.kv.Put(ctx, KeyCurrentUser, raw)
}
