package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/activity"
	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/thunderdz19/sero-est/internal/repository"
	"github.com/thunderdz19/sero-est/internal/service"
	"github.com/thunderdz19/sero-est/internal/store"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type fixture struct {
	ctx   context.Context
	kv    *store.Memory
	repo  *repository.Repository
	clock *clock
	deps  service.Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		kv:    store.NewMemory(),
		clock: &clock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
	}
	f.repo = repository.New(f.kv, f.clock.Now)
	_, err := f.repo.Init(f.ctx)
	require.NoError(t, err)

	f.deps = service.Deps{
		Data:   service.FromRepository(f.repo),
		Policy: access.NewPolicy("Akram"),
		Log:    activity.NewRecorder(f.repo.Logs, f.clock.Now, sequence("log")),
		Now:    f.clock.Now,
		NewID:  sequence("id"),
	}
	return f
}

func (f *fixture) session(t *testing.T, id string) access.Session {
	t.Helper()
	users, err := f.repo.Users.All(f.ctx)
	require.NoError(t, err)
	for _, u := range users {
		if u.ID == id {
			return access.Session{User: u, TokenID: "tok-" + id}
		}
	}
	t.Fatalf("no user %q", id)
	return access.Session{}
}

func (f *fixture) mainAdmin(t *testing.T) access.Session { return f.session(t, "admin-1") }

func (f *fixture) seedProjects(t *testing.T, projects ...models.Project) {
	t.Helper()
	require.NoError(t, f.repo.Projects.Save(f.ctx, projects))
}

func (f *fixture) logs(t *testing.T) []models.ActionLog {
	t.Helper()
	entries, err := f.repo.Logs.All(f.ctx)
	require.NoError(t, err)
	return entries
}

func (f *fixture) addUser(t *testing.T, u models.User) access.Session {
	t.Helper()
	users, err := f.repo.Users.All(f.ctx)
	require.NoError(t, err)
	require.NoError(t, f.repo.Users.Save(f.ctx, append(users, u)))
	return access.Session{User: u}
}
