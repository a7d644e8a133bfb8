package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/activity"
	"github.com/thunderdz19/sero-est/internal/auth"
	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/thunderdz19/sero-est/internal/repository"
	"github.com/thunderdz19/sero-est/internal/service"
	"github.com/thunderdz19/sero-est/internal/store"
)

// slowKV widens the window between reading and rewriting a collection, the
// way a network round trip to Postgres does.
type slowKV struct {
	store.KV
	delay time.Duration
}

func (s slowKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.KV.Get(ctx, key)
	time.Sleep(s.delay)
	return v, err
}

func TestConcurrentMutationsKeepEveryLogEntry(t *testing.T) {
	ctx := context.Background()
	now := func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	repo := repository.New(slowKV{KV: store.NewMemory(), delay: time.Millisecond}, now)
	_, err := repo.Init(ctx)
	require.NoError(t, err)

	deps := service.Deps{
		Data:   service.FromRepository(repo),
		Policy: access.NewPolicy("Akram"),
		Log:    activity.NewRecorder(repo.Logs, now, nil),
		Now:    now,
	}
	authSvc := service.NewAuthService(deps,
		auth.NewTokenManager([]byte("test-secret"), time.Hour, now), auth.NewRevocations(), repo)
	settings := service.NewSettingsService(deps)
	users := service.NewUserService(deps)

	seeded, err := repo.Users.All(ctx)
	require.NoError(t, err)
	var admin access.Session
	for _, u := range seeded {
		if u.ID == "admin-1" {
			admin = access.Session{User: u}
		}
	}
	require.NotEmpty(t, admin.User.ID)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, 3*n)
	for i := 0; i < n; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := authSvc.Login(ctx, "Bachir", "bachir123")
			errs <- err
		}()
		go func(i int) {
			defer wg.Done()
			_, err := settings.CreateStation(ctx, admin, service.StationDraft{
				Nom: fmt.Sprintf("TS %d", 100+i), Modele: "Station Totale", Numero: fmt.Sprintf("TS%d", 100+i),
			})
			errs <- err
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := users.Create(ctx, admin, service.UserDraft{
				Nom: fmt.Sprintf("Topo %d", i), MotDePasse: "x", Role: models.RoleTopographe,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stations, err := repo.Stations.All(ctx)
	require.NoError(t, err)
	assert.Len(t, stations, len(models.DefaultStations())+n)

	allUsers, err := repo.Users.All(ctx)
	require.NoError(t, err)
	assert.Len(t, allUsers, len(seeded)+n)

	logs, err := repo.Logs.All(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 3*n, "every mutation keeps exactly one log entry")

	byCategory := map[models.Category]int{}
	for _, e := range logs {
		byCategory[e.Category]++
	}
	assert.Equal(t, n, byCategory[models.Category{Entity: models.EntitySession, Operation: models.OpLogin}])
	assert.Equal(t, n, byCategory[models.Category{Entity: models.EntityStation, Operation: models.OpCreate}])
	assert.Equal(t, n, byCategory[models.Category{Entity: models.EntityUser, Operation: models.OpCreate}])
}
