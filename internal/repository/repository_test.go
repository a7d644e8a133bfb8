package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/thunderdz19/sero-est/internal/store"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

func TestInit_SeedsAbsentCollections(t *testing.T) {
	ctx := context.Background()
	repo := New(store.NewMemory(), fixedNow)

	seeded, err := repo.Init(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{KeyUsers, KeyPhases, KeyStations, KeyProjects, KeyReports, KeyActionLogs}, seeded)

	phases, err := repo.Phases.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPhases(), phases)

	stations, err := repo.Stations.All(ctx)
	require.NoError(t, err)
	assert.Len(t, stations, 3)

	users, err := repo.Users.All(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 5)

	reports, err := repo.Reports.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestInit_KeepsEditedUsers(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	repo := New(kv, fixedNow)
	_, err := repo.Init(ctx)
	require.NoError(t, err)

	users, _ := repo.Users.All(ctx)
	users = append(users, models.User{ID: "u-new", Nom: "Nadia", Role: models.RoleTopographe, Actif: true})
	require.NoError(t, repo.Users.Save(ctx, users))

	restarted := New(kv, fixedNow)
	seeded, err := restarted.Init(ctx)
	require.NoError(t, err)
	assert.Empty(t, seeded)

	again, err := restarted.Users.All(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 6)
}

func TestCollection_AllReturnsSeedWhenAbsent(t *testing.T) {
	repo := New(store.NewMemory(), fixedNow)
	phases, err := repo.Phases.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, phases, 8)
}

func TestCollection_AppendPreservesOrder(t *testing.T) {
	ctx := context.Background()
	repo := New(store.NewMemory(), fixedNow)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Reports.Append(ctx, models.Report{ID: id}))
	}
	reports, err := repo.Reports.All(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, "a", reports[0].ID)
	assert.Equal(t, "c", reports[2].ID)
}

func TestCollection_SaveNilWritesEmptyArray(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	repo := New(kv, fixedNow)
	require.NoError(t, repo.Phases.Save(ctx, nil))

	raw, err := kv.Get(ctx, KeyPhases)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	phases, err := repo.Phases.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, phases)
}

func TestCollection_DecodeError(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Put(ctx, KeyReports, []byte(`{"not":"an array"}`)))
	_, err := New(kv, fixedNow).Reports.All(ctx)
	assert.Error(t, err)
}

func TestCurrentUserSlot(t *testing.T) {
	ctx := context.Background()
	repo := New(store.NewMemory(), fixedNow)

	u, err := repo.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, repo.SetCurrentUser(ctx, &models.User{ID: "topo-2", Nom: "Bachir"}))
	u, err = repo.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "topo-2", u.ID)

	require.NoError(t, repo.SetCurrentUser(ctx, nil))
	u, err = repo.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestCollection_OverPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer db.Close()
	repo := New(store.NewPostgres(db), fixedNow)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv WHERE key = $1`)).
		WithArgs(KeyStations).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).
			AddRow([]byte(`[{"id":"9","nom":"TS 16","modele":"m","numero":"n","statut":"maintenance"}]`)))

	stations, err := repo.Stations.All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stations) != 1 || stations[0].Statut != models.StationMaintenance {
		t.Errorf("unexpected stations: %+v", stations)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestEnsureSeeded_ProbeError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer db.Close()
	repo := New(store.NewPostgres(db), fixedNow)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv WHERE key = $1`)).
		WithArgs(KeyUsers).
		WillReturnError(errors.New("db down"))

	if _, err := repo.Init(context.Background()); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
