package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/thunderdz19/sero-est/internal/service"
)

func TestSessionStore_LoadMissingFile(t *testing.T) {
	s := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	sess, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, s.Current())
}

func TestSessionStore_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewSessionStore(path)
	want := Session{Token: "tok", User: models.User{ID: "topo-2", Nom: "Bachir", Role: models.RoleTopographe}}
	require.NoError(t, s.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	other := NewSessionStore(path)
	got, err := other.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, "topo-2", got.User.ID)

	require.NoError(t, other.Clear())
	assert.Nil(t, other.Current())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, other.Clear())
}

func TestSessionStore_RejectsEmptyToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token":""}`), 0o600))
	_, err := NewSessionStore(path).Load()
	assert.Error(t, err)
}

// fakeServer answers the client endpoints with canned data.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["nom"] != "Bachir" || req["motDePasse"] != "bachir123" {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-1",
			"user":  models.User{ID: "topo-2", Nom: "Bachir", Role: models.RoleTopographe},
			"tabs":  []string{},
		})
	})
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				http.Error(w, "invalid or expired session", http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("POST /api/logout", authed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET /api/projects", authed(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.Project{{ID: "p1", Nom: "Viaduc", Statut: models.ProjectActive}})
	}))
	mux.HandleFunc("GET /api/projects/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "p1" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(models.Project{ID: "p1", Nom: "Viaduc"})
	}))
	mux.HandleFunc("POST /api/reports", authed(func(w http.ResponseWriter, r *http.Request) {
		var d service.ReportDraft
		_ = json.NewDecoder(r.Body).Decode(&d)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Report{ID: "r1", ProjetID: d.ProjetID, Statut: models.StatusRecorded})
	}))
	mux.HandleFunc("GET /api/reports/mine/summary", authed(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(service.UserSummary{TotalRapports: 4, ProjetsActifs: 2, CeMois: 1})
	}))
	mux.HandleFunc("GET /api/reports/mine/export", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "pdf" {
			http.Error(w, "unknown export format", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename=SERO-EST_Rapports_10-03-2026.pdf`)
		_, _ = w.Write([]byte("%PDF-1.3"))
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_LoginStoresSession(t *testing.T) {
	srv := fakeServer(t)
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	c := New(srv.URL+"/", nil, store)
	ctx := context.Background()

	_, err := c.Projects(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = c.Login(ctx, "Bachir", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid credentials", apiErr.Message)

	sess, err := c.Login(ctx, "Bachir", "bachir123")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, "tok-1", store.Current().Token)

	projects, err := c.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Viaduc", projects[0].Nom)

	_, err = c.Project(ctx, "p9")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	require.NoError(t, c.Logout(ctx))
	assert.Nil(t, store.Current())
}

func TestClient_ReportCalls(t *testing.T) {
	srv := fakeServer(t)
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(Session{Token: "tok-1"}))
	c := New(srv.URL, srv.Client(), store)
	ctx := context.Background()

	rep, err := c.Submit(ctx, service.ReportDraft{ProjetID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "p1", rep.ProjetID)

	sum, err := c.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.UserSummary{TotalRapports: 4, ProjetsActifs: 2, CeMois: 1}, sum)

	name, data, err := c.ExportMine(ctx, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "SERO-EST_Rapports_10-03-2026.pdf", name)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	_, _, err = c.ExportMine(ctx, "csv")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestClient_LogoutClearsEvenOnServerError(t *testing.T) {
	srv := fakeServer(t)
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(Session{Token: "expired"}))
	c := New(srv.URL, nil, store)

	err := c.Logout(context.Background())
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Nil(t, store.Current())
}

func newPrompter(input string) (*Prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Prompter{In: bufio.NewScanner(strings.NewReader(input)), Out: out}, out
}

func TestPrompter_Credentials(t *testing.T) {
	p, _ := newPrompter("Bachir\nbachir123\n")
	nom, pw, err := p.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "Bachir", nom)
	assert.Equal(t, "bachir123", pw)

	p, _ = newPrompter("Bachir\n")
	secretCalls := 0
	p.ReadSecret = func() (string, error) { secretCalls++; return "hidden", nil }
	_, pw, err = p.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "hidden", pw)
	assert.Equal(t, 1, secretCalls)

	p, _ = newPrompter("")
	_, _, err = p.Credentials()
	assert.ErrorIs(t, err, ErrAborted)
}

func TestPrompter_Report(t *testing.T) {
	form := ReportForm{
		Projects: []models.Project{{ID: "p1", Nom: "Viaduc"}, {ID: "p2", Nom: "Echangeur"}},
		Phases:   models.DefaultPhases(),
		Stations: models.DefaultStations(),
		Tasks:    models.Tasks,
		Today:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	// empty date, project 2, a bad answer then the "Autre" phase, culée,
	// structure C1, tasks 2 and 3 with a repeat, station 3, remarks.
	input := strings.Join([]string{"", "2", "42", "8", "Ferraillage", "2", "C1", "2,3,2", "3", "RAS"}, "\n") + "\n"
	p, out := newPrompter(input)

	d, err := p.Report(form)
	require.NoError(t, err)
	assert.Equal(t, service.ReportDraft{
		Date:            "2026-03-10",
		ProjetID:        "p2",
		PhaseID:         "8",
		PhaseAutre:      "Ferraillage",
		TypeStructure:   models.StructureCulee,
		NumeroStructure: "C1",
		Taches:          []string{"Implantation", "Contrôle"},
		StationID:       "3",
		Remarques:       "RAS",
	}, d)
	assert.Contains(t, out.String(), "Choose a number between 1 and 8")
}

func TestPrompter_ReportWithoutProjects(t *testing.T) {
	p, _ := newPrompter("2026-03-10\n")
	_, err := p.Report(ReportForm{Today: time.Now()})
	assert.Error(t, err)
}
