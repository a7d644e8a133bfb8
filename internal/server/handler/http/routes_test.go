package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/activity"
	"github.com/thunderdz19/sero-est/internal/auth"
	"github.com/thunderdz19/sero-est/internal/export"
	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/thunderdz19/sero-est/internal/repository"
	"github.com/thunderdz19/sero-est/internal/service"
	"github.com/thunderdz19/sero-est/internal/store"
	"go.uber.org/zap"
)

type testAPI struct {
	handler http.Handler
	repo    *repository.Repository
	fs      afero.Fs
}

// newTestAPI wires the real services over an in-memory store.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	repo := repository.New(store.NewMemory(), now)
	_, err := repo.Init(context.Background())
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	recorder := activity.NewRecorder(repo.Logs, now, nil)
	deps := service.Deps{
		Data:   service.FromRepository(repo),
		Policy: access.NewPolicy(access.DefaultMainAdmin),
		Log:    recorder,
		Now:    now,
	}
	authSvc := service.NewAuthService(deps,
		auth.NewTokenManager([]byte("test-secret"), time.Hour, time.Now),
		auth.NewRevocations(), repo)
	projects := service.NewProjectService(deps)
	settings := service.NewSettingsService(deps)
	h := Handlers{
		Auth:    &AuthHandler{AuthService: authSvc},
		Reports: &ReportHandler{ReportService: service.NewReportService(deps, &export.Archiver{Sink: export.NewFSSink(fs, "exports"), Now: now}), Now: now},
		Catalog: &CatalogHandler{ProjectService: projects, SettingsService: settings},
		Admin: &AdminHandler{
			UserService:     service.NewUserService(deps),
			ProjectService:  projects,
			SettingsService: settings,
			LogService:      service.NewLogService(deps.Policy, recorder),
		},
	}
	return &testAPI{
		handler: NewRouter(h, authSvc, []string{"*"}, zap.NewNop()),
		repo:    repo,
		fs:      fs,
	}
}

func (a *testAPI) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(t *testing.T, nom, password string) service.LoginResult {
	t.Helper()
	rec := a.do(t, "POST", "/api/login", "", `{"nom":"`+nom+`","motDePasse":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res service.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)
	assert.Equal(t, http.StatusOK, api.do(t, "GET", "/health", "", "").Code)

	rec := api.do(t, "GET", "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_LoginAndSession(t *testing.T) {
	api := newTestAPI(t)

	res := api.login(t, "  akram ", "akram2025")
	assert.Equal(t, "admin-1", res.User.ID)
	assert.True(t, res.MainAdmin)
	assert.Len(t, res.Tabs, 6)

	rec := api.do(t, "GET", "/api/me", res.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me service.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "admin-1", me.User.ID)

	cur, err := api.repo.CurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, "admin-1", cur.ID)

	assert.Equal(t, http.StatusNoContent, api.do(t, "POST", "/api/logout", res.Token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(t, "GET", "/api/me", res.Token, "").Code)

	cur, err = api.repo.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestRouter_ProtectedRoutesNeedToken(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/api/me", "/api/projects", "/api/reports/mine", "/api/users", "/api/logs", "/api/backup"} {
		assert.Equal(t, http.StatusUnauthorized, api.do(t, "GET", path, "", "").Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized, api.do(t, "GET", "/api/me", "not-a-jwt", "").Code)
}

func TestRouter_LoginFailuresLookAlike(t *testing.T) {
	api := newTestAPI(t)
	_, err := service.NewUserService(service.Deps{Data: service.FromRepository(api.repo), Policy: access.NewPolicy("")}).
		Create(context.Background(), access.Session{User: models.User{ID: "admin-1", Nom: "Akram", Role: models.RoleAdmin, Actif: true}},
			service.UserDraft{Nom: "Karim", MotDePasse: "karim1", Role: models.RoleTopographe, Actif: new(bool)})
	require.NoError(t, err)

	for _, body := range []string{
		`{"nom":"Nobody","motDePasse":"x"}`,
		`{"nom":"Bachir","motDePasse":"wrong"}`,
		`{"nom":"Karim","motDePasse":"karim1"}`,
	} {
		rec := api.do(t, "POST", "/api/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, body)
		assert.Equal(t, "invalid credentials\n", rec.Body.String(), body)
	}
}

func TestRouter_LoginRateLimited(t *testing.T) {
	api := newTestAPI(t)
	var last int
	for i := 0; i <= LoginRateLimit; i++ {
		last = api.do(t, "POST", "/api/login", "", `{"nom":"Bachir","motDePasse":"wrong"}`).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRouter_RoleGates(t *testing.T) {
	api := newTestAPI(t)
	topo := api.login(t, "Bachir", "bachir123")
	assert.Empty(t, topo.Tabs)

	for _, tc := range []struct{ method, path, body string }{
		{"GET", "/api/dashboard", ""},
		{"GET", "/api/reports", ""},
		{"GET", "/api/reports/export?format=pdf", ""},
		{"PATCH", "/api/reports/r1/status", `{"statut":"imprimee"}`},
		{"GET", "/api/users", ""},
		{"POST", "/api/projects", `{"nom":"P","dateDebut":"2026-01-01"}`},
		{"POST", "/api/stations", `{"nom":"TS 15","modele":"m","numero":"n","statut":"disponible"}`},
		{"POST", "/api/phases/reset", ""},
		{"GET", "/api/backup", ""},
		{"GET", "/api/logs", ""},
	} {
		rec := api.do(t, tc.method, tc.path, topo.Token, tc.body)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}

	admin := api.login(t, "Akram", "akram2025")
	rec := api.do(t, "POST", "/api/users", admin.Token, `{"nom":"Nadia","motDePasse":"nadia1","role":"responsable"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := api.login(t, "Nadia", "nadia1")
	assert.False(t, resp.MainAdmin)
	assert.Equal(t, http.StatusOK, api.do(t, "GET", "/api/dashboard", resp.Token, "").Code)
	assert.Equal(t, http.StatusForbidden, api.do(t, "GET", "/api/users", resp.Token, "").Code)
	assert.Equal(t, http.StatusForbidden, api.do(t, "GET", "/api/logs", resp.Token, "").Code)
}

func TestRouter_ReportWorkflow(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "Akram", "akram2025")

	rec := api.do(t, "POST", "/api/projects", admin.Token, `{"nom":"Viaduc Oued","dateDebut":"2026-01-05"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var project models.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &project))

	topo := api.login(t, "Bachir", "bachir123")
	rec = api.do(t, "GET", "/api/stations?selectable=true", topo.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	draft := `{"date":"2026-03-09","projetId":"` + project.ID + `","phaseId":"8","phaseAutre":"Ferraillage",` +
		`"typeStructure":"pile","numeroStructure":"P3","taches":["Implantation"],"stationId":"1"}`
	rec = api.do(t, "POST", "/api/reports", topo.Token, draft)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, models.StatusRecorded, report.Statut)

	archived, err := afero.Exists(api.fs, "exports/"+export.ReportFilename(report))
	require.NoError(t, err)
	assert.True(t, archived)

	rec = api.do(t, "GET", "/api/reports/mine/summary", topo.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalRapports":1,"projetsActifs":1,"ceMois":1}`, rec.Body.String())

	rec = api.do(t, "PATCH", "/api/reports/"+report.ID+"/status", admin.Token, `{"statut":"envoyee_bcs"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, api.do(t, "PATCH", "/api/reports/missing/status", admin.Token, `{"statut":"imprimee"}`).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, "PATCH", "/api/reports/"+report.ID+"/status", admin.Token, `{"statut":"perdu"}`).Code)

	rec = api.do(t, "GET", "/api/reports?statut=envoyee_bcs", admin.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, report.ID, listed[0].ID)

	rec = api.do(t, "GET", "/api/reports/export?format=pdf", admin.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypePDF, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = api.do(t, "GET", "/api/logs", admin.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var feed []models.ActionLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.NotEmpty(t, feed)
	assert.Equal(t, activity.ActionReportStatus, feed[0].Action)

	body := api.do(t, "GET", "/metrics", "", "").Body.String()
	assert.Contains(t, body, "sero_reports_submitted_total")
	assert.Contains(t, body, `sero_report_status_updates_total{statut="envoyee_bcs"}`)
	assert.Contains(t, body, `sero_login_attempts_total{result="success"}`)
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest("POST", "/api/login", strings.NewReader("nom=Akram"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
