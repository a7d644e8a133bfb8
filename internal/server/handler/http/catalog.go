package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/thunderdz19/sero-est/internal/service"
)

// ProjectService defines the project operations used by the handlers.
type ProjectService interface {
	Browse(ctx context.Context, sess access.Session) ([]models.Project, error)
	Get(ctx context.Context, sess access.Session, id string) (models.Project, error)
	Create(ctx context.Context, sess access.Session, d service.ProjectDraft) (models.Project, error)
	Update(ctx context.Context, sess access.Session, id string, p service.ProjectPatch) (models.Project, error)
	Delete(ctx context.Context, sess access.Session, id string) error
	AddDriveFile(ctx context.Context, sess access.Session, projectID string, d service.DriveFileDraft) (models.DriveFile, error)
	RemoveDriveFile(ctx context.Context, sess access.Session, projectID, fileID string) (models.Project, error)
}

// SettingsService defines the station, phase and backup operations.
type SettingsService interface {
	Stations(ctx context.Context, sess access.Session, selectableOnly bool) ([]models.Station, error)
	Phases(ctx context.Context, sess access.Session) ([]models.Phase, error)
	CreateStation(ctx context.Context, sess access.Session, d service.StationDraft) (models.Station, error)
	UpdateStation(ctx context.Context, sess access.Session, id string, d service.StationDraft) (models.Station, error)
	DeleteStation(ctx context.Context, sess access.Session, id string) error
	CreatePhase(ctx context.Context, sess access.Session, d service.PhaseDraft) (models.Phase, error)
	UpdatePhase(ctx context.Context, sess access.Session, id string, d service.PhaseDraft) (models.Phase, error)
	DeletePhase(ctx context.Context, sess access.Session, id string) error
	ResetPhases(ctx context.Context, sess access.Session) error
	RestorePhases(ctx context.Context, sess access.Session) ([]models.Phase, error)
	ExportBackup(ctx context.Context, sess access.Session) (service.Backup, error)
	ImportBackup(ctx context.Context, sess access.Session, raw []byte) error
}

// CatalogHandler serves the read-only lists every role browses.
type CatalogHandler struct {
	ProjectService  ProjectService
	SettingsService SettingsService
}

func (h *CatalogHandler) Projects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.ProjectService.Browse(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *CatalogHandler) Project(w http.ResponseWriter, r *http.Request) {
	p, err := h.ProjectService.Get(r.Context(), sessionOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) Phases(w http.ResponseWriter, r *http.Request) {
	phases, err := h.SettingsService.Phases(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, phases)
}

// Stations handles GET /api/stations; ?selectable=true keeps available ones.
func (h *CatalogHandler) Stations(w http.ResponseWriter, r *http.Request) {
	selectable := false
	if v := r.URL.Query().Get("selectable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid selectable flag", http.StatusBadRequest)
			return
		}
		selectable = b
	}
	stations, err := h.SettingsService.Stations(r.Context(), sessionOf(r), selectable)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

func (h *CatalogHandler) Tasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.Tasks)
}
