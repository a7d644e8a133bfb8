package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/thunderdz19/sero-est/internal/service"
)

// UserService defines the account management operations.
type UserService interface {
	List(ctx context.Context, sess access.Session) ([]models.User, error)
	Create(ctx context.Context, sess access.Session, d service.UserDraft) (models.User, error)
	Update(ctx context.Context, sess access.Session, id string, p service.UserPatch) (models.User, error)
	Delete(ctx context.Context, sess access.Session, id string) error
}

// LogService reads the activity feed.
type LogService interface {
	Feed(ctx context.Context, sess access.Session) ([]models.ActionLog, error)
}

// AdminHandler serves the administration tabs.
type AdminHandler struct {
	UserService     UserService
	ProjectService  ProjectService
	SettingsService SettingsService
	LogService      LogService
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.List(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var d service.UserDraft
	if !decodeJSON(w, r, &d) {
		return
	}
	u, err := h.UserService.Create(r.Context(), sessionOf(r), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var p service.UserPatch
	if !decodeJSON(w, r, &p) {
		return
	}
	u, err := h.UserService.Update(r.Context(), sessionOf(r), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.UserService.Delete(r.Context(), sessionOf(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var d service.ProjectDraft
	if !decodeJSON(w, r, &d) {
		return
	}
	p, err := h.ProjectService.Create(r.Context(), sessionOf(r), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var patch service.ProjectPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	p, err := h.ProjectService.Update(r.Context(), sessionOf(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.ProjectService.Delete(r.Context(), sessionOf(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) AddDriveFile(w http.ResponseWriter, r *http.Request) {
	var d service.DriveFileDraft
	if !decodeJSON(w, r, &d) {
		return
	}
	f, err := h.ProjectService.AddDriveFile(r.Context(), sessionOf(r), chi.URLParam(r, "id"), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *AdminHandler) RemoveDriveFile(w http.ResponseWriter, r *http.Request) {
	p, err := h.ProjectService.RemoveDriveFile(r.Context(), sessionOf(r), chi.URLParam(r, "id"), chi.URLParam(r, "fileId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var d service.StationDraft
	if !decodeJSON(w, r, &d) {
		return
	}
	st, err := h.SettingsService.CreateStation(r.Context(), sessionOf(r), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *AdminHandler) UpdateStation(w http.ResponseWriter, r *http.Request) {
	var d service.StationDraft
	if !decodeJSON(w, r, &d) {
		return
	}
	st, err := h.SettingsService.UpdateStation(r.Context(), sessionOf(r), chi.URLParam(r, "id"), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *AdminHandler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	if err := h.SettingsService.DeleteStation(r.Context(), sessionOf(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) CreatePhase(w http.ResponseWriter, r *http.Request) {
	var d service.PhaseDraft
	if !decodeJSON(w, r, &d) {
		return
	}
	ph, err := h.SettingsService.CreatePhase(r.Context(), sessionOf(r), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ph)
}

func (h *AdminHandler) UpdatePhase(w http.ResponseWriter, r *http.Request) {
	var d service.PhaseDraft
	if !decodeJSON(w, r, &d) {
		return
	}
	ph, err := h.SettingsService.UpdatePhase(r.Context(), sessionOf(r), chi.URLParam(r, "id"), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ph)
}

func (h *AdminHandler) DeletePhase(w http.ResponseWriter, r *http.Request) {
	if err := h.SettingsService.DeletePhase(r.Context(), sessionOf(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPhases removes every phase.
func (h *AdminHandler) ResetPhases(w http.ResponseWriter, r *http.Request) {
	if err := h.SettingsService.ResetPhases(r.Context(), sessionOf(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestorePhases reinstates the default phase list and returns it.
func (h *AdminHandler) RestorePhases(w http.ResponseWriter, r *http.Request) {
	phases, err := h.SettingsService.RestorePhases(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, phases)
}

// ExportBackup downloads sero-est-backup-YYYY-MM-DD.json.
func (h *AdminHandler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	b, err := h.SettingsService.ExportBackup(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeFile(w, "sero-est-backup-"+b.Timestamp.Format(models.DateLayout)+".json", "application/json", data)
}

// ImportBackup replaces stations and phases from an uploaded backup.
func (h *AdminHandler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.SettingsService.ImportBackup(r.Context(), sessionOf(r), raw); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Logs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.LogService.Feed(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
