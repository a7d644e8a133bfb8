package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/export"
	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/thunderdz19/sero-est/internal/service"
)

// ReportService defines the report workflow required by ReportHandler.
type ReportService interface {
	Submit(ctx context.Context, sess access.Session, d service.ReportDraft) (models.Report, error)
	UpdateStatus(ctx context.Context, sess access.Session, id string, statut models.ReportStatus) (models.Report, error)
	Dashboard(ctx context.Context, sess access.Session) (service.Dashboard, error)
	List(ctx context.Context, sess access.Session, f service.ReportFilter) ([]models.Report, error)
	RecentForUser(ctx context.Context, sess access.Session) ([]models.Report, error)
	MyReports(ctx context.Context, sess access.Session) ([]models.Report, error)
	UserSummary(ctx context.Context, sess access.Session) (service.UserSummary, error)
}

// ReportHandler serves report submission, review and export.
type ReportHandler struct {
	ReportService ReportService
	// Now stamps export documents and filenames; nil means time.Now.
	Now func() time.Time
}

func (h *ReportHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var d service.ReportDraft
	if !decodeJSON(w, r, &d) {
		return
	}
	rep, err := h.ReportService.Submit(r.Context(), sessionOf(r), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

// StatusRequest is the body of PATCH /api/reports/{id}/status.
type StatusRequest struct {
	Statut models.ReportStatus `json:"statut"`
}

func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rep, err := h.ReportService.UpdateStatus(r.Context(), sessionOf(r), chi.URLParam(r, "id"), req.Statut)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.ReportService.Dashboard(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func filterFrom(r *http.Request) service.ReportFilter {
	q := r.URL.Query()
	return service.ReportFilter{
		Search:   q.Get("q"),
		ProjetID: q.Get("projetId"),
		UserID:   q.Get("userId"),
		Statut:   models.ReportStatus(q.Get("statut")),
		DateFrom: q.Get("from"),
		DateTo:   q.Get("to"),
	}
}

// List handles GET /api/reports with the q, projetId, userId, statut, from
// and to query parameters.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.ReportService.List(r.Context(), sessionOf(r), filterFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// Export renders the filtered list in the requested format.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	reports, err := h.ReportService.List(r.Context(), sessionOf(r), filterFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	h.render(w, r, reports)
}

func (h *ReportHandler) Mine(w http.ResponseWriter, r *http.Request) {
	reports, err := h.ReportService.MyReports(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *ReportHandler) MineRecent(w http.ResponseWriter, r *http.Request) {
	reports, err := h.ReportService.RecentForUser(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *ReportHandler) MineSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.ReportService.UserSummary(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *ReportHandler) MineExport(w http.ResponseWriter, r *http.Request) {
	reports, err := h.ReportService.MyReports(r.Context(), sessionOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	h.render(w, r, reports)
}

func (h *ReportHandler) render(w http.ResponseWriter, r *http.Request, reports []models.Report) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	now := h.now()
	data, err := export.Render(format, reports, now)
	if err != nil {
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	writeFile(w, export.DefaultFilename(format, now), format.ContentType(), data)
}
