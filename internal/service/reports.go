package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/activity"
	"github.com/thunderdz19/sero-est/internal/metrics"
	"github.com/thunderdz19/sero-est/internal/models"
	"go.uber.org/zap"
)

// RecentLimit caps the dashboard and per-user recent lists.
const RecentLimit = 5

// Archiver stores the document generated for a newly submitted report.
type Archiver interface {
	Archive(ctx context.Context, r models.Report) error
}

// ReportDraft is what a topographe fills in.
type ReportDraft struct {
	Date            string               `json:"date"`
	ProjetID        string               `json:"projetId"`
	PhaseID         string               `json:"phaseId"`
	PhaseAutre      string               `json:"phaseAutre"`
	TypeStructure   models.StructureType `json:"typeStructure"`
	NumeroStructure string               `json:"numeroStructure"`
	Taches          []string             `json:"taches"`
	StationID       string               `json:"stationId"`
	Remarques       string               `json:"remarques"`
}

// ReportFilter narrows List. Zero fields do not filter.
type ReportFilter struct {
	Search   string
	ProjetID string
	UserID   string
	Statut   models.ReportStatus
	DateFrom string
	DateTo   string
}

// Dashboard is the administrative overview.
type Dashboard struct {
	Stats  models.DashboardStats `json:"stats"`
	Recent []models.Report       `json:"recent"`
}

// UserSummary is the topographe's own counters.
type UserSummary struct {
	TotalRapports int `json:"totalRapports"`
	ProjetsActifs int `json:"projetsActifs"`
	CeMois        int `json:"ceMois"`
}

type ReportService struct {
	*base
	archiver Archiver
}

// NewReportService returns a ReportService. archiver may be nil.
func NewReportService(d Deps, archiver Archiver) *ReportService {
	return &ReportService{base: newBase(d), archiver: archiver}
}

// Submit validates the draft, stores a new report and archives its document.
func (s *ReportService) Submit(ctx context.Context, sess access.Session, d ReportDraft) (models.Report, error) {
	if err := s.authorize(sess, access.PermSubmitReport); err != nil {
		return models.Report{}, err
	}
	if err := validateDraft(d); err != nil {
		return models.Report{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.data.Projects.All(ctx)
	if err != nil {
		return models.Report{}, err
	}
	i := indexOf(projects, func(p models.Project) bool { return p.ID == d.ProjetID })
	if i < 0 {
		return models.Report{}, fmt.Errorf("projet %q: %w", d.ProjetID, ErrNotFound)
	}
	project := projects[i]
	if !project.Selectable() {
		return models.Report{}, fmt.Errorf("projet %q is %s: %w", project.Nom, project.Statut, ErrNotSelectable)
	}

	phases, err := s.data.Phases.All(ctx)
	if err != nil {
		return models.Report{}, err
	}
	i = indexOf(phases, func(p models.Phase) bool { return p.ID == d.PhaseID })
	if i < 0 {
		return models.Report{}, fmt.Errorf("phase %q: %w", d.PhaseID, ErrNotFound)
	}
	phase := phases[i]
	phaseAutre := strings.TrimSpace(d.PhaseAutre)
	if phase.Type == models.PhaseOther && phaseAutre == "" {
		return models.Report{}, invalid("phaseAutre", "required when the phase is Autre")
	}
	if phase.Type != models.PhaseOther {
		phaseAutre = ""
	}

	stations, err := s.data.Stations.All(ctx)
	if err != nil {
		return models.Report{}, err
	}
	i = indexOf(stations, func(st models.Station) bool { return st.ID == d.StationID })
	if i < 0 {
		return models.Report{}, fmt.Errorf("station %q: %w", d.StationID, ErrNotFound)
	}
	station := stations[i]
	if !station.Selectable() {
		return models.Report{}, fmt.Errorf("station %q is %s: %w", station.Nom, station.Statut, ErrNotSelectable)
	}

	taches := append([]string{}, d.Taches...)
	r := models.Report{
		ID:              s.newID(),
		UserID:          sess.User.ID,
		UserName:        sess.User.Nom,
		Date:            d.Date,
		DateCreation:    s.now(),
		ProjetID:        project.ID,
		ProjetNom:       project.Nom,
		PhaseID:         phase.ID,
		PhaseNom:        phase.Nom,
		PhaseAutre:      phaseAutre,
		TypeStructure:   d.TypeStructure,
		NumeroStructure: strings.TrimSpace(d.NumeroStructure),
		Taches:          taches,
		StationID:       station.ID,
		StationNom:      station.Nom,
		Remarques:       d.Remarques,
		Statut:          models.StatusRecorded,
	}

	reports, err := s.data.Reports.All(ctx)
	if err != nil {
		return models.Report{}, err
	}
	if err := s.data.Reports.Save(ctx, append(reports, r)); err != nil {
		return models.Report{}, err
	}
	metrics.ReportsSubmitted.Inc()

	s.record(ctx, sess, models.EntityReport, models.OpCreate,
		activity.ActionCreateReport, "Rapport créé pour le projet "+r.ProjetNom)

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, r); err != nil {
			metrics.ExportFailures.Inc()
			s.logger.Error("failed to archive report document",
				zap.String("report", r.ID), zap.Error(err))
		}
	}
	return r, nil
}

func validateDraft(d ReportDraft) error {
	if _, err := time.Parse(models.DateLayout, d.Date); err != nil {
		return invalid("date", "expected YYYY-MM-DD")
	}
	if !d.TypeStructure.Valid() {
		return invalid("typeStructure", fmt.Sprintf("unknown structure type %q", d.TypeStructure))
	}
	if strings.TrimSpace(d.NumeroStructure) == "" {
		return invalid("numeroStructure", "required")
	}
	for _, t := range d.Taches {
		if !models.IsTask(t) {
			return invalid("taches", fmt.Sprintf("unknown task %q", t))
		}
	}
	return nil
}

// UpdateStatus moves a report to statut. Any status may follow any other.
func (s *ReportService) UpdateStatus(ctx context.Context, sess access.Session, id string, statut models.ReportStatus) (models.Report, error) {
	if err := s.authorize(sess, access.PermUpdateReportStatus); err != nil {
		return models.Report{}, err
	}
	if !statut.Valid() {
		return models.Report{}, invalid("statut", fmt.Sprintf("unknown status %q", statut))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := s.data.Reports.All(ctx)
	if err != nil {
		return models.Report{}, err
	}
	i := indexOf(reports, func(r models.Report) bool { return r.ID == id })
	if i < 0 {
		return models.Report{}, fmt.Errorf("rapport %q: %w", id, ErrNotFound)
	}
	reports[i].Statut = statut
	if err := s.data.Reports.Save(ctx, reports); err != nil {
		return models.Report{}, err
	}
	metrics.StatusUpdates.WithLabelValues(string(statut)).Inc()

	updated := reports[i]
	s.record(ctx, sess, models.EntityReport, models.OpUpdate, activity.ActionReportStatus,
		fmt.Sprintf("Statut changé vers %q pour le rapport %s", string(statut), updated.ProjetNom))
	return updated, nil
}

// Dashboard computes the overview from current state.
func (s *ReportService) Dashboard(ctx context.Context, sess access.Session) (Dashboard, error) {
	if err := s.authorize(sess, access.PermViewDashboard); err != nil {
		return Dashboard{}, err
	}
	reports, err := s.data.Reports.All(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	projects, err := s.data.Projects.All(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	users, err := s.data.Users.All(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	today := s.now().Format(models.DateLayout)
	var st models.DashboardStats
	st.TotalRapports = len(reports)
	for _, r := range reports {
		if r.Date == today {
			st.RapportsAujourdhui++
		}
	}
	st.ProjetsActifs = countActiveProjects(projects)
	for _, u := range users {
		if u.Role == models.RoleTopographe && u.Actif {
			st.UtilisateursActifs++
		}
	}
	return Dashboard{Stats: st, Recent: limit(newestFirst(reports), RecentLimit)}, nil
}

// List returns the reports matching f, newest first.
func (s *ReportService) List(ctx context.Context, sess access.Session, f ReportFilter) ([]models.Report, error) {
	if err := s.authorize(sess, access.PermViewReports); err != nil {
		return nil, err
	}
	for field, v := range map[string]string{"from": f.DateFrom, "to": f.DateTo} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, v); err != nil {
			return nil, invalid(field, "expected YYYY-MM-DD")
		}
	}
	reports, err := s.data.Reports.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		if f.matches(r) {
			out = append(out, r)
		}
	}
	return newestFirst(out), nil
}

func (f ReportFilter) matches(r models.Report) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hit := false
		for _, field := range []string{r.UserName, r.ProjetNom, r.PhaseNom, r.Remarques} {
			if strings.Contains(strings.ToLower(field), q) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.ProjetID != "" && r.ProjetID != f.ProjetID {
		return false
	}
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.Statut != "" && r.Statut != f.Statut {
		return false
	}
	// Dates share one layout so string order is calendar order.
	if f.DateFrom != "" && r.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && r.Date > f.DateTo {
		return false
	}
	return true
}

// RecentForUser returns the session user's latest reports.
func (s *ReportService) RecentForUser(ctx context.Context, sess access.Session) ([]models.Report, error) {
	mine, err := s.MyReports(ctx, sess)
	if err != nil {
		return nil, err
	}
	return limit(mine, RecentLimit), nil
}

// MyReports returns every report of the session user, newest first.
func (s *ReportService) MyReports(ctx context.Context, sess access.Session) ([]models.Report, error) {
	if err := s.authorize(sess, access.PermViewOwnReports); err != nil {
		return nil, err
	}
	reports, err := s.data.Reports.All(ctx)
	if err != nil {
		return nil, err
	}
	mine := make([]models.Report, 0)
	for _, r := range reports {
		if r.UserID == sess.User.ID {
			mine = append(mine, r)
		}
	}
	return newestFirst(mine), nil
}

// UserSummary counts the session user's reports and the active projects.
func (s *ReportService) UserSummary(ctx context.Context, sess access.Session) (UserSummary, error) {
	mine, err := s.MyReports(ctx, sess)
	if err != nil {
		return UserSummary{}, err
	}
	projects, err := s.data.Projects.All(ctx)
	if err != nil {
		return UserSummary{}, err
	}
	month := s.now().Format("2006-01")
	sum := UserSummary{TotalRapports: len(mine), ProjetsActifs: countActiveProjects(projects)}
	for _, r := range mine {
		if strings.HasPrefix(r.Date, month) {
			sum.CeMois++
		}
	}
	return sum, nil
}

func countActiveProjects(projects []models.Project) int {
	n := 0
	for _, p := range projects {
		if p.Statut == models.ProjectActive {
			n++
		}
	}
	return n
}

func newestFirst(reports []models.Report) []models.Report {
	out := append([]models.Report{}, reports...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateCreation.After(out[j].DateCreation)
	})
	return out
}

func limit(reports []models.Report, n int) []models.Report {
	if len(reports) > n {
		return reports[:n]
	}
	return reports
}
