package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/activity"
	"github.com/thunderdz19/sero-est/internal/models"
)

// StationDraft creates or fully replaces a station's fields.
type StationDraft struct {
	Nom    string               `json:"nom"`
	Modele string               `json:"modele"`
	Numero string               `json:"numero"`
	Statut models.StationStatus `json:"statut"`
}

// PhaseDraft creates or replaces a phase's fields.
type PhaseDraft struct {
	Nom  string           `json:"nom"`
	Type models.PhaseType `json:"type"`
}

// Backup is the exported station and phase configuration.
type Backup struct {
	Stations  []models.Station `json:"stations"`
	Phases    []models.Phase   `json:"phases"`
	Timestamp time.Time        `json:"timestamp"`
}

// SettingsService manages stations, phases and their backup.
type SettingsService struct {
	*base
}

func NewSettingsService(d Deps) *SettingsService {
	return &SettingsService{base: newBase(d)}
}

// Stations lists stations, optionally only the selectable ones.
func (s *SettingsService) Stations(ctx context.Context, sess access.Session, selectableOnly bool) ([]models.Station, error) {
	if err := s.authorize(sess, access.PermBrowseProjects); err != nil {
		return nil, err
	}
	stations, err := s.data.Stations.All(ctx)
	if err != nil || !selectableOnly {
		return stations, err
	}
	out := make([]models.Station, 0, len(stations))
	for _, st := range stations {
		if st.Selectable() {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *SettingsService) Phases(ctx context.Context, sess access.Session) ([]models.Phase, error) {
	if err := s.authorize(sess, access.PermBrowseProjects); err != nil {
		return nil, err
	}
	return s.data.Phases.All(ctx)
}

func (s *SettingsService) CreateStation(ctx context.Context, sess access.Session, d StationDraft) (models.Station, error) {
	if err := s.authorize(sess, access.PermManageSettings); err != nil {
		return models.Station{}, err
	}
	if d.Statut == "" {
		d.Statut = models.StationAvailable
	}
	st := models.Station{ID: s.newID(), Nom: strings.TrimSpace(d.Nom), Modele: d.Modele, Numero: d.Numero, Statut: d.Statut}
	if err := validateStation(st); err != nil {
		return models.Station{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stations, err := s.data.Stations.All(ctx)
	if err != nil {
		return models.Station{}, err
	}
	if err := s.data.Stations.Save(ctx, append(stations, st)); err != nil {
		return models.Station{}, err
	}
	s.record(ctx, sess, models.EntityStation, models.OpCreate, activity.ActionCreateStation,
		"Nouvelle station: "+st.Nom)
	return st, nil
}

func (s *SettingsService) UpdateStation(ctx context.Context, sess access.Session, id string, d StationDraft) (models.Station, error) {
	if err := s.authorize(sess, access.PermManageSettings); err != nil {
		return models.Station{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stations, err := s.data.Stations.All(ctx)
	if err != nil {
		return models.Station{}, err
	}
	i := indexOf(stations, func(st models.Station) bool { return st.ID == id })
	if i < 0 {
		return models.Station{}, fmt.Errorf("station %q: %w", id, ErrNotFound)
	}
	st := models.Station{ID: id, Nom: strings.TrimSpace(d.Nom), Modele: d.Modele, Numero: d.Numero, Statut: d.Statut}
	if err := validateStation(st); err != nil {
		return models.Station{}, err
	}
	stations[i] = st
	if err := s.data.Stations.Save(ctx, stations); err != nil {
		return models.Station{}, err
	}
	s.record(ctx, sess, models.EntityStation, models.OpUpdate, activity.ActionUpdateStation,
		"Station modifiée: "+st.Nom)
	return st, nil
}

func (s *SettingsService) DeleteStation(ctx context.Context, sess access.Session, id string) error {
	if err := s.authorize(sess, access.PermManageSettings); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stations, err := s.data.Stations.All(ctx)
	if err != nil {
		return err
	}
	i := indexOf(stations, func(st models.Station) bool { return st.ID == id })
	if i < 0 {
		return fmt.Errorf("station %q: %w", id, ErrNotFound)
	}
	gone := stations[i]
	if err := s.data.Stations.Save(ctx, append(stations[:i], stations[i+1:]...)); err != nil {
		return err
	}
	s.record(ctx, sess, models.EntityStation, models.OpDelete, activity.ActionDeleteStation,
		"Station supprimée: "+gone.Nom)
	return nil
}

// CreatePhase adds a phase. Names must be unique.
func (s *SettingsService) CreatePhase(ctx context.Context, sess access.Session, d PhaseDraft) (models.Phase, error) {
	if err := s.authorize(sess, access.PermManageSettings); err != nil {
		return models.Phase{}, err
	}
	if d.Type == "" {
		d.Type = models.PhaseStandard
	}
	ph := models.Phase{ID: s.newID(), Nom: strings.TrimSpace(d.Nom), Type: d.Type}
	if err := validatePhase(ph); err != nil {
		return models.Phase{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	phases, err := s.data.Phases.All(ctx)
	if err != nil {
		return models.Phase{}, err
	}
	if indexOf(phases, func(p models.Phase) bool { return p.Nom == ph.Nom }) >= 0 {
		return models.Phase{}, fmt.Errorf("phase %q: %w", ph.Nom, ErrDuplicate)
	}
	if err := s.data.Phases.Save(ctx, append(phases, ph)); err != nil {
		return models.Phase{}, err
	}
	s.record(ctx, sess, models.EntityPhase, models.OpCreate, activity.ActionCreatePhase,
		"Nouvelle phase: "+ph.Nom)
	return ph, nil
}

// UpdatePhase replaces a phase's fields. Names are not checked for duplicates.
func (s *SettingsService) UpdatePhase(ctx context.Context, sess access.Session, id string, d PhaseDraft) (models.Phase, error) {
	if err := s.authorize(sess, access.PermManageSettings); err != nil {
		return models.Phase{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	phases, err := s.data.Phases.All(ctx)
	if err != nil {
		return models.Phase{}, err
	}
	i := indexOf(phases, func(p models.Phase) bool { return p.ID == id })
	if i < 0 {
		return models.Phase{}, fmt.Errorf("phase %q: %w", id, ErrNotFound)
	}
	ph := models.Phase{ID: id, Nom: strings.TrimSpace(d.Nom), Type: d.Type}
	if err := validatePhase(ph); err != nil {
		return models.Phase{}, err
	}
	phases[i] = ph
	if err := s.data.Phases.Save(ctx, phases); err != nil {
		return models.Phase{}, err
	}
	s.record(ctx, sess, models.EntityPhase, models.OpUpdate, activity.ActionUpdatePhase,
		"Phase modifiée: "+ph.Nom)
	return ph, nil
}

func (s *SettingsService) DeletePhase(ctx context.Context, sess access.Session, id string) error {
	if err := s.authorize(sess, access.PermManageSettings); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	phases, err := s.data.Phases.All(ctx)
	if err != nil {
		return err
	}
	i := indexOf(phases, func(p models.Phase) bool { return p.ID == id })
	if i < 0 {
		return fmt.Errorf("phase %q: %w", id, ErrNotFound)
	}
	gone := phases[i]
	if err := s.data.Phases.Save(ctx, append(phases[:i], phases[i+1:]...)); err != nil {
		return err
	}
	s.record(ctx, sess, models.EntityPhase, models.OpDelete, activity.ActionDeletePhase,
		"Phase supprimée: "+gone.Nom)
	return nil
}

// ResetPhases deletes every phase.
func (s *SettingsService) ResetPhases(ctx context.Context, sess access.Session) error {
	if err := s.authorize(sess, access.PermManageSettings); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.data.Phases.Save(ctx, []models.Phase{}); err != nil {
		return err
	}
	s.record(ctx, sess, models.EntityPhase, models.OpReset, activity.ActionResetPhases,
		"Toutes les phases ont été supprimées")
	return nil
}

// RestorePhases overwrites the phases with the default set.
func (s *SettingsService) RestorePhases(ctx context.Context, sess access.Session) ([]models.Phase, error) {
	if err := s.authorize(sess, access.PermManageSettings); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	phases := models.DefaultPhases()
	if err := s.data.Phases.Save(ctx, phases); err != nil {
		return nil, err
	}
	s.record(ctx, sess, models.EntityPhase, models.OpRestore, activity.ActionRestorePhases,
		"Phases par défaut restaurées")
	return phases, nil
}

// ExportBackup returns the current stations and phases.
func (s *SettingsService) ExportBackup(ctx context.Context, sess access.Session) (Backup, error) {
	if err := s.authorize(sess, access.PermManageSettings); err != nil {
		return Backup{}, err
	}
	stations, err := s.data.Stations.All(ctx)
	if err != nil {
		return Backup{}, err
	}
	phases, err := s.data.Phases.All(ctx)
	if err != nil {
		return Backup{}, err
	}
	return Backup{Stations: stations, Phases: phases, Timestamp: s.now()}, nil
}

// ImportBackup replaces the stations and/or phases present in raw. Nothing
// is written unless the whole document is valid.
func (s *SettingsService) ImportBackup(ctx context.Context, sess access.Session, raw []byte) error {
	if err := s.authorize(sess, access.PermManageSettings); err != nil {
		return err
	}
	var doc struct {
		Stations *[]models.Station `json:"stations"`
		Phases   *[]models.Phase   `json:"phases"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if doc.Stations == nil && doc.Phases == nil {
		return fmt.Errorf("%w: no stations or phases", ErrInvalidBackup)
	}
	var parts []string
	if doc.Stations != nil {
		for _, st := range *doc.Stations {
			if st.ID == "" || validateStation(st) != nil {
				return fmt.Errorf("%w: bad station %q", ErrInvalidBackup, st.ID)
			}
		}
		parts = append(parts, fmt.Sprintf("%d stations", len(*doc.Stations)))
	}
	if doc.Phases != nil {
		for _, ph := range *doc.Phases {
			if ph.ID == "" || validatePhase(ph) != nil {
				return fmt.Errorf("%w: bad phase %q", ErrInvalidBackup, ph.ID)
			}
		}
		parts = append(parts, fmt.Sprintf("%d phases", len(*doc.Phases)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.Stations != nil {
		if err := s.data.Stations.Save(ctx, *doc.Stations); err != nil {
			return err
		}
	}
	if doc.Phases != nil {
		if err := s.data.Phases.Save(ctx, *doc.Phases); err != nil {
			return err
		}
	}
	s.record(ctx, sess, models.EntitySettings, models.OpImport, activity.ActionImportSettings,
		"Données importées: "+strings.Join(parts, ", "))
	return nil
}

func validateStation(st models.Station) error {
	if strings.TrimSpace(st.Nom) == "" {
		return invalid("nom", "required")
	}
	if !st.Statut.Valid() {
		return invalid("statut", fmt.Sprintf("unknown station status %q", st.Statut))
	}
	return nil
}

func validatePhase(ph models.Phase) error {
	if strings.TrimSpace(ph.Nom) == "" {
		return invalid("nom", "required")
	}
	if !ph.Type.Valid() {
		return invalid("type", fmt.Sprintf("unknown phase type %q", ph.Type))
	}
	return nil
}
