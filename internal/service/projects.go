package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/activity"
	"github.com/thunderdz19/sero-est/internal/models"
)

// Drive file sections of a project.
const (
	SectionMiseEnPlan     = "miseEnPlan"
	SectionFichesControle = "fichesControle"
)

// ProjectDraft creates a project. Statut defaults to actif.
type ProjectDraft struct {
	Nom                 string               `json:"nom"`
	Description         string               `json:"description"`
	DescriptionComplete string               `json:"descriptionComplete"`
	DateDebut           string               `json:"dateDebut"`
	DateFin             string               `json:"dateFin"`
	Statut              models.ProjectStatus `json:"statut"`
	Liens               models.ProjectLinks  `json:"liens"`
}

// ProjectPatch updates the non-nil fields of a project.
type ProjectPatch struct {
	Nom                 *string               `json:"nom,omitempty"`
	Description         *string               `json:"description,omitempty"`
	DescriptionComplete *string               `json:"descriptionComplete,omitempty"`
	DateDebut           *string               `json:"dateDebut,omitempty"`
	DateFin             *string               `json:"dateFin,omitempty"`
	Statut              *models.ProjectStatus `json:"statut,omitempty"`
	Stations            *string               `json:"stations,omitempty"`
}

// DriveFileDraft is a link added to a project section.
type DriveFileDraft struct {
	Section string `json:"section"`
	Nom     string `json:"nom"`
	Lien    string `json:"lien"`
}

type ProjectService struct {
	*base
}

func NewProjectService(d Deps) *ProjectService {
	return &ProjectService{base: newBase(d)}
}

// Browse lists projects. Topographes only see selectable ones.
func (s *ProjectService) Browse(ctx context.Context, sess access.Session) ([]models.Project, error) {
	if err := s.authorize(sess, access.PermBrowseProjects); err != nil {
		return nil, err
	}
	projects, err := s.data.Projects.All(ctx)
	if err != nil {
		return nil, err
	}
	if sess.User.Role != models.RoleTopographe {
		return projects, nil
	}
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if p.Selectable() {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get returns one project, hidden from topographes unless selectable.
func (s *ProjectService) Get(ctx context.Context, sess access.Session, id string) (models.Project, error) {
	visible, err := s.Browse(ctx, sess)
	if err != nil {
		return models.Project{}, err
	}
	i := indexOf(visible, func(p models.Project) bool { return p.ID == id })
	if i < 0 {
		return models.Project{}, fmt.Errorf("projet %q: %w", id, ErrNotFound)
	}
	return visible[i], nil
}

func (s *ProjectService) Create(ctx context.Context, sess access.Session, d ProjectDraft) (models.Project, error) {
	if err := s.authorize(sess, access.PermManageProjects); err != nil {
		return models.Project{}, err
	}
	if d.Statut == "" {
		d.Statut = models.ProjectActive
	}
	p := models.Project{
		ID:                  s.newID(),
		Nom:                 strings.TrimSpace(d.Nom),
		Description:         d.Description,
		DescriptionComplete: d.DescriptionComplete,
		DateDebut:           d.DateDebut,
		DateFin:             d.DateFin,
		Statut:              d.Statut,
		Liens:               d.Liens,
	}
	if p.Liens.MiseEnPlan == nil {
		p.Liens.MiseEnPlan = []models.DriveFile{}
	}
	if p.Liens.FichesControle == nil {
		p.Liens.FichesControle = []models.DriveFile{}
	}
	if err := validateProject(p); err != nil {
		return models.Project{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.data.Projects.All(ctx)
	if err != nil {
		return models.Project{}, err
	}
	if err := s.data.Projects.Save(ctx, append(projects, p)); err != nil {
		return models.Project{}, err
	}
	s.record(ctx, sess, models.EntityProject, models.OpCreate, activity.ActionCreateProject,
		"Nouveau projet créé: "+p.Nom)
	return p, nil
}

func (s *ProjectService) Update(ctx context.Context, sess access.Session, id string, patch ProjectPatch) (models.Project, error) {
	return s.mutate(ctx, sess, id, activity.ActionUpdateProject, func(p *models.Project) (string, error) {
		if patch.Nom != nil {
			p.Nom = strings.TrimSpace(*patch.Nom)
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.DescriptionComplete != nil {
			p.DescriptionComplete = *patch.DescriptionComplete
		}
		if patch.DateDebut != nil {
			p.DateDebut = *patch.DateDebut
		}
		if patch.DateFin != nil {
			p.DateFin = *patch.DateFin
		}
		if patch.Statut != nil {
			p.Statut = *patch.Statut
		}
		if patch.Stations != nil {
			p.Liens.Stations = *patch.Stations
		}
		if err := validateProject(*p); err != nil {
			return "", err
		}
		return "Projet modifié: " + p.Nom, nil
	})
}

// Delete removes a project. Existing reports keep their snapshot name.
func (s *ProjectService) Delete(ctx context.Context, sess access.Session, id string) error {
	if err := s.authorize(sess, access.PermManageProjects); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.data.Projects.All(ctx)
	if err != nil {
		return err
	}
	i := indexOf(projects, func(p models.Project) bool { return p.ID == id })
	if i < 0 {
		return fmt.Errorf("projet %q: %w", id, ErrNotFound)
	}
	gone := projects[i]
	if err := s.data.Projects.Save(ctx, append(projects[:i], projects[i+1:]...)); err != nil {
		return err
	}
	s.record(ctx, sess, models.EntityProject, models.OpDelete, activity.ActionDeleteProject,
		"Projet supprimé: "+gone.Nom)
	return nil
}

// AddDriveFile attaches a link to the miseEnPlan or fichesControle section.
func (s *ProjectService) AddDriveFile(ctx context.Context, sess access.Session, projectID string, d DriveFileDraft) (models.DriveFile, error) {
	f := models.DriveFile{ID: s.newID(), Nom: strings.TrimSpace(d.Nom), Lien: strings.TrimSpace(d.Lien)}
	switch d.Section {
	case SectionMiseEnPlan:
		f.Type = models.DriveFilePlan
	case SectionFichesControle:
		f.Type = models.DriveFileFiche
	default:
		return models.DriveFile{}, invalid("section", fmt.Sprintf("unknown section %q", d.Section))
	}
	if f.Nom == "" {
		return models.DriveFile{}, invalid("nom", "required")
	}
	if f.Lien == "" {
		return models.DriveFile{}, invalid("lien", "required")
	}

	_, err := s.mutate(ctx, sess, projectID, activity.ActionAddDriveFile, func(p *models.Project) (string, error) {
		if f.Type == models.DriveFilePlan {
			p.Liens.MiseEnPlan = append(p.Liens.MiseEnPlan, f)
		} else {
			p.Liens.FichesControle = append(p.Liens.FichesControle, f)
		}
		return fmt.Sprintf("Fichier %s ajouté au projet %s", f.Nom, p.Nom), nil
	})
	if err != nil {
		return models.DriveFile{}, err
	}
	return f, nil
}

// RemoveDriveFile detaches a link from whichever section holds it.
func (s *ProjectService) RemoveDriveFile(ctx context.Context, sess access.Session, projectID, fileID string) (models.Project, error) {
	return s.mutate(ctx, sess, projectID, activity.ActionDropDriveFile, func(p *models.Project) (string, error) {
		match := func(f models.DriveFile) bool { return f.ID == fileID }
		if i := indexOf(p.Liens.MiseEnPlan, match); i >= 0 {
			name := p.Liens.MiseEnPlan[i].Nom
			p.Liens.MiseEnPlan = append(p.Liens.MiseEnPlan[:i], p.Liens.MiseEnPlan[i+1:]...)
			return fmt.Sprintf("Fichier %s retiré du projet %s", name, p.Nom), nil
		}
		if i := indexOf(p.Liens.FichesControle, match); i >= 0 {
			name := p.Liens.FichesControle[i].Nom
			p.Liens.FichesControle = append(p.Liens.FichesControle[:i], p.Liens.FichesControle[i+1:]...)
			return fmt.Sprintf("Fichier %s retiré du projet %s", name, p.Nom), nil
		}
		return "", fmt.Errorf("fichier %q: %w", fileID, ErrNotFound)
	})
}

// mutate applies fn to one project under the lock, saves and logs an update.
func (s *ProjectService) mutate(ctx context.Context, sess access.Session, id, action string, fn func(*models.Project) (string, error)) (models.Project, error) {
	if err := s.authorize(sess, access.PermManageProjects); err != nil {
		return models.Project{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.data.Projects.All(ctx)
	if err != nil {
		return models.Project{}, err
	}
	i := indexOf(projects, func(p models.Project) bool { return p.ID == id })
	if i < 0 {
		return models.Project{}, fmt.Errorf("projet %q: %w", id, ErrNotFound)
	}
	p := projects[i]
	details, err := fn(&p)
	if err != nil {
		return models.Project{}, err
	}
	projects[i] = p
	if err := s.data.Projects.Save(ctx, projects); err != nil {
		return models.Project{}, err
	}
	s.record(ctx, sess, models.EntityProject, models.OpUpdate, action, details)
	return p, nil
}

func validateProject(p models.Project) error {
	if p.Nom == "" {
		return invalid("nom", "required")
	}
	if _, err := time.Parse(models.DateLayout, p.DateDebut); err != nil {
		return invalid("dateDebut", "expected YYYY-MM-DD")
	}
	if p.DateFin != "" {
		if _, err := time.Parse(models.DateLayout, p.DateFin); err != nil {
			return invalid("dateFin", "expected YYYY-MM-DD")
		}
	}
	if !p.Statut.Valid() {
		return invalid("statut", fmt.Sprintf("unknown project status %q", p.Statut))
	}
	return nil
}
