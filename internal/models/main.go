// Package models defines the core data structures for users, projects,
// phases, stations, survey reports and the activity log.
package models

import "time"

// Role identifies what a user is allowed to see and do.
type Role string

const (
	// RoleTopographe is a field surveyor who files daily reports.
	RoleTopographe Role = "topographe"
	// RoleAdmin is an administrator.
	RoleAdmin Role = "admin"
	// RoleResponsable is a supervisor.
	RoleResponsable Role = "responsable"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleTopographe, RoleAdmin, RoleResponsable:
		return true
	}
	return false
}

// User represents an application account.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Nom is the display name, also used as the login key.
	Nom string `json:"nom"`
	// MotDePasse is the plaintext credential.
	MotDePasse string `json:"motDePasse"`
	// Role of the user.
	Role Role `json:"role"`
	// Actif gates login.
	Actif bool `json:"actif"`
	// DateCreation is when the account was created.
	DateCreation time.Time `json:"dateCreation"`
}

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "actif"
	ProjectFinished  ProjectStatus = "termine"
	ProjectSuspended ProjectStatus = "suspendu"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectFinished, ProjectSuspended:
		return true
	}
	return false
}

// DriveFileType tells which bundle a document reference belongs to.
type DriveFileType string

const (
	DriveFileFiche   DriveFileType = "fiche"
	DriveFilePlan    DriveFileType = "plan"
	DriveFileStation DriveFileType = "station"
)

// DriveFile is a reference to an external document. Only metadata and the
// link are stored.
type DriveFile struct {
	ID   string        `json:"id"`
	Nom  string        `json:"nom"`
	Lien string        `json:"lien"`
	Type DriveFileType `json:"type"`
}

// ProjectLinks bundles the reference documents of a project.
type ProjectLinks struct {
	MiseEnPlan     []DriveFile `json:"miseEnPlan"`
	FichesControle []DriveFile `json:"fichesControle"`
	Stations       string      `json:"stations"`
}

// Project is a construction site that reports are filed against.
type Project struct {
	ID                  string        `json:"id"`
	Nom                 string        `json:"nom"`
	Description         string        `json:"description,omitempty"`
	DescriptionComplete string        `json:"descriptionComplete,omitempty"`
	DateDebut           string        `json:"dateDebut"`
	DateFin             string        `json:"dateFin,omitempty"`
	Statut              ProjectStatus `json:"statut"`
	Liens               ProjectLinks  `json:"liens"`
}

// Selectable reports whether new reports may reference the project.
func (p Project) Selectable() bool {
	return p.Statut == ProjectActive
}

// PhaseType distinguishes standard phases from the free-text one.
type PhaseType string

const (
	PhaseStandard PhaseType = "standard"
	// PhaseOther requires a free-text elaboration on submission.
	PhaseOther PhaseType = "autre"
)

// Valid reports whether t is a known phase type.
func (t PhaseType) Valid() bool {
	return t == PhaseStandard || t == PhaseOther
}

// Phase is a workflow stage a report is filed against.
type Phase struct {
	ID   string    `json:"id"`
	Nom  string    `json:"nom"`
	Type PhaseType `json:"type"`
}

// StationStatus is the availability of a survey instrument.
type StationStatus string

const (
	StationAvailable   StationStatus = "disponible"
	StationInUse       StationStatus = "en_utilisation"
	StationMaintenance StationStatus = "maintenance"
)

// Valid reports whether s is a known station status.
func (s StationStatus) Valid() bool {
	switch s {
	case StationAvailable, StationInUse, StationMaintenance:
		return true
	}
	return false
}

// Station is a total station used in the field.
type Station struct {
	ID     string        `json:"id"`
	Nom    string        `json:"nom"`
	Modele string        `json:"modele"`
	Numero string        `json:"numero"`
	Statut StationStatus `json:"statut"`
}

// Selectable reports whether new reports may reference the station.
func (s Station) Selectable() bool {
	return s.Statut == StationAvailable
}
