package models

import "time"

// StructureType is the kind of bridge structure surveyed.
type StructureType string

const (
	StructurePile  StructureType = "pile"
	StructureCulee StructureType = "culee"
)

// Valid reports whether t is a known structure type.
func (t StructureType) Valid() bool {
	return t == StructurePile || t == StructureCulee
}

// Label is the human form used in exports.
func (t StructureType) Label() string {
	if t == StructurePile {
		return "Pile"
	}
	return "Culée"
}

// ReportStatus tracks a report from filing to reception by BCS.
// Any status may follow any other.
type ReportStatus string

const (
	StatusRecorded ReportStatus = "enregistree"
	StatusPrinted  ReportStatus = "imprimee"
	StatusSent     ReportStatus = "envoyee_bcs"
	StatusReceived ReportStatus = "recue_bcs"
)

// ReportStatuses lists every status in workflow order.
var ReportStatuses = []ReportStatus{StatusRecorded, StatusPrinted, StatusSent, StatusReceived}

// Valid reports whether s is a known report status.
func (s ReportStatus) Valid() bool {
	for _, v := range ReportStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Tasks is the fixed vocabulary a report's task list is drawn from.
var Tasks = []string{
	"Relevé",
	"Implantation",
	"Contrôle",
	"Réception",
	"Bornage",
	"Autre",
}

// IsTask reports whether t belongs to the task vocabulary.
func IsTask(t string) bool {
	for _, v := range Tasks {
		if v == t {
			return true
		}
	}
	return false
}

// OtherPhaseName is the seeded name of the free-text phase.
const OtherPhaseName = "Autre"

// DateLayout is the layout of a report's field-work date.
const DateLayout = "2006-01-02"

// Report is a daily survey report. UserName, ProjetNom, PhaseNom and
// StationNom are copied at submission and never follow later renames.
// Statut is the only field changed after creation.
type Report struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	UserName        string        `json:"userName"`
	Date            string        `json:"date"`
	DateCreation    time.Time     `json:"dateCreation"`
	ProjetID        string        `json:"projetId"`
	ProjetNom       string        `json:"projetNom"`
	PhaseID         string        `json:"phaseId"`
	PhaseNom        string        `json:"phaseNom"`
	PhaseAutre      string        `json:"phaseAutre,omitempty"`
	TypeStructure   StructureType `json:"typeStructure"`
	NumeroStructure string        `json:"numeroStructure"`
	Taches          []string      `json:"taches"`
	StationID       string        `json:"stationId"`
	StationNom      string        `json:"stationNom"`
	Remarques       string        `json:"remarques"`
	Statut          ReportStatus  `json:"statut"`
}

// PhaseLabel is the phase as shown to readers: the free-text elaboration
// replaces the generic "Autre" name.
func (r Report) PhaseLabel() string {
	if r.PhaseNom == OtherPhaseName {
		if r.PhaseAutre != "" {
			return r.PhaseAutre
		}
		return OtherPhaseName
	}
	return r.PhaseNom
}

// FieldDate parses the field-work date.
func (r Report) FieldDate() (time.Time, error) {
	return time.ParseInLocation(DateLayout, r.Date, time.Local)
}

// DashboardStats are the dashboard counters.
type DashboardStats struct {
	TotalRapports      int `json:"totalRapports"`
	RapportsAujourdhui int `json:"rapportsAujourdhui"`
	ProjetsActifs      int `json:"projetsActifs"`
	UtilisateursActifs int `json:"utilisateursActifs"`
}
