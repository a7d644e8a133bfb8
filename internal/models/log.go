package models

import "time"

// EntityKind is the kind of record an action touched.
type EntityKind string

const (
	EntitySession  EntityKind = "session"
	EntityUser     EntityKind = "user"
	EntityProject  EntityKind = "project"
	EntityPhase    EntityKind = "phase"
	EntityStation  EntityKind = "station"
	EntityReport   EntityKind = "report"
	EntitySettings EntityKind = "settings"
)

// Operation is what an action did to its entity.
type Operation string

const (
	OpCreate  Operation = "create"
	OpUpdate  Operation = "update"
	OpDelete  Operation = "delete"
	OpLogin   Operation = "login"
	OpLogout  Operation = "logout"
	OpReset   Operation = "reset"
	OpRestore Operation = "restore"
	OpImport  Operation = "import"
)

// Category classifies a log entry. It is set when the entry is written.
type Category struct {
	Entity    EntityKind `json:"entity"`
	Operation Operation  `json:"operation"`
}

// ActionLog is one append-only activity record.
type ActionLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
}
