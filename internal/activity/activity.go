// Package activity appends and reads the administrative action log.
package activity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thunderdz19/sero-est/internal/models"
)

// Action labels written to the log.
const (
	ActionLogin          = "Connexion utilisateur"
	ActionLogout         = "Déconnexion utilisateur"
	ActionCreateReport   = "Création de rapport"
	ActionReportStatus   = "Modification statut rapport"
	ActionCreateUser     = "Ajout utilisateur"
	ActionUpdateUser     = "Modification utilisateur"
	ActionDeleteUser     = "Suppression utilisateur"
	ActionCreateProject  = "Ajout projet"
	ActionUpdateProject  = "Modification projet"
	ActionDeleteProject  = "Suppression projet"
	ActionAddDriveFile   = "Ajout fichier projet"
	ActionDropDriveFile  = "Suppression fichier projet"
	ActionCreateStation  = "Ajout station"
	ActionUpdateStation  = "Modification station"
	ActionDeleteStation  = "Suppression station"
	ActionCreatePhase    = "Ajout phase"
	ActionUpdatePhase    = "Modification phase"
	ActionDeletePhase    = "Suppression phase"
	ActionResetPhases    = "Réinitialisation phases"
	ActionRestorePhases  = "Restauration phases"
	ActionImportSettings = "Import paramètres"
)

// Store is the persistence the recorder needs.
type Store interface {
	Append(ctx context.Context, entry models.ActionLog) error
	All(ctx context.Context) ([]models.ActionLog, error)
}

// Recorder writes log entries. Entries are never edited or removed.
// Appends are serialized, so one Recorder must be shared by every writer of
// the same log.
type Recorder struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
	newID func() string
}

// NewRecorder returns a Recorder; nil now and newID use the wall clock and uuid.
func NewRecorder(store Store, now func() time.Time, newID func() string) *Recorder {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Recorder{store: store, now: now, newID: newID}
}

// Record appends one entry attributed to actor.
func (r *Recorder) Record(ctx context.Context, actor models.User, category models.Category, action, details string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := models.ActionLog{
		ID:        r.newID(),
		UserID:    actor.ID,
		UserName:  actor.Nom,
		Action:    action,
		Details:   details,
		Timestamp: r.now(),
		Category:  category,
	}
	if err := r.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append action log: %w", err)
	}
	return nil
}

// Feed returns all entries newest first. Entries with equal timestamps keep
// their append order reversed, so the last written comes first.
func (r *Recorder) Feed(ctx context.Context) ([]models.ActionLog, error) {
	entries, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ActionLog, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
