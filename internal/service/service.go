// Package service implements the report workflow and the administrative
// operations on top of whole-collection snapshots.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/thunderdz19/sero-est/internal/repository"
	"go.uber.org/zap"
)

// Collection is one persisted array, read and written whole.
type Collection[T any] interface {
	All(ctx context.Context) ([]T, error)
	Save(ctx context.Context, items []T) error
}

// Collections groups the persisted collections the services use.
type Collections struct {
	Users    Collection[models.User]
	Projects Collection[models.Project]
	Phases   Collection[models.Phase]
	Stations Collection[models.Station]
	Reports  Collection[models.Report]
}

// FromRepository exposes the collections of r.
func FromRepository(r *repository.Repository) Collections {
	return Collections{
		Users:    r.Users,
		Projects: r.Projects,
		Phases:   r.Phases,
		Stations: r.Stations,
		Reports:  r.Reports,
	}
}

// Recorder appends action log entries.
type Recorder interface {
	Record(ctx context.Context, actor models.User, category models.Category, action, details string) error
}

// Deps are shared by every service constructor.
type Deps struct {
	Data   Collections
	Policy access.Policy
	Log    Recorder
	Now    func() time.Time
	NewID  func() string
	Logger *zap.Logger
}

// base carries the dependencies and the mutation lock of one service.
type base struct {
	mu     sync.Mutex
	data   Collections
	policy access.Policy
	log    Recorder
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

func newBase(d Deps) *base {
	b := &base{
		data:   d.Data,
		policy: d.Policy,
		log:    d.Log,
		now:    d.Now,
		newID:  d.NewID,
		logger: d.Logger,
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.newID == nil {
		b.newID = uuid.NewString
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.policy.MainAdminName == "" {
		b.policy = access.NewPolicy("")
	}
	return b
}

func (b *base) authorize(s access.Session, perm access.Permission) error {
	if s.User.ID == "" {
		return ErrUnauthenticated
	}
	if !b.policy.Allows(s.User, perm) {
		return fmt.Errorf("%s: %w", perm, ErrForbidden)
	}
	return nil
}

// record appends the log entry for a mutation that has already been
// persisted. A failed append is logged and not returned: the caller's write
// stands and must not be reported as failed.
func (b *base) record(ctx context.Context, s access.Session, entity models.EntityKind, op models.Operation, action, details string) {
	if b.log == nil {
		return
	}
	err := b.log.Record(ctx, s.User, models.Category{Entity: entity, Operation: op}, action, details)
	if err != nil {
		b.logger.Warn("failed to record action",
			zap.String("user", s.User.ID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, it := range items {
		if match(it) {
			return i
		}
	}
	return -1
}
