package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Revocations remembers logged-out token ids until they would have expired.
type Revocations struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func NewRevocations() *Revocations {
	return &Revocations{ids: make(map[string]time.Time)}
}

// Revoke marks id as unusable. expiresAt bounds how long it is remembered.
func (r *Revocations) Revoke(id string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = expiresAt
}

// Revoked reports whether id was revoked.
func (r *Revocations) Revoked(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

// Prune forgets ids whose token expired before now and returns how many.
func (r *Revocations) Prune(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, exp := range r.ids {
		if exp.Before(now) {
			delete(r.ids, id)
			n++
		}
	}
	return n
}

// StartRevocationCleaner prunes expired revocations every interval until ctx
// is done.
func StartRevocationCleaner(
	ctx context.Context,
	revocations *Revocations,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := revocations.Prune(now); n > 0 {
					log.Info("pruned expired token revocations", zap.Int("removed", n))
				}
			}
		}
	}()
}
