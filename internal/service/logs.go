package service

import (
	"context"

	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/models"
)

// FeedReader reads the action log newest first.
type FeedReader interface {
	Feed(ctx context.Context) ([]models.ActionLog, error)
}

type LogService struct {
	policy access.Policy
	feed   FeedReader
}

func NewLogService(policy access.Policy, feed FeedReader) *LogService {
	return &LogService{policy: policy, feed: feed}
}

// Feed returns the action log to the main administrator.
func (s *LogService) Feed(ctx context.Context, sess access.Session) ([]models.ActionLog, error) {
	if sess.User.ID == "" {
		return nil, ErrUnauthenticated
	}
	if !s.policy.Allows(sess.User, access.PermViewLogs) {
		return nil, ErrForbidden
	}
	return s.feed.Feed(ctx)
}
