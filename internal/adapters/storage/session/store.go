package session

import (
	"context"

	domain "campusevents/internal/domain/session"
)

// Store persists the authenticated Session of each browser, keyed by browser session id.
// Get of an unknown sid returns the zero Session and no error.
type Store interface {
	Get(ctx context.Context, sid string) (domain.Session, error)
	Set(ctx context.Context, sid string, value domain.Session) error
	Clear(ctx context.Context, sid string) error
	Healthy(ctx context.Context) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
	_ Store = (*RedisStore)(nil)
)
