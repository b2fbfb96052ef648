package app

import "context"

// SessionRegistry tracks live quiz attempts (in-memory, Redis, etc).
type SessionRegistry interface {
	Register(ctx context.Context, sessionID string) error
	Unregister(ctx context.Context, sessionID string)
}
