package store

import (
	"context"
	"errors"
	"time"

	"github.com/loomnote/synthesis-backend/internal/domain"
)

var (
	// ErrNotFound is returned for unknown and expired session ids alike.
	ErrNotFound = errors.New("session not found")

	// ErrIllegalTransition is returned when an update would revert a
	// terminal status or skip a lifecycle step.
	ErrIllegalTransition = errors.New("illegal session status transition")
)

// Mutator edits a session in place inside an update transaction. It must be
// side-effect free: the store may call it more than once under contention.
type Mutator func(*domain.Session) error

// SessionStore is the durable, key-addressed session state backing the
// pipeline. Updates to one session id are serialized; a status write is
// observable by any subsequent Get on the same store instance.
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, id string, mutate Mutator) (*domain.Session, error)
	Expire(ctx context.Context, id string) error
	Close() error
}

// DefaultTTL is the session retention window.
const DefaultTTL = 24 * time.Hour

// guardTransition rejects mutations that break lifecycle monotonicity.
// Non-status fields may change freely while the session is live; terminal
// sessions are immutable.
func guardTransition(before, after *domain.Session) error {
	if before.Status == after.Status {
		if before.Status.Terminal() {
			return ErrIllegalTransition
		}
		return nil
	}
	if !before.Status.CanTransition(after.Status) {
		return ErrIllegalTransition
	}
	return nil
}
