package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/loomnote/synthesis-backend/internal/domain"
	"github.com/loomnote/synthesis-backend/internal/platform/logger"
)

type memoryEntry struct {
	sess      domain.Session
	expiresAt time.Time
}

type memoryStore struct {
	log *logger.Logger
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]*memoryEntry
	now      func() time.Time
}

// NewMemoryStore is the single-process fallback used when Redis is not
// configured, and the seam tests run against. Expiry is lazy: entries past
// their deadline are dropped on access.
func NewMemoryStore(log *logger.Logger, ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryStore{
		log:      log.With("service", "MemorySessionStore"),
		ttl:      ttl,
		sessions: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

func (s *memoryStore) Create(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	s.sessions[sess.ID] = &memoryEntry{
		sess:      *sess,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// lookup must be called with the lock held.
func (s *memoryStore) lookup(id string) (*memoryEntry, error) {
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(e.expiresAt) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	cp := e.sess
	return &cp, nil
}

func (s *memoryStore) Update(_ context.Context, id string, mutate Mutator) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	after := e.sess
	if err := mutate(&after); err != nil {
		return nil, err
	}
	if err := guardTransition(&e.sess, &after); err != nil {
		return nil, err
	}
	after.UpdatedAt = s.now().UTC()

	e.sess = after
	cp := after
	return &cp, nil
}

func (s *memoryStore) Expire(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memoryStore) Close() error { return nil }
