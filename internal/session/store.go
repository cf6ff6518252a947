package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"InterviewGuru/internal/serviceerr"
)

// Store owns every live session. Implementations must be safe for
// concurrent use.
type Store interface {
	// Put stores a new session; its age is counted from CreatedAt.
	Put(ctx context.Context, s *Session) error
	// Get returns a snapshot of the session.
	Get(ctx context.Context, id string) (*Session, error)
	// Update applies fn to the stored session under its data lock. Changes
	// made by fn are kept even when fn returns an error.
	Update(ctx context.Context, id string, fn func(*Session) error) error
	// Exclusive runs fn while holding the per-session turn lock, so turns of
	// one session are processed one at a time. Readers are not blocked.
	Exclusive(ctx context.Context, id string, fn func(ctx context.Context) error) error
	// Sweep deletes sessions older than the TTL and returns how many.
	Sweep(ctx context.Context) int
	// Len returns the number of stored sessions, including expired ones
	// that have not been swept yet.
	Len() int
}

type entry struct {
	mu   sync.RWMutex
	turn chan struct{}
	s    *Session
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	items *gocache.Cache
	ttl   time.Duration
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose entries live for ttl after creation.
// Expired entries are removed by Sweep; the store runs no janitor of its own.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: gocache.New(ttl, 0),
		ttl:   ttl,
	}
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return serviceerr.Validation("session id required")
	}

	remaining := m.ttl - time.Since(s.CreatedAt)
	if remaining <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}

	m.items.Set(s.ID, &entry{turn: make(chan struct{}, 1), s: s.Clone()}, remaining)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.s.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Session) error) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}

func (m *MemoryStore) Exclusive(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}

	select {
	case e.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.turn }()

	return fn(ctx)
}

func (m *MemoryStore) Sweep(_ context.Context) int {
	before := m.items.ItemCount()
	m.items.DeleteExpired()
	return max(before-m.items.ItemCount(), 0)
}

func (m *MemoryStore) Len() int {
	return m.items.ItemCount()
}

func (m *MemoryStore) entry(id string) (*entry, error) {
	v, ok := m.items.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, serviceerr.ErrNotFound)
	}
	return v.(*entry), nil
}
