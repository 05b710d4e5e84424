package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/georgemunganga/insuite-backend/internal/modules/identity"
	"github.com/georgemunganga/insuite-backend/internal/modules/user"
)

var ErrAlreadyStarted = errors.New("session store already started")

// State of the application's authentication.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

// Snapshot is an immutable view of the store at one point in time.
type Snapshot struct {
	State     State
	User      *user.User
	Token     string
	ExpiresAt time.Time
}

func (s Snapshot) Authenticated() bool { return s.State == StateAuthenticated }

// Loading is true until the first session lookup resolves.
func (s Snapshot) Loading() bool {
	return s.State == StateUninitialized || s.State == StateLoading
}

// Source is the part of the identity provider the store observes.
type Source interface {
	GetSession(ctx context.Context) (*identity.Session, error)
	OnAuthStateChange(listener identity.Listener) identity.Subscription
}

// Store holds the current identity of the application instance. It subscribes to exactly one
// Source between Start and Close.
type Store struct {
	mu        sync.RWMutex
	snap      Snapshot
	changed   bool
	sub       identity.Subscription
	listeners map[int]func(Snapshot)
	nextID    int
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]func(Snapshot))}
}

// Start subscribes to src and resolves the initial session. A failed lookup leaves the store
// unauthenticated and is only logged.
func (s *Store) Start(ctx context.Context, src Source) error {
	s.mu.Lock()
	if s.snap.State != StateUninitialized {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.snap = Snapshot{State: StateLoading}
	s.mu.Unlock()
	s.notify()

	sub := src.OnAuthStateChange(s.handleChange)
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	current, err := src.GetSession(ctx)
	if err != nil {
		log.Printf("session: initial lookup failed: %v", err)
		current = nil
	}

	s.mu.Lock()
	// a change event that arrived during the lookup is newer than its result
	if !s.changed {
		s.snap = snapshotOf(current)
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store) handleChange(_ identity.Event, current *identity.Session) {
	s.mu.Lock()
	s.changed = true
	s.snap = snapshotOf(current)
	s.mu.Unlock()
	s.notify()
}

// Clear forgets the current identity without consulting the provider.
func (s *Store) Clear() {
	s.mu.Lock()
	s.changed = true
	s.snap = Snapshot{State: StateUnauthenticated}
	s.mu.Unlock()
	s.notify()
}

// Close ends the provider subscription and drops every listener.
func (s *Store) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.listeners = make(map[int]func(Snapshot))
	s.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers fn for every state change and returns its deregistration func.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	snap := s.snap
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func snapshotOf(current *identity.Session) Snapshot {
	if current == nil {
		return Snapshot{State: StateUnauthenticated}
	}
	return Snapshot{
		State:     StateAuthenticated,
		User:      current.User,
		Token:     current.AccessToken,
		ExpiresAt: current.ExpiresAt,
	}
}
