// Package session holds the signed-in identity and tells subscribers when it changes.
//
// There is no global session: a [*State] is created once at startup and passed to every
// component that needs identity. The durable copy lives in the local state table under
// [SlotKey], so a restarted process comes back signed in without re-authenticating.
package session

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
)

// SlotKey is the local state key owned by [State].
const SlotKey = "user"

// Store is the durable key/value slot the session is persisted in.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Listener is called synchronously after every identity change. current is nil after logout.
type Listener func(current *models.Session)

// State is the process-wide holder of the current [models.Session].
type State struct {
	mu         sync.RWMutex
	current    *models.Session
	generation uint64
	listeners  map[int]Listener
	nextID     int
	store      Store
	logger     *log.Logger
}

// New creates a [State] hydrated from store. An absent, unreadable, or malformed slot yields an
// unauthenticated state; New never fails.
func New(store Store, logger *log.Logger) *State {
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	s := &State{store: store, logger: logger, listeners: make(map[int]Listener)}

	current, err := s.hydrate()
	if err != nil {
		logger.Warn("starting signed out", "error", err)
		return s
	}
	s.current = current
	return s
}

func (s *State) hydrate() (*models.Session, error) {
	if s.store == nil {
		return nil, nil
	}

	raw, ok, err := s.store.Get(SlotKey)
	if err != nil || !ok {
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("%w: session slot: %v", shared.ErrMalformedState, err)
	}
	if session.CustomerID <= 0 {
		return nil, fmt.Errorf("%w: session slot has no customer id", shared.ErrMalformedState)
	}
	return &session, nil
}

// Login replaces the current session, persists it, and notifies subscribers.
//
// A persistence failure is returned after the in-memory switch and notification have happened.
func (s *State) Login(session models.Session) error {
	s.mu.Lock()
	copied := session
	s.current = &copied
	s.generation++
	s.mu.Unlock()

	var persistErr error
	if s.store != nil {
		data, err := json.Marshal(session)
		if err == nil {
			err = s.store.Set(SlotKey, string(data))
		}
		if err != nil {
			persistErr = fmt.Errorf("failed to persist session: %w", err)
			s.logger.Error("session not persisted", "customer_id", session.CustomerID, "error", err)
		}
	}

	s.logger.Info("signed in", "customer_id", session.CustomerID, "username", session.Username)
	s.notify()
	return persistErr
}

// Logout clears the current session and its durable slot, then notifies subscribers.
func (s *State) Logout() error {
	s.mu.Lock()
	s.current = nil
	s.generation++
	s.mu.Unlock()

	var persistErr error
	if s.store != nil {
		if err := s.store.Delete(SlotKey); err != nil {
			persistErr = fmt.Errorf("failed to clear session: %w", err)
			s.logger.Error("session slot not cleared", "error", err)
		}
	}

	s.logger.Info("signed out")
	s.notify()
	return persistErr
}

// Current returns a copy of the signed-in session.
func (s *State) Current() (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, false
	}
	copied := *s.current
	return &copied, true
}

// CustomerID returns the signed-in customer's id, or [shared.ErrNotAuthenticated].
func (s *State) CustomerID() (int, error) {
	current, ok := s.Current()
	if !ok {
		return 0, shared.ErrNotAuthenticated
	}
	return current.CustomerID, nil
}

// Generation increments on every identity change, including a login that repeats the same customer.
func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Snapshot returns the current session together with its generation, read atomically.
func (s *State) Snapshot() (*models.Session, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, s.generation
	}
	copied := *s.current
	return &copied, s.generation
}

// Subscribe registers fn for identity changes and returns a function that removes it.
func (s *State) Subscribe(fn Listener) (unsubscribe func()) {
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

// notify calls listeners in subscription order without holding the lock, so a listener may read the state.
func (s *State) notify() {
	s.mu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	var current *models.Session
	if s.current != nil {
		copied := *s.current
		current = &copied
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	for _, id := range ids {
		s.mu.RLock()
		fn, ok := s.listeners[id]
		s.mu.RUnlock()
		if ok {
			fn(current)
		}
	}
}
