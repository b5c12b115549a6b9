package session

import (
	"errors"
	"testing"

	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/repositories"
	"github.com/desertthunder/audx/internal/shared"
)

func newStore(t *testing.T) *repositories.StateRepository {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDSN)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return repositories.NewStateRepository(db)
}

type failingStore struct{}

func (failingStore) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (failingStore) Set(string, string) error         { return errors.New("disk gone") }
func (failingStore) Delete(string) error              { return errors.New("disk gone") }

var alice = models.Session{CustomerID: 1, Username: "alice", Email: "alice@example.com"}

func TestState(t *testing.T) {
	t.Run("starts unauthenticated with an empty store", func(t *testing.T) {
		s := New(newStore(t), nil)

		if _, ok := s.Current(); ok {
			t.Error("expected no session")
		}
		if _, err := s.CustomerID(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("persistence round-trip across restart", func(t *testing.T) {
		store := newStore(t)

		if err := New(store, nil).Login(alice); err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		restarted := New(store, nil)
		current, ok := restarted.Current()
		if !ok {
			t.Fatal("expected hydrated session")
		}
		if current.CustomerID != alice.CustomerID || current.Username != alice.Username {
			t.Errorf("expected %+v, got %+v", alice, current)
		}
	})

	t.Run("malformed slot starts unauthenticated", func(t *testing.T) {
		for _, raw := range []string{"not json", `{"username":"x"}`, `[]`} {
			store := newStore(t)
			if err := store.Set(SlotKey, raw); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			if _, ok := New(store, nil).Current(); ok {
				t.Errorf("expected no session for slot %q", raw)
			}
		}
	})

	t.Run("unreadable store starts unauthenticated", func(t *testing.T) {
		if _, ok := New(failingStore{}, nil).Current(); ok {
			t.Error("expected no session")
		}
	})

	t.Run("logout clears the durable slot", func(t *testing.T) {
		store := newStore(t)
		s := New(store, nil)
		s.Login(alice)

		if err := s.Logout(); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if _, ok := New(store, nil).Current(); ok {
			t.Error("expected restart after logout to be signed out")
		}
	})

	t.Run("persist failure still switches identity", func(t *testing.T) {
		s := New(failingStore{}, nil)

		if err := s.Login(alice); err == nil {
			t.Error("expected persistence error")
		}
		if _, ok := s.Current(); !ok {
			t.Error("expected in-memory session despite persistence error")
		}
	})

	t.Run("Current returns a copy", func(t *testing.T) {
		s := New(nil, nil)
		s.Login(alice)

		c, _ := s.Current()
		c.Username = "mallory"

		again, _ := s.Current()
		if again.Username != "alice" {
			t.Error("caller mutation leaked into state")
		}
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("notifies in subscription order", func(t *testing.T) {
		s := New(nil, nil)

		var order []string
		s.Subscribe(func(*models.Session) { order = append(order, "first") })
		s.Subscribe(func(*models.Session) { order = append(order, "second") })

		s.Login(alice)

		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("listeners see the new identity", func(t *testing.T) {
		s := New(nil, nil)

		var seen []*models.Session
		s.Subscribe(func(c *models.Session) {
			seen = append(seen, c)
			if _, ok := s.Current(); ok != (c != nil) {
				t.Error("listener read disagrees with notification")
			}
		})

		s.Login(alice)
		s.Logout()

		if len(seen) != 2 {
			t.Fatalf("expected 2 notifications, got %d", len(seen))
		}
		if seen[0] == nil || seen[0].CustomerID != 1 {
			t.Errorf("expected login notification for customer 1, got %+v", seen[0])
		}
		if seen[1] != nil {
			t.Errorf("expected nil after logout, got %+v", seen[1])
		}
	})

	t.Run("unsubscribe stops notifications", func(t *testing.T) {
		s := New(nil, nil)

		calls := 0
		unsubscribe := s.Subscribe(func(*models.Session) { calls++ })
		s.Login(alice)
		unsubscribe()
		unsubscribe()
		s.Logout()

		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("generation advances on every change", func(t *testing.T) {
		s := New(nil, nil)
		g0 := s.Generation()

		s.Login(alice)
		s.Login(alice)
		s.Logout()

		if got := s.Generation(); got != g0+3 {
			t.Errorf("expected generation %d, got %d", g0+3, got)
		}

		current, gen := s.Snapshot()
		if current != nil || gen != g0+3 {
			t.Errorf("unexpected snapshot %+v, %d", current, gen)
		}
	})
}
