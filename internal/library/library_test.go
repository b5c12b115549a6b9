package library

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/session"
	"github.com/desertthunder/audx/internal/shared"
	tu "github.com/desertthunder/audx/internal/testing"
)

func setup(t *testing.T) (*Query, *session.State, *tu.FakeStore) {
	t.Helper()
	store := tu.NewFakeStore()
	sess := session.New(nil, nil)
	q := New(store, sess, nil)
	t.Cleanup(q.Close)
	return q, sess, store
}

func TestOwned(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.LibraryEntry
		want    []int
	}{
		{name: "empty", entries: nil, want: []int{}},
		{name: "top level id only", entries: []models.LibraryEntry{{LibraryID: 1, AudioID: 5}}, want: []int{5}},
		{
			name:    "nested id only",
			entries: []models.LibraryEntry{{LibraryID: 1, Item: models.Audiobook{AudioID: 7}}},
			want:    []int{7},
		},
		{
			name: "mixed shapes are unioned",
			entries: []models.LibraryEntry{
				{LibraryID: 1, AudioID: 5},
				{LibraryID: 2, Item: models.Audiobook{AudioID: 7}},
				{LibraryID: 3, AudioID: 9, Item: models.Audiobook{AudioID: 9}},
			},
			want: []int{5, 7, 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Owned(tt.entries).IDs()
			if len(got) != len(tt.want) {
				t.Fatalf("Owned() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Owned() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestOwnedAudioIDs(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a session", func(t *testing.T) {
		q, _, store := setup(t)
		if _, err := q.OwnedAudioIDs(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if store.TotalCalls() != 0 {
			t.Errorf("expected no calls, got %d", store.TotalCalls())
		}
	})

	t.Run("dual-shape entries", func(t *testing.T) {
		q, sess, store := setup(t)
		store.Libraries[1] = []models.LibraryEntry{
			{LibraryID: 1, AudioID: 5},
			{LibraryID: 2, Item: models.Audiobook{AudioID: 7}},
		}
		sess.Login(models.Session{CustomerID: 1})

		owned, err := q.OwnedAudioIDs(ctx)
		if err != nil {
			t.Fatalf("OwnedAudioIDs() error = %v", err)
		}
		if !owned.Has(5) || !owned.Has(7) || owned.Has(6) {
			t.Errorf("unexpected owned set %v", owned.IDs())
		}
		if !q.Owns(5) || !q.Owns(7) {
			t.Error("Owns() should reflect the snapshot")
		}
		if store.Calls("Library") != 1 {
			t.Errorf("Owns() must not fetch, got %d calls", store.Calls("Library"))
		}
	})

	t.Run("concurrent callers share one request", func(t *testing.T) {
		q, sess, store := setup(t)
		store.Libraries[1] = []models.LibraryEntry{{LibraryID: 1, AudioID: 5}}
		sess.Login(models.Session{CustomerID: 1})

		entered := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once
		store.Gate = func(method string) {
			once.Do(func() {
				close(entered)
				<-release
			})
		}

		const callers = 5
		var wg sync.WaitGroup
		errs := make(chan error, callers)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.OwnedAudioIDs(ctx)
			errs <- err
		}()
		<-entered

		for range callers - 1 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := q.OwnedAudioIDs(ctx)
				errs <- err
			}()
		}

		close(release)
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Errorf("OwnedAudioIDs() error = %v", err)
			}
		}
		if got := store.Calls("Library"); got < 1 || got > callers {
			t.Errorf("unexpected call count %d", got)
		}
	})

	t.Run("failure is returned", func(t *testing.T) {
		q, sess, store := setup(t)
		sess.Login(models.Session{CustomerID: 1})
		store.Errs["Library"] = shared.ErrNetworkFailure

		if _, err := q.OwnedAudioIDs(ctx); !errors.Is(err, shared.ErrNetworkFailure) {
			t.Errorf("expected ErrNetworkFailure, got %v", err)
		}
		if q.Owns(5) {
			t.Error("expected empty snapshot after failure")
		}
	})

	t.Run("failure clears the previous snapshot", func(t *testing.T) {
		q, sess, store := setup(t)
		store.Libraries[1] = []models.LibraryEntry{{LibraryID: 1, AudioID: 5}}
		sess.Login(models.Session{CustomerID: 1})
		if _, err := q.Entries(ctx); err != nil {
			t.Fatalf("Entries() error = %v", err)
		}
		if !q.Owns(5) {
			t.Fatal("expected 5 to be owned after the first fetch")
		}

		store.Errs["Library"] = shared.ErrNetworkFailure
		if _, err := q.Entries(ctx); !errors.Is(err, shared.ErrNetworkFailure) {
			t.Fatalf("expected ErrNetworkFailure, got %v", err)
		}
		if q.Owns(5) {
			t.Error("expected ownership snapshot to be emptied")
		}
		if got := len(q.Cached()); got != 0 {
			t.Errorf("expected no cached entries, got %d", got)
		}
	})

	t.Run("caller that leaves does not cancel the shared fetch", func(t *testing.T) {
		q, sess, store := setup(t)
		store.Libraries[1] = []models.LibraryEntry{{LibraryID: 1, AudioID: 5}}
		sess.Login(models.Session{CustomerID: 1})

		entered := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once
		store.Gate = func(string) {
			once.Do(func() {
				close(entered)
				<-release
			})
		}

		first, cancel := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() {
			_, err := q.OwnedAudioIDs(first)
			firstErr <- err
		}()
		<-entered

		secondErr := make(chan error, 1)
		go func() {
			_, err := q.OwnedAudioIDs(ctx)
			secondErr <- err
		}()
		time.Sleep(20 * time.Millisecond)

		cancel()
		if err := <-firstErr; !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled for the departed caller, got %v", err)
		}

		close(release)
		if err := <-secondErr; err != nil {
			t.Fatalf("OwnedAudioIDs() error = %v", err)
		}
		if !q.Owns(5) {
			t.Error("expected the shared fetch to populate the snapshot")
		}
	})
}

func TestSessionChange(t *testing.T) {
	ctx := context.Background()

	t.Run("logout clears the snapshot", func(t *testing.T) {
		q, sess, store := setup(t)
		store.Libraries[1] = []models.LibraryEntry{{LibraryID: 1, AudioID: 5}}
		sess.Login(models.Session{CustomerID: 1})
		if _, err := q.Entries(ctx); err != nil {
			t.Fatalf("Entries() error = %v", err)
		}

		sess.Logout()
		if q.Owns(5) || len(q.Cached()) != 0 {
			t.Error("expected snapshot to be cleared on logout")
		}
	})

	t.Run("response that straddles a session change is not cached", func(t *testing.T) {
		q, sess, store := setup(t)
		store.Libraries[1] = []models.LibraryEntry{{LibraryID: 1, AudioID: 5}}
		sess.Login(models.Session{CustomerID: 1})

		entered := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once
		store.Gate = func(string) {
			once.Do(func() {
				close(entered)
				<-release
			})
		}

		done := make(chan error, 1)
		go func() {
			_, err := q.Entries(ctx)
			done <- err
		}()
		<-entered
		sess.Login(models.Session{CustomerID: 2})
		close(release)

		if err := <-done; err != nil {
			t.Fatalf("Entries() error = %v", err)
		}
		if q.Owns(5) {
			t.Error("customer 1's library leaked into customer 2's snapshot")
		}
	})
}

func TestRemoveEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("drops the local entry after the server confirms", func(t *testing.T) {
		q, sess, store := setup(t)
		store.Libraries[1] = []models.LibraryEntry{
			{LibraryID: 1, AudioID: 5},
			{LibraryID: 2, Item: models.Audiobook{AudioID: 7}},
		}
		sess.Login(models.Session{CustomerID: 1})
		q.Entries(ctx)

		if err := q.RemoveEntry(ctx, 1, 7); err != nil {
			t.Fatalf("RemoveEntry() error = %v", err)
		}
		cached := q.Cached()
		if len(cached) != 1 || cached[0].LibraryID != 1 {
			t.Errorf("unexpected entries %+v", cached)
		}
		if q.Owns(7) || !q.Owns(5) {
			t.Error("ownership snapshot not rebuilt")
		}
	})

	t.Run("server failure keeps the entry", func(t *testing.T) {
		q, sess, store := setup(t)
		store.Libraries[1] = []models.LibraryEntry{{LibraryID: 1, AudioID: 5}}
		sess.Login(models.Session{CustomerID: 1})
		q.Entries(ctx)

		store.Errs["RemoveFromLibrary"] = &shared.RemoteError{Status: 500}
		if err := q.RemoveEntry(ctx, 1, 5); !errors.Is(err, shared.ErrRemoteRejected) {
			t.Fatalf("expected ErrRemoteRejected, got %v", err)
		}
		if !q.Owns(5) || len(q.Cached()) != 1 {
			t.Error("entry should survive a failed removal")
		}
	})

	t.Run("missing local entry is fine", func(t *testing.T) {
		q, sess, _ := setup(t)
		sess.Login(models.Session{CustomerID: 1})
		if err := q.RemoveEntry(ctx, 1, 99); err != nil {
			t.Errorf("RemoveEntry() error = %v", err)
		}
	})
}
