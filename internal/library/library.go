// Package library answers "what does the signed-in customer own?"
//
// Entries are fetched fresh whenever a view asks for them. The owned set from the most recent fetch
// is kept as a snapshot so catalog listings and the cart can check ownership without a request.
// Both are dropped whenever the session identity changes.
package library

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/services"
	"github.com/desertthunder/audx/internal/session"
	"github.com/desertthunder/audx/internal/shared"
	"golang.org/x/sync/singleflight"
)

// OwnedSet is a set of audio ids.
type OwnedSet map[int]struct{}

// Has reports whether id is in the set.
func (o OwnedSet) Has(id int) bool {
	_, ok := o[id]
	return ok
}

// IDs returns the members in ascending order.
func (o OwnedSet) IDs() []int {
	ids := make([]int, 0, len(o))
	for id := range o {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Owned collects every audio id an entry can carry. Entries that name the item both at the top
// level and inside the nested audiobook contribute both.
func Owned(entries []models.LibraryEntry) OwnedSet {
	set := make(OwnedSet, len(entries))
	for _, e := range entries {
		if e.AudioID != 0 {
			set[e.AudioID] = struct{}{}
		}
		if e.Item.AudioID != 0 {
			set[e.Item.AudioID] = struct{}{}
		}
	}
	return set
}

// Query is the library of the current session.
type Query struct {
	api         services.Libraries
	session     *session.State
	logger      *log.Logger
	group       singleflight.Group
	unsubscribe func()

	mu      sync.RWMutex
	entries []models.LibraryEntry
	owned   OwnedSet
}

// New creates a [Query] bound to sess.
func New(api services.Libraries, sess *session.State, logger *log.Logger) *Query {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	q := &Query{api: api, session: sess, logger: logger}
	q.unsubscribe = sess.Subscribe(func(*models.Session) { q.Clear() })
	return q
}

// Close detaches from the session.
func (q *Query) Close() {
	q.unsubscribe()
}

// Clear drops the cached entries and ownership snapshot.
func (q *Query) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
	q.owned = nil
}

type fetched struct {
	entries []models.LibraryEntry
	gen     uint64
}

// fetch loads the library; concurrent callers for the same customer and session share one request.
// The shared request is not cancelled by any one caller; each caller stops waiting when its own
// context is done. The result is cached only if the session did not change while it was in flight,
// and a failure in the same session empties the snapshot.
func (q *Query) fetch(ctx context.Context) ([]models.LibraryEntry, error) {
	current, gen := q.session.Snapshot()
	if current == nil {
		return nil, shared.ErrNotAuthenticated
	}

	key := strconv.FormatUint(gen, 10) + ":" + strconv.Itoa(current.CustomerID)
	detached := context.WithoutCancel(ctx)
	ch := q.group.DoChan(key, func() (any, error) {
		entries, err := q.api.Library(detached, current.CustomerID)
		if err != nil {
			return nil, err
		}
		return fetched{entries: entries, gen: gen}, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if res.Err != nil {
		q.logger.Warn("library fetch failed", "customer_id", current.CustomerID, "error", res.Err)
		q.store(gen, nil)
		return nil, fmt.Errorf("failed to load library: %w", res.Err)
	}

	out := res.Val.(fetched)
	if res.Shared {
		q.logger.Debug("shared library fetch", "customer_id", current.CustomerID)
	}
	q.store(out.gen, out.entries)
	return slices.Clone(out.entries), nil
}

// store replaces the snapshot with entries if the session is still at gen.
func (q *Query) store(gen uint64, entries []models.LibraryEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.session.Generation() != gen {
		return
	}
	q.entries = slices.Clone(entries)
	q.owned = Owned(entries)
}

// OwnedAudioIDs fetches the library and returns every owned audio id.
func (q *Query) OwnedAudioIDs(ctx context.Context) (OwnedSet, error) {
	entries, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Owned(entries), nil
}

// Entries fetches the library afresh.
func (q *Query) Entries(ctx context.Context) ([]models.LibraryEntry, error) {
	return q.fetch(ctx)
}

// Cached returns the entries from the last fetch in this session.
func (q *Query) Cached() []models.LibraryEntry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return slices.Clone(q.entries)
}

// Owns reports whether audioID was in the last fetched library. It never makes a request.
func (q *Query) Owns(audioID int) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.owned.Has(audioID)
}

// RemoveEntry deletes audioID from customerID's library on the server, then drops the matching
// local entry by library id.
func (q *Query) RemoveEntry(ctx context.Context, customerID, audioID int) error {
	if err := q.api.RemoveFromLibrary(ctx, customerID, audioID); err != nil {
		q.logger.Warn("library removal failed", "customer_id", customerID, "audio_id", audioID, "error", err)
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	idx := slices.IndexFunc(q.entries, func(e models.LibraryEntry) bool {
		return e.AudioID == audioID || e.Item.AudioID == audioID
	})
	if idx < 0 {
		return nil
	}
	libraryID := q.entries[idx].LibraryID
	q.entries = slices.DeleteFunc(q.entries, func(e models.LibraryEntry) bool { return e.LibraryID == libraryID })
	q.owned = Owned(q.entries)

	q.logger.Info("removed from library", "customer_id", customerID, "audio_id", audioID, "library_id", libraryID)
	return nil
}
