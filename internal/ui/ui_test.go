package ui

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/audx/internal/cart"
	"github.com/desertthunder/audx/internal/library"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/playback"
	"github.com/desertthunder/audx/internal/session"
	"github.com/desertthunder/audx/internal/shared"
	tu "github.com/desertthunder/audx/internal/testing"
)

type fixture struct {
	model     *Model
	store     *tu.FakeStore
	cart      *cart.State
	transport *playback.Transport
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := shared.DiscardLogger()

	store := tu.NewFakeStore(tu.Book(1, "Alpha", 100), tu.Book(2, "Beta", 200), tu.Book(3, "Gamma", 300))
	store.Libraries[1] = []models.LibraryEntry{{LibraryID: 9, CustomerID: 1, AudioID: 1, Item: store.Books[1]}}
	store.SeedCart(1, 2)

	sess := session.New(nil, logger)
	if err := sess.Login(models.Session{CustomerID: 1, Username: "asha"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	lib := library.New(store, sess, logger)
	t.Cleanup(lib.Close)
	if _, err := lib.Entries(ctx); err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	c := cart.New(store, sess, cart.Options{Ownership: lib, Logger: logger})
	t.Cleanup(c.Close)
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	tr := playback.NewTransport(playback.Options{Logger: logger})
	t.Cleanup(tr.Unbind)

	m := NewModel(ctx, Deps{Catalog: store, Session: sess, Cart: c, Library: lib, Transport: tr, Logger: logger})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	books, _ := store.ListAudiobooks(ctx)
	m.Update(catalogFetchedMsg(books, nil))
	return &fixture{model: m, store: store, cart: c, transport: tr}
}

func (f *fixture) listings(t *testing.T) []bookItem {
	t.Helper()
	var out []bookItem
	for _, it := range f.model.catalogList.Items() {
		out = append(out, it.(bookItem))
	}
	return out
}

// run executes cmd and feeds its message back into the model.
func (f *fixture) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	if msg := cmd(); msg != nil {
		f.model.Update(msg)
	}
}

func TestNotices(t *testing.T) {
	m := NewModel(context.Background(), Deps{})

	m.showNotice("first", false)
	firstID := m.noticeID
	m.showNotice("second", true)

	m.Update(noticeExpiredMsg(firstID))
	if m.notice == nil || m.notice.text != "second" {
		t.Fatalf("expected newer notice to survive an older timer, got %+v", m.notice)
	}

	m.Update(noticeExpiredMsg(m.noticeID))
	if m.notice != nil {
		t.Errorf("expected notice to be dismissed, got %+v", m.notice)
	}
}

func TestCatalogView(t *testing.T) {
	t.Run("listings carry membership flags", func(t *testing.T) {
		f := newFixture(t)
		items := f.listings(t)
		if len(items) != 3 {
			t.Fatalf("expected 3 listings, got %d", len(items))
		}
		if !items[0].listing.Owned || items[0].listing.InCart {
			t.Errorf("expected Alpha owned, got %+v", items[0].listing)
		}
		if items[1].listing.Owned || !items[1].listing.InCart {
			t.Errorf("expected Beta in cart, got %+v", items[1].listing)
		}
	})

	t.Run("adding an owned item makes no request", func(t *testing.T) {
		f := newFixture(t)
		f.model.catalogList.Select(0)

		_, cmd := f.model.Update(runes("a"))
		if cmd == nil || f.model.notice == nil || f.model.notice.text != shared.ErrAlreadyOwned.Error() {
			t.Errorf("expected owned notice, got %+v", f.model.notice)
		}
		if f.store.Calls("AddToCart") != 0 {
			t.Error("expected no add request")
		}
	})

	t.Run("adding updates cart and flags", func(t *testing.T) {
		f := newFixture(t)
		f.model.catalogList.Select(2)

		_, cmd := f.model.Update(runes("a"))
		f.run(cmd)

		if !f.cart.Contains(3) {
			t.Fatal("expected Gamma in cart")
		}
		if !f.listings(t)[2].listing.InCart {
			t.Error("expected listing flag refreshed")
		}
		if f.model.notice == nil || f.model.notice.err {
			t.Errorf("expected success notice, got %+v", f.model.notice)
		}
	})

	t.Run("failed add shows store message", func(t *testing.T) {
		f := newFixture(t)
		f.store.Errs["AddToCart"] = &shared.RemoteError{Status: 400, Message: "Audiobook already in cart"}
		f.model.catalogList.Select(2)

		_, cmd := f.model.Update(runes("a"))
		f.run(cmd)

		if f.model.notice == nil || !f.model.notice.err || f.model.notice.text != "Audiobook already in cart" {
			t.Errorf("unexpected notice %+v", f.model.notice)
		}
	})

	t.Run("filter and sort", func(t *testing.T) {
		f := newFixture(t)

		f.model.Update(runes("/"))
		if !f.model.filtering {
			t.Fatal("expected filter input to open")
		}
		f.model.Update(runes("gam"))
		f.model.Update(tea.KeyMsg{Type: tea.KeyEnter})

		items := f.listings(t)
		if f.model.filtering || len(items) != 1 || items[0].listing.AudioID != 3 {
			t.Errorf("expected only Gamma, got %d items", len(items))
		}

		f.model.Update(runes("/"))
		f.model.input.SetValue("")
		f.model.Update(tea.KeyMsg{Type: tea.KeyEnter})
		f.model.Update(runes("s"))
		f.model.Update(runes("s"))

		items = f.listings(t)
		if len(items) != 3 || items[0].listing.AudioID != 3 {
			t.Errorf("expected price descending order, got first %d", items[0].listing.AudioID)
		}
	})
}

func TestCartAndLibraryViews(t *testing.T) {
	t.Run("tab cycles views", func(t *testing.T) {
		f := newFixture(t)
		want := []ViewState{CartView, LibraryView, PlayerView, CatalogView}
		for _, v := range want {
			f.model.Update(tea.KeyMsg{Type: tea.KeyTab})
			if f.model.view != v {
				t.Fatalf("expected %v, got %v", v, f.model.view)
			}
		}
	})

	t.Run("remove from cart", func(t *testing.T) {
		f := newFixture(t)
		f.model.Update(tea.KeyMsg{Type: tea.KeyTab})
		if len(f.model.cartList.Items()) != 1 {
			t.Fatalf("expected one cart row, got %d", len(f.model.cartList.Items()))
		}

		_, cmd := f.model.Update(runes("x"))
		f.run(cmd)

		if f.cart.TotalCount() != 0 || len(f.model.cartList.Items()) != 0 {
			t.Errorf("expected empty cart, got %d", f.cart.TotalCount())
		}
	})

	t.Run("library rows load and remove", func(t *testing.T) {
		f := newFixture(t)
		f.run(f.model.fetchLibrary())
		if len(f.model.libraryList.Items()) != 1 {
			t.Fatalf("expected one library row, got %d", len(f.model.libraryList.Items()))
		}

		f.model.view = LibraryView
		_, cmd := f.model.Update(runes("x"))
		msg := cmd()
		_, follow := f.model.Update(msg)
		if f.store.Calls("RemoveFromLibrary") != 1 {
			t.Errorf("expected one remove call, got %d", f.store.Calls("RemoveFromLibrary"))
		}
		if follow == nil {
			t.Error("expected a refetch after removal")
		}
	})
}

func TestPlayerView(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alpha.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0644); err != nil {
		t.Fatalf("failed to write media: %v", err)
	}

	f := newFixture(t)
	book := f.store.Books[1]
	book.AudioFile = &path

	f.run(f.model.play(book, playback.Source{URL: path, Duration: 600}, 0, false))
	if f.model.view != PlayerView || f.model.nowPlaying != "Alpha" {
		t.Fatalf("expected player view for Alpha, got %v %q", f.model.view, f.model.nowPlaying)
	}
	if got := f.transport.Status().State; got != playback.Playing {
		t.Fatalf("expected playing, got %v", got)
	}

	f.model.Update(runes(" "))
	if got := f.transport.Status().State; got != playback.Paused {
		t.Errorf("expected paused, got %v", got)
	}

	f.model.Update(tea.KeyMsg{Type: tea.KeyRight})
	if pos := f.transport.CurrentTime(); pos < SeekStep {
		t.Errorf("expected seek forward, got %v", pos)
	}

	f.model.Update(runes("r"))
	if got := f.transport.Status().Rate; got != 1.25 {
		t.Errorf("expected rate 1.25, got %v", got)
	}

	f.model.Update(runes("-"))
	if got := f.transport.Status().Volume; got > 0.91 || got < 0.89 {
		t.Errorf("expected volume 0.9, got %v", got)
	}

	f.model.Update(tea.KeyMsg{Type: tea.KeyTab})
	if f.model.view != CatalogView {
		t.Errorf("expected catalog view, got %v", f.model.view)
	}
	if got := f.transport.Status().State; got != playback.Idle {
		t.Errorf("expected leaving the player to unbind, got %v", got)
	}
}

func TestPlayMissingSource(t *testing.T) {
	f := newFixture(t)
	book := f.store.Books[2]

	f.run(f.model.play(book, playback.Source{}, 0, true))
	if f.model.view != CatalogView {
		t.Errorf("expected to stay on catalog, got %v", f.model.view)
	}
	if f.model.notice == nil || !f.model.notice.err {
		t.Errorf("expected error notice, got %+v", f.model.notice)
	}
}
