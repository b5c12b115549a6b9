package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/audx/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCatalogFetched MsgKind = iota
	MsgLibraryFetched
	MsgCartChanged
	MsgLibraryChanged
	MsgPlaybackStarted
	MsgNoticeExpired
	MsgPlayerTick
)

type catalogResult struct {
	books []models.Audiobook
	err   error
}

type libraryResult struct {
	entries []models.LibraryEntry
	err     error
}

// changeResult is the outcome of a cart or library mutation. ok is shown on success; fallback when
// the store gives no reason for a failure.
type changeResult struct {
	ok       string
	fallback string
	err      error
}

type playbackResult struct {
	title   string
	preview bool
	err     error
}

// catalogFetchedMsg is the constructor for [MsgCatalogFetched]
func catalogFetchedMsg(books []models.Audiobook, err error) Msg {
	return Msg{kind: MsgCatalogFetched, data: catalogResult{books, err}}
}

// libraryFetchedMsg is the constructor for [MsgLibraryFetched]
func libraryFetchedMsg(entries []models.LibraryEntry, err error) Msg {
	return Msg{kind: MsgLibraryFetched, data: libraryResult{entries, err}}
}

// cartChangedMsg is the constructor for [MsgCartChanged]
func cartChangedMsg(ok, fallback string, err error) Msg {
	return Msg{kind: MsgCartChanged, data: changeResult{ok, fallback, err}}
}

// libraryChangedMsg is the constructor for [MsgLibraryChanged]
func libraryChangedMsg(ok, fallback string, err error) Msg {
	return Msg{kind: MsgLibraryChanged, data: changeResult{ok, fallback, err}}
}

// playbackStartedMsg is the constructor for [MsgPlaybackStarted]
func playbackStartedMsg(title string, preview bool, err error) Msg {
	return Msg{kind: MsgPlaybackStarted, data: playbackResult{title, preview, err}}
}

// noticeExpiredMsg is the constructor for [MsgNoticeExpired]. id identifies the notice to clear.
func noticeExpiredMsg(id int) Msg {
	return Msg{kind: MsgNoticeExpired, data: id}
}

// playerTickMsg is the constructor for [MsgPlayerTick]. id identifies the tick loop.
func playerTickMsg(id int) Msg {
	return Msg{kind: MsgPlayerTick, data: id}
}
