package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/cart"
	"github.com/desertthunder/audx/internal/catalog"
	"github.com/desertthunder/audx/internal/formatter"
	"github.com/desertthunder/audx/internal/library"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/playback"
	"github.com/desertthunder/audx/internal/services"
	"github.com/desertthunder/audx/internal/session"
	"github.com/desertthunder/audx/internal/shared"
)

// NoticeTTL is how long a notice stays on screen.
const NoticeTTL = 3 * time.Second

// SeekStep is the distance of one seek key press, in seconds.
const SeekStep = 10

const (
	volumeStep   = 0.1
	tickInterval = 250 * time.Millisecond
	removeFailed = "Failed to remove item"
	signInHint   = "Sign in with `audx auth login` to use your cart and library"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CatalogView ViewState = iota
	CartView
	LibraryView
	PlayerView
)

var viewOrder = []ViewState{CatalogView, CartView, LibraryView, PlayerView}

func (v ViewState) String() string {
	switch v {
	case CatalogView:
		return "Catalog"
	case CartView:
		return "Cart"
	case LibraryView:
		return "Library"
	case PlayerView:
		return "Player"
	default:
		return ""
	}
}

// Deps are the stores and controllers the TUI drives.
type Deps struct {
	Catalog   services.Catalog
	Session   *session.State
	Cart      *cart.State
	Library   *library.Query
	Transport *playback.Transport
	Logger    *log.Logger
}

type notice struct {
	text string
	err  bool
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	catalog   services.Catalog
	session   *session.State
	cart      *cart.State
	library   *library.Query
	transport *playback.Transport
	logger    *log.Logger

	view   ViewState
	width  int
	height int

	books       []models.Audiobook
	sortKey     catalog.SortKey
	term        string
	filtering   bool
	input       textinput.Model
	catalogList list.Model
	cartList    list.Model
	libraryList list.Model

	nowPlaying string
	preview    bool
	status     playback.Status
	bar        progress.Model
	tickID     int

	notice   *notice
	noticeID int
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Logger == nil {
		deps.Logger = shared.DiscardLogger()
	}

	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "title or author"

	m := &Model{
		ctx:       ctx,
		catalog:   deps.Catalog,
		session:   deps.Session,
		cart:      deps.Cart,
		library:   deps.Library,
		transport: deps.Transport,
		logger:    deps.Logger,
		view:      CatalogView,
		sortKey:   catalog.TitleAsc,
		input:     input,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:      help.New(),
		keys:      newKeyMap(),
	}
	m.catalogList = newList("Catalog")
	m.cartList = newList("Cart")
	m.libraryList = newList("Library")
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// Init fetches the catalog, the library and the cart.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCatalog(), m.fetchLibrary(), m.refreshCart())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, l := range []*list.Model{&m.catalogList, &m.cartList, &m.libraryList} {
			l.SetSize(msg.Width-4, msg.Height-8)
		}
		m.bar.Width = max(msg.Width-20, 10)
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKeys(msg)
		}
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCatalogFetched:
		res := msg.data.(catalogResult)
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		m.books = res.books
		m.syncCatalog()
		return m, nil

	case MsgLibraryFetched:
		res := msg.data.(libraryResult)
		if res.err != nil {
			if errors.Is(res.err, shared.ErrNotAuthenticated) {
				return m, m.showNotice(signInHint, false)
			}
			return m, m.showNotice(shared.UserMessage(res.err, "Failed to load library"), true)
		}
		items := make([]list.Item, len(res.entries))
		for i, e := range res.entries {
			items[i] = libraryItem{entry: e}
		}
		m.libraryList.SetItems(items)
		m.syncCatalog()
		return m, nil

	case MsgCartChanged:
		res := msg.data.(changeResult)
		m.syncCart()
		m.syncCatalog()
		return m, m.resultNotice(res)

	case MsgLibraryChanged:
		res := msg.data.(changeResult)
		if res.err != nil {
			return m, m.resultNotice(res)
		}
		return m, tea.Batch(m.fetchLibrary(), m.resultNotice(res))

	case MsgPlaybackStarted:
		res := msg.data.(playbackResult)
		if res.err != nil {
			return m, m.showNotice(shared.UserMessage(res.err, "Unable to play audio"), true)
		}
		m.nowPlaying = res.title
		m.preview = res.preview
		m.view = PlayerView
		return m, m.startTicking()

	case MsgNoticeExpired:
		if id := msg.data.(int); id == m.noticeID {
			m.notice = nil
		}
		return m, nil

	case MsgPlayerTick:
		if id := msg.data.(int); id != m.tickID || m.view != PlayerView || m.transport == nil {
			return m, nil
		}
		m.status = m.transport.Status()
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.unbind()
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		return m, m.switchView(1)
	case key.Matches(msg, m.keys.prev):
		return m, m.switchView(-1)
	}

	switch m.view {
	case CatalogView:
		return m.handleCatalogKeys(msg)
	case CartView:
		return m.handleCartKeys(msg)
	case LibraryView:
		return m.handleLibraryKeys(msg)
	case PlayerView:
		return m.handlePlayerKeys(msg)
	}
	return m, nil
}

func (m *Model) handleCatalogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.filter):
		m.filtering = true
		m.input.SetValue(m.term)
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.sort):
		m.sortKey = m.sortKey.Next()
		m.syncCatalog()
		return m, nil
	case key.Matches(msg, m.keys.add):
		if selected, ok := m.catalogList.SelectedItem().(bookItem); ok {
			return m, m.addToCart(selected.listing)
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.catalogList.SelectedItem().(bookItem); ok {
			return m, m.playListing(selected.listing)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.catalogList, cmd = m.catalogList.Update(msg)
	return m, cmd
}

func (m *Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		m.term = strings.TrimSpace(m.input.Value())
		m.filtering = false
		m.input.Blur()
		m.syncCatalog()
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.filtering = false
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleCartKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.remove) {
		if selected, ok := m.cartList.SelectedItem().(cartItem); ok {
			return m, m.removeFromCart(selected.item)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.cartList, cmd = m.cartList.Update(msg)
	return m, cmd
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.libraryList.SelectedItem().(libraryItem); ok {
			return m, m.playEntry(selected.entry)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if selected, ok := m.libraryList.SelectedItem().(libraryItem); ok {
			return m, m.removeFromLibrary(selected.entry)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.libraryList, cmd = m.libraryList.Update(msg)
	return m, cmd
}

func (m *Model) handlePlayerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.transport == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.toggle):
		if err := m.transport.TogglePlayPause(); err != nil {
			m.logger.Warn("toggle failed", "error", err)
			return m, m.showNotice("Playback failed", true)
		}
	case key.Matches(msg, m.keys.rewind):
		m.transport.SeekBy(-SeekStep)
	case key.Matches(msg, m.keys.forward):
		m.transport.SeekBy(SeekStep)
	case key.Matches(msg, m.keys.louder):
		m.transport.SetVolume(m.transport.Status().Volume + volumeStep)
	case key.Matches(msg, m.keys.quieter):
		m.transport.SetVolume(m.transport.Status().Volume - volumeStep)
	case key.Matches(msg, m.keys.rate):
		if err := m.transport.SetPlaybackRate(playback.NextRate(m.transport.Status().Rate)); err != nil {
			return m, m.showNotice(shared.UserMessage(err, "Unsupported speed"), true)
		}
	default:
		return m, nil
	}
	m.status = m.transport.Status()
	return m, nil
}

// switchView moves by step through the tab order. Leaving the player unbinds the transport.
func (m *Model) switchView(step int) tea.Cmd {
	idx := 0
	for i, v := range viewOrder {
		if v == m.view {
			idx = i
		}
	}
	next := viewOrder[(idx+step+len(viewOrder))%len(viewOrder)]

	if m.view == PlayerView && next != PlayerView {
		m.unbind()
	}
	m.view = next

	switch next {
	case CartView:
		m.syncCart()
	case PlayerView:
		return m.startTicking()
	}
	return nil
}

func (m *Model) unbind() {
	if m.transport == nil {
		return
	}
	m.transport.Unbind()
	m.status = m.transport.Status()
	m.nowPlaying = ""
	m.preview = false
	m.tickID++
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case CatalogView:
		m.catalogList, cmd = m.catalogList.Update(msg)
	case CartView:
		m.cartList, cmd = m.cartList.Update(msg)
	case LibraryView:
		m.libraryList, cmd = m.libraryList.Update(msg)
	}
	return m, cmd
}

// syncCatalog rebuilds the catalog list from the fetched books with the current filter, sort and
// membership flags.
func (m *Model) syncCatalog() {
	var owned, inCart catalog.Membership
	if m.library != nil {
		owned = m.library.Owns
	}
	if m.cart != nil {
		inCart = m.cart.Contains
	}

	listings := catalog.Browse(m.books, m.term, m.sortKey, owned, inCart)
	items := make([]list.Item, len(listings))
	for i, l := range listings {
		items[i] = bookItem{listing: l}
	}
	m.catalogList.SetItems(items)
	m.catalogList.Title = fmt.Sprintf("Catalog • %s", m.sortKey.Label())
	if m.term != "" {
		m.catalogList.Title += fmt.Sprintf(" • %q", m.term)
	}
}

func (m *Model) syncCart() {
	if m.cart == nil {
		return
	}
	cartItems := m.cart.Items()
	items := make([]list.Item, len(cartItems))
	for i, it := range cartItems {
		items[i] = cartItem{item: it}
	}
	m.cartList.SetItems(items)
	m.cartList.Title = fmt.Sprintf("Cart • %d items • %s", m.cart.TotalCount(), formatter.FormatPrice(m.cart.TotalPrice()))
}

// showNotice displays text and schedules its dismissal after [NoticeTTL]. A newer notice outlives
// the timers of older ones.
func (m *Model) showNotice(text string, isErr bool) tea.Cmd {
	m.noticeID++
	id := m.noticeID
	m.notice = &notice{text: text, err: isErr}
	return tea.Tick(NoticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg(id) })
}

func (m *Model) resultNotice(res changeResult) tea.Cmd {
	if res.err != nil {
		return m.showNotice(shared.UserMessage(res.err, res.fallback), true)
	}
	if res.ok == "" {
		return nil
	}
	return m.showNotice(res.ok, false)
}

func (m *Model) startTicking() tea.Cmd {
	m.tickID++
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	id := m.tickID
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return playerTickMsg(id) })
}

func (m *Model) fetchCatalog() tea.Cmd {
	return func() tea.Msg {
		if m.catalog == nil {
			return catalogFetchedMsg(nil, shared.ErrServiceUnavailable)
		}
		books, err := m.catalog.ListAudiobooks(m.ctx)
		return catalogFetchedMsg(books, err)
	}
}

func (m *Model) fetchLibrary() tea.Cmd {
	return func() tea.Msg {
		if m.library == nil {
			return libraryFetchedMsg(nil, shared.ErrServiceUnavailable)
		}
		entries, err := m.library.Entries(m.ctx)
		return libraryFetchedMsg(entries, err)
	}
}

func (m *Model) refreshCart() tea.Cmd {
	return func() tea.Msg {
		if m.cart == nil {
			return nil
		}
		if err := m.cart.Refresh(m.ctx); err != nil {
			m.logger.Debug("cart refresh failed", "error", err)
		}
		return cartChangedMsg("", "", nil)
	}
}

func (m *Model) addToCart(l catalog.Listing) tea.Cmd {
	if l.Owned {
		return m.showNotice(shared.ErrAlreadyOwned.Error(), true)
	}
	return func() tea.Msg {
		if m.cart == nil {
			return cartChangedMsg("", cart.AddFailed, shared.ErrServiceUnavailable)
		}
		err := m.cart.AddItem(m.ctx, l.AudioID)
		return cartChangedMsg(fmt.Sprintf("Added %q to cart", l.Title), cart.AddFailed, err)
	}
}

func (m *Model) removeFromCart(item models.CartItem) tea.Cmd {
	return func() tea.Msg {
		err := m.cart.RemoveItem(m.ctx, item.AudioID)
		return cartChangedMsg(fmt.Sprintf("Removed %q", item.Item.Title), removeFailed, err)
	}
}

func (m *Model) removeFromLibrary(entry models.LibraryEntry) tea.Cmd {
	return func() tea.Msg {
		customerID, err := m.session.CustomerID()
		if err == nil {
			err = m.library.RemoveEntry(m.ctx, customerID, entry.AudioID)
		}
		return libraryChangedMsg(fmt.Sprintf("Removed %q from library", entry.Item.Title), removeFailed, err)
	}
}

// playListing plays an owned catalog item in full, and anything else as its short preview.
func (m *Model) playListing(l catalog.Listing) tea.Cmd {
	if l.Owned {
		return m.play(l.Audiobook, playback.Source{URL: l.AudioURL(), ItemID: l.AudioID, Duration: l.KnownDuration()}, 0, false)
	}
	clip := ""
	if l.ShortClip != nil {
		clip = *l.ShortClip
	}
	return m.play(l.Audiobook, playback.Source{URL: clip}, 0, true)
}

func (m *Model) playEntry(e models.LibraryEntry) tea.Cmd {
	src := playback.Source{URL: e.Item.AudioURL(), ItemID: e.AudioID, Duration: e.Item.KnownDuration()}
	return m.play(e.Item, src, e.LastPosition, false)
}

func (m *Model) play(book models.Audiobook, src playback.Source, resume float64, preview bool) tea.Cmd {
	return func() tea.Msg {
		if m.transport == nil {
			return playbackStartedMsg(book.Title, preview, shared.ErrServiceUnavailable)
		}
		if src.URL == "" {
			return playbackStartedMsg(book.Title, preview, shared.ErrNoSource)
		}
		if err := m.transport.Load(m.ctx, src, resume); err != nil {
			return playbackStartedMsg(book.Title, preview, err)
		}
		return playbackStartedMsg(book.Title, preview, m.transport.TogglePlayPause())
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	var body string
	switch m.view {
	case CatalogView:
		body = m.catalogList.View()
		if m.filtering {
			body = m.input.View() + "\n\n" + body
		}
	case CartView:
		body = m.cartList.View()
	case LibraryView:
		body = m.libraryList.View()
	case PlayerView:
		body = m.renderPlayer()
	}

	return fmt.Sprintf("%s\n\n%s\n%s\n%s", m.renderTabs(), body, m.renderNotice(), m.help.ShortHelpView(m.keys.viewHelp(m.view)))
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(viewOrder))
	for i, v := range viewOrder {
		if v == m.view {
			tabs[i] = styles.tabOn.Render(v.String())
		} else {
			tabs[i] = styles.tab.Render(v.String())
		}
	}
	who := "signed out"
	if m.session != nil {
		if s, ok := m.session.Current(); ok {
			who = s.Username
		}
	}
	return strings.Join(tabs, "") + "  " + styles.help.Render(who)
}

func (m *Model) renderNotice() string {
	if m.notice == nil {
		return ""
	}
	if m.notice.err {
		return styles.err.Render(m.notice.text)
	}
	return styles.ok.Render(m.notice.text)
}

func (m *Model) renderPlayer() string {
	if !m.status.State.Bound() {
		return styles.help.Render("Nothing playing. Pick a title from the Library and press enter.")
	}

	title := m.nowPlaying
	if m.preview {
		title += " (preview)"
	}

	fraction := 0.0
	if m.status.Duration > 0 {
		fraction = m.status.Position / m.status.Duration
	}
	total := "--:--"
	if m.status.Duration > 0 {
		total = formatter.FormatTime(m.status.Duration)
	}

	return fmt.Sprintf(
		"%s\n\n%s  %s / %s\n\n%s • volume %d%% • %.2gx",
		styles.nowTitle.Render(title),
		m.bar.ViewAs(fraction),
		formatter.FormatTime(m.status.Position),
		total,
		m.status.State,
		int(m.status.Volume*100+0.5),
		m.status.Rate,
	)
}
