package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	next    key.Binding
	prev    key.Binding
	enter   key.Binding
	back    key.Binding
	add     key.Binding
	remove  key.Binding
	filter  key.Binding
	sort    key.Binding
	toggle  key.Binding
	rewind  key.Binding
	forward key.Binding
	louder  key.Binding
	quieter key.Binding
	rate    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		prev:    key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev view")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to cart")),
		remove:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		filter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		rewind:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-10s")),
		forward: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+10s")),
		louder:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		quieter: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		rate:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "speed")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.next, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.next, k.prev, k.enter, k.back},
		{k.add, k.remove, k.filter, k.sort},
		{k.toggle, k.rewind, k.forward, k.louder, k.quieter, k.rate},
		{k.quit},
	}
}

// viewHelp lists the bindings that act in view.
func (k keyMap) viewHelp(view ViewState) []key.Binding {
	switch view {
	case CatalogView:
		return []key.Binding{k.enter, k.add, k.filter, k.sort, k.next, k.quit}
	case CartView, LibraryView:
		return []key.Binding{k.enter, k.remove, k.next, k.quit}
	case PlayerView:
		return []key.Binding{k.toggle, k.rewind, k.forward, k.louder, k.quieter, k.rate, k.next, k.quit}
	default:
		return k.ShortHelp()
	}
}
