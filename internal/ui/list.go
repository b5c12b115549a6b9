package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/audx/internal/catalog"
	"github.com/desertthunder/audx/internal/formatter"
	"github.com/desertthunder/audx/internal/models"
)

var (
	_ list.Item = bookItem{}
	_ list.Item = cartItem{}
	_ list.Item = libraryItem{}
)

// bookItem wraps [catalog.Listing] to implement [list.Item].
type bookItem struct {
	listing catalog.Listing
}

func (i bookItem) FilterValue() string { return i.listing.Title }
func (i bookItem) Title() string {
	switch {
	case i.listing.Owned:
		return i.listing.Title + " " + styles.ok.Render("[owned]")
	case i.listing.InCart:
		return i.listing.Title + " " + styles.warn.Render("[in cart]")
	default:
		return i.listing.Title
	}
}
func (i bookItem) Description() string {
	parts := []string{formatter.FormatPrice(i.listing.Price), fmt.Sprintf("★ %.1f", i.listing.TotalStar)}
	if author := i.listing.Author(); author != "" {
		parts = append([]string{author}, parts...)
	}
	return strings.Join(parts, " • ")
}

// cartItem wraps [models.CartItem] to implement [list.Item].
type cartItem struct {
	item models.CartItem
}

func (i cartItem) FilterValue() string { return i.item.Item.Title }
func (i cartItem) Title() string       { return i.item.Item.Title }
func (i cartItem) Description() string { return formatter.FormatPrice(i.item.Item.Price) }

// libraryItem wraps [models.LibraryEntry] to implement [list.Item].
type libraryItem struct {
	entry models.LibraryEntry
}

func (i libraryItem) FilterValue() string { return i.entry.Item.Title }
func (i libraryItem) Title() string       { return i.entry.Item.Title }
func (i libraryItem) Description() string {
	switch {
	case i.entry.IsCompleted:
		return "Completed"
	case i.entry.LastPosition > 0:
		return "Resume at " + formatter.FormatTime(i.entry.LastPosition)
	default:
		return i.entry.Item.Author()
	}
}
