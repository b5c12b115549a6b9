// Package catalog filters, sorts, and labels audiobook listings for display.
package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
)

// SortKey orders a listing.
type SortKey string

// Sort keys offered by the catalog view.
const (
	TitleAsc   SortKey = "title_asc"
	PriceAsc   SortKey = "price_asc"
	PriceDesc  SortKey = "price_desc"
	RatingAsc  SortKey = "rating_asc"
	RatingDesc SortKey = "rating_desc"
)

// SortKeys lists every key in menu order.
var SortKeys = []SortKey{TitleAsc, PriceAsc, PriceDesc, RatingDesc, RatingAsc}

// Label is the menu text for k.
func (k SortKey) Label() string {
	switch k {
	case PriceAsc:
		return "Price: Low to High"
	case PriceDesc:
		return "Price: High to Low"
	case RatingAsc:
		return "Rating: Low to High"
	case RatingDesc:
		return "Rating: High to Low"
	default:
		return "Title"
	}
}

// Next returns the key after k in menu order, wrapping around.
func (k SortKey) Next() SortKey {
	i := slices.Index(SortKeys, k)
	return SortKeys[(i+1)%len(SortKeys)]
}

// ParseSort reads a sort key. The empty string means [TitleAsc].
func ParseSort(s string) (SortKey, error) {
	if s == "" {
		return TitleAsc, nil
	}
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(SortKeys, k) {
		return "", fmt.Errorf("%w: unknown sort %q", shared.ErrInvalidArgument, s)
	}
	return k, nil
}

// Filter keeps books whose title or author name contains term, ignoring case. An empty term keeps
// everything.
func Filter(books []models.Audiobook, term string) []models.Audiobook {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return slices.Clone(books)
	}

	out := make([]models.Audiobook, 0, len(books))
	for _, b := range books {
		if strings.Contains(strings.ToLower(b.Title), term) || strings.Contains(strings.ToLower(b.Author()), term) {
			out = append(out, b)
		}
	}
	return out
}

// Sort returns a copy of books ordered by key. Ties keep their original order.
func Sort(books []models.Audiobook, key SortKey) []models.Audiobook {
	out := slices.Clone(books)

	field, dir, _ := strings.Cut(string(key), "_")
	compare := func(a, b models.Audiobook) int {
		switch field {
		case "price":
			return cmp.Compare(a.Price, b.Price)
		case "rating":
			return cmp.Compare(a.TotalStar, b.TotalStar)
		default:
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	}

	slices.SortStableFunc(out, func(a, b models.Audiobook) int {
		if dir == "desc" {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

// Listing is a catalog item with the viewer's relationship to it.
type Listing struct {
	models.Audiobook
	Owned  bool `json:"owned"`
	InCart bool `json:"inCart"`
}

// Membership answers whether an audio id belongs to some set, like the library or the cart.
type Membership func(audioID int) bool

// Decorate labels books with owned and in-cart flags. A nil membership counts as empty.
func Decorate(books []models.Audiobook, owned, inCart Membership) []Listing {
	out := make([]Listing, len(books))
	for i, b := range books {
		out[i] = Listing{Audiobook: b}
		if owned != nil {
			out[i].Owned = owned(b.AudioID)
		}
		if inCart != nil {
			out[i].InCart = inCart(b.AudioID)
		}
	}
	return out
}

// Browse filters, sorts, then decorates.
func Browse(books []models.Audiobook, term string, key SortKey, owned, inCart Membership) []Listing {
	return Decorate(Sort(Filter(books, term), key), owned, inCart)
}
