package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// CachedCatalog decorates a [Catalog] with local caches.
//
// Listings (all, search, by author) expire after a TTL. Items are kept in a bounded LRU and are
// also filled from every listing that passes through.
type CachedCatalog struct {
	next   Catalog
	lists  *cache.Cache
	items  *lru.Cache[int, models.Audiobook]
	group  singleflight.Group
	logger *log.Logger
}

// NewCachedCatalog wraps next. ttl bounds listing freshness; size bounds the item LRU.
func NewCachedCatalog(next Catalog, ttl time.Duration, size int, logger *log.Logger) (*CachedCatalog, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: item cache size must be positive", shared.ErrInvalidConfig)
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	items, err := lru.New[int, models.Audiobook](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create item cache: %w", err)
	}

	return &CachedCatalog{
		next:   next,
		lists:  cache.New(ttl, 2*ttl),
		items:  items,
		logger: logger,
	}, nil
}

// ListAudiobooks returns the full catalog.
func (c *CachedCatalog) ListAudiobooks(ctx context.Context) ([]models.Audiobook, error) {
	return c.listing("all", func() ([]models.Audiobook, error) {
		return c.next.ListAudiobooks(ctx)
	})
}

// SearchAudiobooks returns titles matching title. Keys are case-folded.
func (c *CachedCatalog) SearchAudiobooks(ctx context.Context, title string) ([]models.Audiobook, error) {
	key := "search:" + strings.ToLower(strings.TrimSpace(title))
	return c.listing(key, func() ([]models.Audiobook, error) {
		return c.next.SearchAudiobooks(ctx, title)
	})
}

// AudiobooksByAuthor returns an author's titles.
func (c *CachedCatalog) AudiobooksByAuthor(ctx context.Context, authorID int) ([]models.Audiobook, error) {
	return c.listing("author:"+strconv.Itoa(authorID), func() ([]models.Audiobook, error) {
		return c.next.AudiobooksByAuthor(ctx, authorID)
	})
}

// GetAudiobook returns one item, sharing one upstream request among concurrent callers.
func (c *CachedCatalog) GetAudiobook(ctx context.Context, audioID int) (*models.Audiobook, error) {
	if book, ok := c.items.Get(audioID); ok {
		return &book, nil
	}

	v, err, coalesced := c.group.Do(strconv.Itoa(audioID), func() (any, error) {
		book, err := c.next.GetAudiobook(ctx, audioID)
		if err != nil {
			return nil, err
		}
		c.items.Add(book.AudioID, *book)
		return *book, nil
	})
	if err != nil {
		return nil, err
	}
	if coalesced {
		c.logger.Debug("coalesced item fetch", "audio_id", audioID)
	}

	book := v.(models.Audiobook)
	return &book, nil
}

// Invalidate drops every cached listing and item.
func (c *CachedCatalog) Invalidate() {
	c.lists.Flush()
	c.items.Purge()
}

func (c *CachedCatalog) listing(key string, fetch func() ([]models.Audiobook, error)) ([]models.Audiobook, error) {
	if v, ok := c.lists.Get(key); ok {
		return cloneBooks(v.([]models.Audiobook)), nil
	}

	v, err, _ := c.group.Do("list:"+key, func() (any, error) {
		books, err := fetch()
		if err != nil {
			return nil, err
		}
		c.lists.SetDefault(key, books)
		for _, b := range books {
			c.items.Add(b.AudioID, b)
		}
		return books, nil
	})
	if err != nil {
		return nil, err
	}

	return cloneBooks(v.([]models.Audiobook)), nil
}

func cloneBooks(books []models.Audiobook) []models.Audiobook {
	out := make([]models.Audiobook, len(books))
	copy(out, books)
	return out
}
