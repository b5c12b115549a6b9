// Package cart keeps a local reflection of the signed-in customer's server-side cart.
//
// The local copy is only ever replaced wholesale by a server response; nothing is added or removed
// ahead of confirmation. Every request takes a sequence number, and a response is applied only if it
// is still the newest request and the session has not changed since it was issued. Adds and removes
// for one customer run one at a time.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/services"
	"github.com/desertthunder/audx/internal/session"
	"github.com/desertthunder/audx/internal/shared"
)

// AddFailed is shown when the store gives no reason for a rejected add.
const AddFailed = "Failed to add to cart"

// Ownership reports whether the signed-in customer already owns an audiobook. It must not block on
// the network.
type Ownership interface {
	Owns(audioID int) bool
}

// Options configures a [State].
type Options struct {
	Ownership   Ownership
	AutoRefresh bool
	Logger      *log.Logger
}

// State is the cart of the current session.
type State struct {
	api         services.Carts
	session     *session.State
	owned       Ownership
	autoRefresh bool
	logger      *log.Logger
	unsubscribe func()

	mu       sync.Mutex
	items    []models.CartItem
	cartID   int
	seq      uint64
	mutators map[int]*sync.Mutex
}

// New creates a [State] bound to sess. Identity changes clear the items immediately.
func New(api services.Carts, sess *session.State, opts Options) *State {
	s := &State{
		api:         api,
		session:     sess,
		owned:       opts.Ownership,
		autoRefresh: opts.AutoRefresh,
		logger:      opts.Logger,
		mutators:    make(map[int]*sync.Mutex),
	}
	if s.logger == nil {
		s.logger = shared.DiscardLogger()
	}
	s.unsubscribe = sess.Subscribe(s.onSessionChange)
	return s
}

// SetOwnership installs the ownership checker used by [State.AddItem].
func (s *State) SetOwnership(o Ownership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owned = o
}

// Close detaches from the session.
func (s *State) Close() {
	s.unsubscribe()
}

func (s *State) onSessionChange(current *models.Session) {
	s.mu.Lock()
	s.items = nil
	s.cartID = 0
	s.seq++
	s.mu.Unlock()

	if s.autoRefresh && current != nil {
		go func() {
			if err := s.Refresh(context.Background()); err != nil {
				s.logger.Warn("cart refresh after sign-in failed", "error", err)
			}
		}()
	}
}

// Refresh replaces the items with the server's cart. On failure the cart becomes empty and the
// error is returned; there is no retry. Without a session the cart is empty and the error is nil.
func (s *State) Refresh(ctx context.Context) error {
	current, gen := s.session.Snapshot()
	if current == nil {
		s.mu.Lock()
		s.items = nil
		s.cartID = 0
		s.mu.Unlock()
		return nil
	}

	seq := s.issue()
	cart, err := s.api.Cart(ctx, current.CustomerID)
	if err != nil {
		s.apply(seq, gen, &models.Cart{})
		s.logger.Warn("cart refresh failed", "customer_id", current.CustomerID, "error", err)
		return fmt.Errorf("failed to load cart: %w", err)
	}

	s.apply(seq, gen, cart)
	return nil
}

// AddItem adds audioID on the server and adopts the returned cart.
//
// It fails with [shared.ErrNotAuthenticated] without a session and with [shared.ErrAlreadyOwned],
// before any request, when the ownership checker reports the item owned.
func (s *State) AddItem(ctx context.Context, audioID int) error {
	return s.mutate(ctx, audioID, true)
}

// RemoveItem removes audioID on the server and adopts the returned cart.
func (s *State) RemoveItem(ctx context.Context, audioID int) error {
	return s.mutate(ctx, audioID, false)
}

func (s *State) mutate(ctx context.Context, audioID int, add bool) error {
	current, gen := s.session.Snapshot()
	if current == nil {
		return shared.ErrNotAuthenticated
	}

	s.mu.Lock()
	owned := s.owned
	s.mu.Unlock()
	if add && owned != nil && owned.Owns(audioID) {
		return shared.ErrAlreadyOwned
	}

	lock := s.mutator(current.CustomerID)
	lock.Lock()
	defer lock.Unlock()

	seq := s.issue()

	var (
		cart *models.Cart
		err  error
	)
	if add {
		cart, err = s.api.AddToCart(ctx, current.CustomerID, audioID)
	} else {
		cart, err = s.api.RemoveFromCart(ctx, current.CustomerID, audioID)
	}
	if err != nil {
		s.logger.Warn("cart update failed", "customer_id", current.CustomerID, "audio_id", audioID, "add", add, "error", err)
		return err
	}

	s.apply(seq, gen, cart)
	s.logger.Info("cart updated", "customer_id", current.CustomerID, "audio_id", audioID, "add", add, "items", len(cart.Items))
	return nil
}

func (s *State) mutator(customerID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.mutators[customerID]
	if !ok {
		m = &sync.Mutex{}
		s.mutators[customerID] = m
	}
	return m
}

func (s *State) issue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// apply adopts cart if seq is still the newest request and the session generation is unchanged.
func (s *State) apply(seq, gen uint64, cart *models.Cart) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq || gen != s.session.Generation() {
		s.logger.Debug("discarding stale cart response", "seq", seq, "latest", s.seq)
		return false
	}

	s.items = append([]models.CartItem(nil), cart.Items...)
	s.cartID = cart.CartID
	return true
}

// Items returns a copy of the current items.
func (s *State) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartItem(nil), s.items...)
}

// CartID returns the server's cart id, or 0 before the first successful fetch.
func (s *State) CartID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartID
}

// Contains reports whether audioID is in the cart.
func (s *State) Contains(audioID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.AudioID == audioID || it.Item.AudioID == audioID {
			return true
		}
	}
	return false
}

// TotalCount returns the number of items.
func (s *State) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// TotalPrice sums the server's price for every item.
func (s *State) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for _, it := range s.items {
		total += it.Item.Price
	}
	return total
}
