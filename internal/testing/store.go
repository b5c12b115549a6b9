package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
)

// FakeStore is an in-memory store API double that records calls.
//
// Errs forces a method (by name, e.g. "AddToCart") to fail. Gate, when set, is called at the start of
// every method and may block to hold a request in flight. A request whose context is done once the
// gate opens fails with the context's error.
type FakeStore struct {
	mu        sync.Mutex
	Books     map[int]models.Audiobook
	carts     map[int][]int
	Libraries map[int][]models.LibraryEntry
	cards     map[int][]models.PaymentCard
	nextCard  int
	calls     map[string]int
	Errs      map[string]error
	Gate      func(method string)
}

// NewFakeStore creates a store stocked with books.
func NewFakeStore(books ...models.Audiobook) *FakeStore {
	s := &FakeStore{
		Books:     make(map[int]models.Audiobook),
		carts:     make(map[int][]int),
		Libraries: make(map[int][]models.LibraryEntry),
		cards:     make(map[int][]models.PaymentCard),
		calls:     make(map[string]int),
		Errs:      make(map[string]error),
		nextCard:  1,
	}
	for _, b := range books {
		s.Books[b.AudioID] = b
	}
	return s
}

// Book builds a catalog item with the given id, title, and price.
func Book(id int, title string, price float64) models.Audiobook {
	author := "Author " + title
	file := fmt.Sprintf("https://cdn.example.com/%d.mp3", id)
	return models.Audiobook{AudioID: id, Title: title, Price: price, AuthorName: &author, AudioFile: &file}
}

// Calls returns how many times method was invoked.
func (s *FakeStore) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// TotalCalls returns the number of calls across every method.
func (s *FakeStore) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// SeedCart puts audioIDs in customerID's cart without recording a call.
func (s *FakeStore) SeedCart(customerID int, audioIDs ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[customerID] = append(s.carts[customerID], audioIDs...)
}

func (s *FakeStore) enter(ctx context.Context, method string) error {
	if s.Gate != nil {
		s.Gate(method)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	return s.Errs[method]
}

func (s *FakeStore) ListAudiobooks(ctx context.Context) ([]models.Audiobook, error) {
	if err := s.enter(ctx, "ListAudiobooks"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedBooks(func(models.Audiobook) bool { return true }), nil
}

func (s *FakeStore) GetAudiobook(ctx context.Context, audioID int) (*models.Audiobook, error) {
	if err := s.enter(ctx, "GetAudiobook"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.Books[audioID]
	if !ok {
		return nil, &shared.RemoteError{Status: 404, Message: "Audiobook not found"}
	}
	return &b, nil
}

func (s *FakeStore) SearchAudiobooks(ctx context.Context, title string) ([]models.Audiobook, error) {
	if err := s.enter(ctx, "SearchAudiobooks"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(title)
	return s.sortedBooks(func(b models.Audiobook) bool { return strings.Contains(strings.ToLower(b.Title), q) }), nil
}

func (s *FakeStore) AudiobooksByAuthor(ctx context.Context, authorID int) ([]models.Audiobook, error) {
	if err := s.enter(ctx, "AudiobooksByAuthor"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedBooks(func(b models.Audiobook) bool { return b.AuthorID != nil && *b.AuthorID == authorID }), nil
}

func (s *FakeStore) sortedBooks(keep func(models.Audiobook) bool) []models.Audiobook {
	var out []models.Audiobook
	for _, b := range s.Books {
		if keep(b) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b models.Audiobook) int { return a.AudioID - b.AudioID })
	return out
}

func (s *FakeStore) Register(ctx context.Context, req models.RegisterRequest) (*models.Customer, error) {
	if err := s.enter(ctx, "Register"); err != nil {
		return nil, err
	}
	return &models.Customer{CustomerID: 1, Username: req.Username, Name: req.Name, Email: req.Email}, nil
}

func (s *FakeStore) Login(ctx context.Context, req models.LoginRequest) (*models.Customer, error) {
	if err := s.enter(ctx, "Login"); err != nil {
		return nil, err
	}
	return &models.Customer{CustomerID: 1, Username: req.Username, Email: req.Username + "@example.com"}, nil
}

func (s *FakeStore) Profile(ctx context.Context, customerID int) (*models.Customer, error) {
	if err := s.enter(ctx, "Profile"); err != nil {
		return nil, err
	}
	return &models.Customer{CustomerID: customerID, Username: fmt.Sprintf("user%d", customerID)}, nil
}

func (s *FakeStore) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) (string, error) {
	if err := s.enter(ctx, "ChangePassword"); err != nil {
		return "", err
	}
	return "Password changed successfully", nil
}

func (s *FakeStore) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) (string, error) {
	if err := s.enter(ctx, "ForgotPassword"); err != nil {
		return "", err
	}
	return "Password reset successfully", nil
}

func (s *FakeStore) Cart(ctx context.Context, customerID int) (*models.Cart, error) {
	if err := s.enter(ctx, "Cart"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartOf(customerID), nil
}

func (s *FakeStore) AddToCart(ctx context.Context, customerID, audioID int) (*models.Cart, error) {
	if err := s.enter(ctx, "AddToCart"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Books[audioID]; !ok {
		return nil, &shared.RemoteError{Status: 404, Message: "Audiobook not found"}
	}
	if slices.Contains(s.carts[customerID], audioID) {
		return nil, &shared.RemoteError{Status: 400, Message: "Audiobook already in cart"}
	}
	s.carts[customerID] = append(s.carts[customerID], audioID)
	return s.cartOf(customerID), nil
}

func (s *FakeStore) RemoveFromCart(ctx context.Context, customerID, audioID int) (*models.Cart, error) {
	if err := s.enter(ctx, "RemoveFromCart"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[customerID] = slices.DeleteFunc(s.carts[customerID], func(id int) bool { return id == audioID })
	return s.cartOf(customerID), nil
}

func (s *FakeStore) cartOf(customerID int) *models.Cart {
	cart := &models.Cart{CartID: customerID, CustomerID: customerID, Items: []models.CartItem{}}
	for i, id := range s.carts[customerID] {
		cart.Items = append(cart.Items, models.CartItem{CartEntryID: i + 1, CartID: customerID, AudioID: id, Item: s.Books[id]})
	}
	return cart
}

func (s *FakeStore) Library(ctx context.Context, customerID int) ([]models.LibraryEntry, error) {
	if err := s.enter(ctx, "Library"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.Libraries[customerID]), nil
}

func (s *FakeStore) RemoveFromLibrary(ctx context.Context, customerID, audioID int) error {
	if err := s.enter(ctx, "RemoveFromLibrary"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Libraries[customerID] = slices.DeleteFunc(s.Libraries[customerID], func(e models.LibraryEntry) bool {
		return e.AudioID == audioID || e.Item.AudioID == audioID
	})
	return nil
}

func (s *FakeStore) AddCard(ctx context.Context, req models.PaymentRequest) (*models.PaymentCard, error) {
	if err := s.enter(ctx, "AddCard"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	card := models.PaymentCard{
		CardID:         s.nextCard,
		CustomerID:     req.CustomerID,
		CardNumber:     req.CardNumber,
		CardHolderName: req.CardHolderName,
		ExpiryDate:     req.ExpiryDate,
		CardType:       req.CardType,
	}
	s.nextCard++
	s.cards[req.CustomerID] = append(s.cards[req.CustomerID], card)
	return &card, nil
}

func (s *FakeStore) Cards(ctx context.Context, customerID int) ([]models.PaymentCard, error) {
	if err := s.enter(ctx, "Cards"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cards[customerID]), nil
}

func (s *FakeStore) DeleteCard(ctx context.Context, cardID int) error {
	if err := s.enter(ctx, "DeleteCard"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for customer, cards := range s.cards {
		s.cards[customer] = slices.DeleteFunc(cards, func(c models.PaymentCard) bool { return c.CardID == cardID })
	}
	return nil
}

// PlaceOrder moves the cart into the library.
func (s *FakeStore) PlaceOrder(ctx context.Context, customerID int, req models.PlaceOrderRequest) (json.RawMessage, error) {
	if err := s.enter(ctx, "PlaceOrder"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.carts[customerID]) == 0 {
		return nil, &shared.RemoteError{Status: 400, Message: "Cart is empty"}
	}
	for _, id := range s.carts[customerID] {
		s.Libraries[customerID] = append(s.Libraries[customerID], models.LibraryEntry{
			LibraryID:  len(s.Libraries[customerID]) + 1,
			CustomerID: customerID,
			AudioID:    id,
			Item:       s.Books[id],
		})
	}
	s.carts[customerID] = nil
	return json.RawMessage(`{"status":"PLACED"}`), nil
}
