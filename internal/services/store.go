package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/audx/internal/models"
)

// StoreClient implements [Store] over HTTP.
type StoreClient struct {
	api *APIService
}

// NewStoreClient creates a [StoreClient] on top of api.
func NewStoreClient(api *APIService) *StoreClient {
	return &StoreClient{api: api}
}

// ListAudiobooks calls GET /api/audiobooks.
func (s *StoreClient) ListAudiobooks(ctx context.Context) ([]models.Audiobook, error) {
	var books []models.Audiobook
	if err := s.api.call(ctx, http.MethodGet, "/api/audiobooks", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// GetAudiobook calls GET /api/audiobooks/{id}.
func (s *StoreClient) GetAudiobook(ctx context.Context, audioID int) (*models.Audiobook, error) {
	var book models.Audiobook
	if err := s.api.call(ctx, http.MethodGet, fmt.Sprintf("/api/audiobooks/%d", audioID), nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// SearchAudiobooks calls GET /api/audiobooks/search?title=.
func (s *StoreClient) SearchAudiobooks(ctx context.Context, title string) ([]models.Audiobook, error) {
	path := "/api/audiobooks/search?" + url.Values{"title": {title}}.Encode()

	var books []models.Audiobook
	if err := s.api.call(ctx, http.MethodGet, path, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// AudiobooksByAuthor calls GET /api/audiobooks/author/{id}.
func (s *StoreClient) AudiobooksByAuthor(ctx context.Context, authorID int) ([]models.Audiobook, error) {
	var books []models.Audiobook
	if err := s.api.call(ctx, http.MethodGet, fmt.Sprintf("/api/audiobooks/author/%d", authorID), nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// Register calls POST /api/customers/register. The password confirmation is not sent.
func (s *StoreClient) Register(ctx context.Context, req models.RegisterRequest) (*models.Customer, error) {
	var customer models.Customer
	if err := s.api.call(ctx, http.MethodPost, "/api/customers/register", req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Login calls POST /api/customers/login.
func (s *StoreClient) Login(ctx context.Context, req models.LoginRequest) (*models.Customer, error) {
	var customer models.Customer
	if err := s.api.call(ctx, http.MethodPost, "/api/customers/login", req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Profile calls GET /api/customers/{id}.
func (s *StoreClient) Profile(ctx context.Context, customerID int) (*models.Customer, error) {
	var customer models.Customer
	if err := s.api.call(ctx, http.MethodGet, fmt.Sprintf("/api/customers/%d", customerID), nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// ChangePassword calls PUT /api/customers/change-password and returns the server's confirmation text.
func (s *StoreClient) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) (string, error) {
	return s.putForText(ctx, "/api/customers/change-password", req)
}

// ForgotPassword calls PUT /api/customers/forgot-password and returns the server's confirmation text.
func (s *StoreClient) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) (string, error) {
	return s.putForText(ctx, "/api/customers/forgot-password", req)
}

func (s *StoreClient) putForText(ctx context.Context, path string, req any) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := s.api.Put(ctx, path, data)
	if err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", err
	}
	return extractMessage(resp.Body), nil
}

// Cart calls GET /api/carts/{customerId}.
func (s *StoreClient) Cart(ctx context.Context, customerID int) (*models.Cart, error) {
	return s.cartCall(ctx, http.MethodGet, fmt.Sprintf("/api/carts/%d", customerID))
}

// AddToCart calls POST /api/carts/{customerId}/add/{audioId}.
func (s *StoreClient) AddToCart(ctx context.Context, customerID, audioID int) (*models.Cart, error) {
	return s.cartCall(ctx, http.MethodPost, fmt.Sprintf("/api/carts/%d/add/%d", customerID, audioID))
}

// RemoveFromCart calls DELETE /api/carts/{customerId}/remove/{audioId}.
func (s *StoreClient) RemoveFromCart(ctx context.Context, customerID, audioID int) (*models.Cart, error) {
	return s.cartCall(ctx, http.MethodDelete, fmt.Sprintf("/api/carts/%d/remove/%d", customerID, audioID))
}

func (s *StoreClient) cartCall(ctx context.Context, method, path string) (*models.Cart, error) {
	var cart models.Cart
	if err := s.api.call(ctx, method, path, nil, &cart); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// Library calls GET /api/library/{customerId} and normalizes every entry.
func (s *StoreClient) Library(ctx context.Context, customerID int) ([]models.LibraryEntry, error) {
	var wire []libraryWire
	if err := s.api.call(ctx, http.MethodGet, fmt.Sprintf("/api/library/%d", customerID), nil, &wire); err != nil {
		return nil, err
	}

	entries := make([]models.LibraryEntry, 0, len(wire))
	for _, w := range wire {
		entries = append(entries, w.normalize())
	}
	return entries, nil
}

// RemoveFromLibrary calls DELETE /api/library/{customerId}/{audioId}.
func (s *StoreClient) RemoveFromLibrary(ctx context.Context, customerID, audioID int) error {
	return s.api.call(ctx, http.MethodDelete, fmt.Sprintf("/api/library/%d/%d", customerID, audioID), nil, nil)
}

// AddCard calls POST /api/payment-cards.
func (s *StoreClient) AddCard(ctx context.Context, req models.PaymentRequest) (*models.PaymentCard, error) {
	var card models.PaymentCard
	if err := s.api.call(ctx, http.MethodPost, "/api/payment-cards", req, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// Cards calls GET /api/payment-cards/customer/{customerId}.
func (s *StoreClient) Cards(ctx context.Context, customerID int) ([]models.PaymentCard, error) {
	var cards []models.PaymentCard
	if err := s.api.call(ctx, http.MethodGet, fmt.Sprintf("/api/payment-cards/customer/%d", customerID), nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// DeleteCard calls DELETE /api/payment-cards/{cardId}.
func (s *StoreClient) DeleteCard(ctx context.Context, cardID int) error {
	return s.api.call(ctx, http.MethodDelete, fmt.Sprintf("/api/payment-cards/%d", cardID), nil, nil)
}

// PlaceOrder calls POST /api/orders/{customerId}/place and returns the raw order body.
func (s *StoreClient) PlaceOrder(ctx context.Context, customerID int, req models.PlaceOrderRequest) (json.RawMessage, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := s.api.Post(ctx, fmt.Sprintf("/api/orders/%d/place", customerID), data)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body), nil
}

// libraryWire accepts both historical library shapes: the id at the top level, nested in
// the audiobook, or both.
type libraryWire struct {
	LibraryID    int               `json:"libraryId"`
	CustomerID   int               `json:"customerId"`
	AudioID      *int              `json:"audioId"`
	Item         *models.Audiobook `json:"audiobook"`
	LastPosition *float64          `json:"lastPosition"`
	IsCompleted  bool              `json:"isCompleted"`
}

func (w libraryWire) normalize() models.LibraryEntry {
	entry := models.LibraryEntry{
		LibraryID:   w.LibraryID,
		CustomerID:  w.CustomerID,
		IsCompleted: w.IsCompleted,
	}
	if w.Item != nil {
		entry.Item = *w.Item
	}
	if w.AudioID != nil && *w.AudioID > 0 {
		entry.AudioID = *w.AudioID
	} else {
		entry.AudioID = entry.Item.AudioID
	}
	if entry.Item.AudioID == 0 {
		entry.Item.AudioID = entry.AudioID
	}
	if w.LastPosition != nil && *w.LastPosition > 0 {
		entry.LastPosition = *w.LastPosition
	}
	if d := entry.Item.KnownDuration(); d > 0 && entry.LastPosition > d {
		entry.LastPosition = d
	}
	return entry
}
