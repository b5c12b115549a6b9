// package services defines the store API contract and its HTTP implementation
package services

import (
	"context"
	"encoding/json"

	"github.com/desertthunder/audx/internal/models"
)

// Catalog reads the immutable audiobook catalog.
type Catalog interface {
	ListAudiobooks(ctx context.Context) ([]models.Audiobook, error)
	GetAudiobook(ctx context.Context, audioID int) (*models.Audiobook, error)
	SearchAudiobooks(ctx context.Context, title string) ([]models.Audiobook, error)
	AudiobooksByAuthor(ctx context.Context, authorID int) ([]models.Audiobook, error)
}

// Accounts manages customer accounts.
type Accounts interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.Customer, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.Customer, error)
	Profile(ctx context.Context, customerID int) (*models.Customer, error)
	ChangePassword(ctx context.Context, req models.ChangePasswordRequest) (string, error)
	ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) (string, error)
}

// Carts reads and mutates a customer's cart. Mutations return the server's post-change cart.
type Carts interface {
	Cart(ctx context.Context, customerID int) (*models.Cart, error)
	AddToCart(ctx context.Context, customerID, audioID int) (*models.Cart, error)
	RemoveFromCart(ctx context.Context, customerID, audioID int) (*models.Cart, error)
}

// Libraries reads and prunes a customer's owned audiobooks.
type Libraries interface {
	Library(ctx context.Context, customerID int) ([]models.LibraryEntry, error)
	RemoveFromLibrary(ctx context.Context, customerID, audioID int) error
}

// Payments manages saved cards.
type Payments interface {
	AddCard(ctx context.Context, req models.PaymentRequest) (*models.PaymentCard, error)
	Cards(ctx context.Context, customerID int) ([]models.PaymentCard, error)
	DeleteCard(ctx context.Context, cardID int) error
}

// Orders places orders for the whole cart.
type Orders interface {
	PlaceOrder(ctx context.Context, customerID int, req models.PlaceOrderRequest) (json.RawMessage, error)
}

// Store is the full remote contract.
type Store interface {
	Catalog
	Accounts
	Carts
	Libraries
	Payments
	Orders
}

var _ Store = (*StoreClient)(nil)
var _ Catalog = (*CachedCatalog)(nil)
