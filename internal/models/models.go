// package models defines the data model for the audiobook store client
package models

import (
	"time"
)

// Model is implemented by locally persisted entities.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines data access for a local entity type.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Session is the signed-in customer. Exactly one is active at a time.
type Session struct {
	CustomerID int    `json:"customerId"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
}

// Customer is the account record returned by register, login, and profile endpoints.
type Customer struct {
	CustomerID int    `json:"customerId"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// Session converts the account record into the identity held by the client.
func (c Customer) Session() Session {
	return Session{CustomerID: c.CustomerID, Username: c.Username, Email: c.Email, Name: c.Name}
}

// Audiobook is a catalog item.
type Audiobook struct {
	AudioID     int      `json:"audioId"`
	Title       string   `json:"title"`
	Narrator    string   `json:"narrator"`
	Duration    *float64 `json:"duration"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	CoverImage  *string  `json:"coverImage"`
	AudioFile   *string  `json:"audioFile"`
	ShortClip   *string  `json:"shortClip"`
	TotalStar   float64  `json:"totalStar"`
	AuthorID    *int     `json:"authorId"`
	AuthorName  *string  `json:"authorName"`
}

// AudioURL returns the full audio file location, or "" when the item has none.
func (a Audiobook) AudioURL() string {
	return deref(a.AudioFile)
}

// Author returns the author name, or "" when unknown.
func (a Audiobook) Author() string {
	return deref(a.AuthorName)
}

// KnownDuration returns the catalog duration in seconds, or 0 when unknown.
func (a Audiobook) KnownDuration() float64 {
	if a.Duration == nil || *a.Duration < 0 {
		return 0
	}
	return *a.Duration
}

// CartItem is one line of a [Cart].
type CartItem struct {
	CartEntryID int       `json:"audioCartId"`
	CartID      int       `json:"cartId"`
	AudioID     int       `json:"audioId"`
	Item        Audiobook `json:"audiobook"`
}

// Cart is the server's authoritative cart for a customer.
type Cart struct {
	CartID     int        `json:"cartId"`
	CustomerID int        `json:"customerId"`
	Items      []CartItem `json:"cartItems"`
}

// LibraryEntry is an owned audiobook.
//
// AudioID is canonical: it is filled from the nested item when the server omits it.
type LibraryEntry struct {
	LibraryID    int       `json:"libraryId"`
	CustomerID   int       `json:"customerId"`
	AudioID      int       `json:"audioId"`
	Item         Audiobook `json:"audiobook"`
	LastPosition float64   `json:"lastPosition"`
	IsCompleted  bool      `json:"isCompleted"`
}

// Card types accepted by the store.
const (
	CreditCard = "Credit Card"
	DebitCard  = "Debit Card"
)

// PaymentCard is a saved card.
type PaymentCard struct {
	CardID         int    `json:"cardId"`
	CustomerID     int    `json:"customerId"`
	CardNumber     string `json:"cardNumber"`
	CardHolderName string `json:"cardHolderName"`
	ExpiryDate     string `json:"expiryDate"`
	CardType       string `json:"cardType"`
}

// MaskedNumber returns the card number with all but the last four digits hidden.
func (c PaymentCard) MaskedNumber() string {
	n := len(c.CardNumber)
	if n <= 4 {
		return c.CardNumber
	}
	return "**** **** **** " + c.CardNumber[n-4:]
}

// LoginRequest is the body of POST /api/customers/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the registration form. ConfirmPassword is checked locally and never sent.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,username"`
	Name            string `json:"name" validate:"required,fullname"`
	Email           string `json:"email" validate:"required,storeemail"`
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"-" validate:"eqfield=Password"`
}

// ChangePasswordRequest is the body of PUT /api/customers/change-password.
type ChangePasswordRequest struct {
	CustomerID  int    `json:"customerId"`
	NewPassword string `json:"newPassword"`
}

// ForgotPasswordRequest is the body of PUT /api/customers/forgot-password.
type ForgotPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// PaymentRequest is the body of POST /api/payment-cards.
type PaymentRequest struct {
	CustomerID     int    `json:"customerId"`
	CardNumber     string `json:"cardNumber" validate:"len=16,number"`
	CardHolderName string `json:"cardHolderName" validate:"required,holder"`
	ExpiryDate     string `json:"expiryDate" validate:"required,futuredate"`
	CVV            string `json:"cvv" validate:"len=3,number"`
	CardType       string `json:"cardType" validate:"oneof='Credit Card' 'Debit Card'"`
}

// PlaceOrderRequest is the body of POST /api/orders/{customerId}/place.
type PlaceOrderRequest struct {
	PaymentMethod string `json:"paymentMethod"`
	CVV           string `json:"cvv"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
