// Package checkout prices the cart, manages saved cards, and places orders.
package checkout

import (
	"context"
	"encoding/json"
	"math"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/cart"
	"github.com/desertthunder/audx/internal/forms"
	"github.com/desertthunder/audx/internal/library"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/services"
	"github.com/desertthunder/audx/internal/session"
	"github.com/desertthunder/audx/internal/shared"
)

// NextLibrary is where the client goes after a successful order.
const NextLibrary = "library"

// Messages shown when the store gives no reason.
const (
	AddCardFailed = "Failed to add card"
	PaymentFailed = "Payment failed"
)

// Discount rates by card type.
const (
	DebitDiscount  = 0.05
	CreditDiscount = 0.10
)

// DiscountRate returns the discount for cardType. Anything other than a debit card gets the credit
// rate.
func DiscountRate(cardType string) float64 {
	if cardType == models.DebitCard {
		return DebitDiscount
	}
	return CreditDiscount
}

// Quote is the price breakdown shown before an order is placed.
type Quote struct {
	Subtotal float64
	Rate     float64
	Discount float64
	Final    float64
}

// NewQuote prices subtotal for cardType, rounded to the nearest paisa.
func NewQuote(subtotal float64, cardType string) Quote {
	rate := DiscountRate(cardType)
	final := roundPaise(subtotal * (1 - rate))
	return Quote{
		Subtotal: roundPaise(subtotal),
		Rate:     rate,
		Discount: roundPaise(subtotal - final),
		Final:    final,
	}
}

func roundPaise(v float64) float64 {
	return math.Round(v*100) / 100
}

// Result tells the caller what to show after an order.
type Result struct {
	Next  string
	Order json.RawMessage
}

// Flow ties checkout to the current session, cart and library.
type Flow struct {
	orders    services.Orders
	payments  services.Payments
	cart      *cart.State
	library   *library.Query
	session   *session.State
	validator *forms.Validator
	logger    *log.Logger
}

// New creates a [Flow]. A nil validator gets the default rules.
func New(orders services.Orders, payments services.Payments, c *cart.State, lib *library.Query, sess *session.State, v *forms.Validator, logger *log.Logger) *Flow {
	if v == nil {
		v = forms.New()
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Flow{orders: orders, payments: payments, cart: c, library: lib, session: sess, validator: v, logger: logger}
}

// Quote prices the current cart for cardType.
func (f *Flow) Quote(cardType string) Quote {
	return NewQuote(f.cart.TotalPrice(), cardType)
}

// PlaceOrder buys the whole cart of customerID with a saved card of cardType.
//
// The CVV must be exactly three digits or [shared.ErrInvalidCVV] is returned without a request. On
// success the cart is re-fetched, which the server will have emptied, and the library snapshot is
// dropped and re-fetched so the purchased items count as owned. Failed re-fetches are logged but do
// not fail the order. On failure the cart and library are left alone.
func (f *Flow) PlaceOrder(ctx context.Context, customerID int, cardType, cvv string) (*Result, error) {
	if !forms.CVV(cvv) {
		return nil, shared.ErrInvalidCVV
	}

	order, err := f.orders.PlaceOrder(ctx, customerID, models.PlaceOrderRequest{PaymentMethod: cardType, CVV: cvv})
	if err != nil {
		f.logger.Warn("order failed", "customer_id", customerID, "card_type", cardType, "error", err)
		return nil, err
	}
	f.logger.Info("order placed", "customer_id", customerID, "card_type", cardType)

	if err := f.cart.Refresh(ctx); err != nil {
		f.logger.Warn("cart refresh after order failed", "error", err)
	}
	f.library.Clear()
	if _, err := f.library.OwnedAudioIDs(ctx); err != nil {
		f.logger.Warn("library refresh after order failed", "error", err)
	}
	return &Result{Next: NextLibrary, Order: order}, nil
}

// Cards lists the saved cards of the signed-in customer.
func (f *Flow) Cards(ctx context.Context) ([]models.PaymentCard, error) {
	customerID, err := f.session.CustomerID()
	if err != nil {
		return nil, err
	}
	return f.payments.Cards(ctx, customerID)
}

// AddCard validates form and saves it for the signed-in customer.
func (f *Flow) AddCard(ctx context.Context, form models.PaymentRequest) (*models.PaymentCard, error) {
	customerID, err := f.session.CustomerID()
	if err != nil {
		return nil, err
	}
	form.CustomerID = customerID

	if err := f.validator.Card(form); err != nil {
		return nil, err
	}

	card, err := f.payments.AddCard(ctx, form)
	if err != nil {
		f.logger.Warn("adding card failed", "customer_id", customerID, "error", err)
		return nil, err
	}
	f.logger.Info("card added", "customer_id", customerID, "card_id", card.CardID, "card_type", card.CardType)
	return card, nil
}

// DeleteCard removes a saved card.
func (f *Flow) DeleteCard(ctx context.Context, cardID int) error {
	if _, err := f.session.CustomerID(); err != nil {
		return err
	}
	if err := f.payments.DeleteCard(ctx, cardID); err != nil {
		f.logger.Warn("deleting card failed", "card_id", cardID, "error", err)
		return err
	}
	f.logger.Info("card deleted", "card_id", cardID)
	return nil
}

// FindCard returns the saved card with cardID.
func (f *Flow) FindCard(ctx context.Context, cardID int) (*models.PaymentCard, error) {
	cards, err := f.Cards(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		if c.CardID == cardID {
			return &c, nil
		}
	}
	return nil, shared.NewValidationError("card", "Card not found")
}
