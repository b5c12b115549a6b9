package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/audx/internal/cart"
	"github.com/desertthunder/audx/internal/checkout"
	"github.com/desertthunder/audx/internal/formatter"
	"github.com/desertthunder/audx/internal/models"
	"github.com/urfave/cli/v3"
)

// CartShow prints the signed-in customer's cart with checkout quotes for both card types.
func (r *Runner) CartShow(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.session.CustomerID(); err != nil {
		return describe(err, "")
	}
	if err := r.cart.Refresh(ctx); err != nil {
		return describe(err, "Failed to load cart")
	}

	items := r.cart.Items()
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"cartId":     r.cart.CartID(),
			"items":      items,
			"totalCount": r.cart.TotalCount(),
			"totalPrice": r.cart.TotalPrice(),
		}, true)
	}

	if len(items) == 0 {
		return r.writePlain("Your cart is empty.\n")
	}

	r.writePlain("Cart (%d items):\n\n", r.cart.TotalCount())
	for _, it := range items {
		r.writePlain("  %4d  %-40s %10s\n", it.AudioID, it.Item.Title, formatter.FormatPrice(it.Item.Price))
	}
	r.writePlain("\n  Subtotal: %s\n", formatter.FormatPrice(r.cart.TotalPrice()))
	for _, cardType := range []string{models.CreditCard, models.DebitCard} {
		q := r.checkout.Quote(cardType)
		r.writePlain("  With %-12s %s (%.0f%% off, save %s)\n", cardType+":", formatter.FormatPrice(q.Final), q.Rate*100, formatter.FormatPrice(q.Discount))
	}
	return nil
}

// CartAdd puts an audiobook in the cart.
func (r *Runner) CartAdd(ctx context.Context, cmd *cli.Command) error {
	audioID, err := idArg(cmd, "audioId")
	if err != nil {
		return err
	}
	if _, err := r.library.OwnedAudioIDs(ctx); err != nil {
		r.logger.Debug("ownership check skipped", "error", err)
	}

	if err := r.cart.AddItem(ctx, audioID); err != nil {
		return describe(err, cart.AddFailed)
	}
	return r.writePlain("✓ Added %d to cart (%d items, %s)\n", audioID, r.cart.TotalCount(), formatter.FormatPrice(r.cart.TotalPrice()))
}

// CartRemove takes an audiobook out of the cart.
func (r *Runner) CartRemove(ctx context.Context, cmd *cli.Command) error {
	audioID, err := idArg(cmd, "audioId")
	if err != nil {
		return err
	}
	if err := r.cart.RemoveItem(ctx, audioID); err != nil {
		return describe(err, "Failed to remove from cart")
	}
	return r.writePlain("✓ Removed %d from cart (%d items left)\n", audioID, r.cart.TotalCount())
}

// Checkout pays for the whole cart with a saved card.
func (r *Runner) Checkout(ctx context.Context, cmd *cli.Command) error {
	customerID, err := r.session.CustomerID()
	if err != nil {
		return describe(err, "")
	}
	card, err := r.checkout.FindCard(ctx, cmd.Int("card"))
	if err != nil {
		return describe(err, "Failed to load cards")
	}
	if err := r.cart.Refresh(ctx); err != nil {
		return describe(err, "Failed to load cart")
	}
	if r.cart.TotalCount() == 0 {
		return r.writePlain("Your cart is empty.\n")
	}

	quote := r.checkout.Quote(card.CardType)
	r.writePlain("Paying %s with %s %s (%.0f%% off %s)\n",
		formatter.FormatPrice(quote.Final), card.CardType, card.MaskedNumber(), quote.Rate*100, formatter.FormatPrice(quote.Subtotal))

	result, err := r.checkout.PlaceOrder(ctx, customerID, card.CardType, cmd.String("cvv"))
	if err != nil {
		return describe(err, checkout.PaymentFailed)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result.Order, true)
	}
	r.writePlain("✓ Order placed. Your audiobooks are in your %s.\n", result.Next)
	return r.writePlain("Run 'audx library show' to see them.\n")
}

// CardsList prints saved cards.
func (r *Runner) CardsList(ctx context.Context, cmd *cli.Command) error {
	cards, err := r.checkout.Cards(ctx)
	if err != nil {
		return describe(err, "Failed to load cards")
	}
	if cmd.Bool("json") {
		return r.writeJSON(cards, true)
	}
	if len(cards) == 0 {
		return r.writePlain("No saved cards. Add one with 'audx cards add'.\n")
	}
	for _, c := range cards {
		r.writePlain("  %4d  %-12s %s  %s  expires %s\n", c.CardID, c.CardType, c.MaskedNumber(), c.CardHolderName, c.ExpiryDate)
	}
	return nil
}

// CardsAdd validates and saves a card.
func (r *Runner) CardsAdd(ctx context.Context, cmd *cli.Command) error {
	cardType := models.CreditCard
	if cmd.Bool("debit") {
		cardType = models.DebitCard
	}

	card, err := r.checkout.AddCard(ctx, models.PaymentRequest{
		CardNumber:     cmd.String("number"),
		CardHolderName: cmd.String("holder"),
		ExpiryDate:     cmd.String("expiry"),
		CVV:            cmd.String("cvv"),
		CardType:       cardType,
	})
	if err != nil {
		return describe(err, checkout.AddCardFailed)
	}
	return r.writePlain("✓ Saved %s %s as card %d\n", card.CardType, card.MaskedNumber(), card.CardID)
}

// CardsDelete removes a saved card.
func (r *Runner) CardsDelete(ctx context.Context, cmd *cli.Command) error {
	cardID, err := idArg(cmd, "cardId")
	if err != nil {
		return err
	}
	if err := r.checkout.DeleteCard(ctx, cardID); err != nil {
		return describe(err, fmt.Sprintf("Failed to delete card %d", cardID))
	}
	return r.writePlain("✓ Deleted card %d\n", cardID)
}
