package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/audx/internal/catalog"
	"github.com/desertthunder/audx/internal/formatter"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
	"github.com/urfave/cli/v3"
)

// CatalogList prints every audiobook, filtered and sorted locally.
func (r *Runner) CatalogList(ctx context.Context, cmd *cli.Command) error {
	key, err := catalog.ParseSort(cmd.String("sort"))
	if err != nil {
		return err
	}

	books, err := r.catalog.ListAudiobooks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list audiobooks: %w", err)
	}

	return r.printListings(ctx, books, cmd.String("filter"), key, cmd.Bool("json"))
}

// CatalogSearch prints audiobooks whose title matches the query.
func (r *Runner) CatalogSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}
	key, err := catalog.ParseSort(cmd.String("sort"))
	if err != nil {
		return err
	}

	books, err := r.catalog.SearchAudiobooks(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to search audiobooks: %w", err)
	}

	return r.printListings(ctx, books, "", key, cmd.Bool("json"))
}

// CatalogAuthor prints every audiobook by an author.
func (r *Runner) CatalogAuthor(ctx context.Context, cmd *cli.Command) error {
	authorID, err := idArg(cmd, "authorId")
	if err != nil {
		return err
	}
	key, err := catalog.ParseSort(cmd.String("sort"))
	if err != nil {
		return err
	}

	books, err := r.catalog.AudiobooksByAuthor(ctx, authorID)
	if err != nil {
		return fmt.Errorf("failed to list audiobooks by author: %w", err)
	}

	return r.printListings(ctx, books, "", key, cmd.Bool("json"))
}

// CatalogShow prints one audiobook in detail.
func (r *Runner) CatalogShow(ctx context.Context, cmd *cli.Command) error {
	audioID, err := idArg(cmd, "audioId")
	if err != nil {
		return err
	}

	book, err := r.catalog.GetAudiobook(ctx, audioID)
	if err != nil {
		return fmt.Errorf("failed to load audiobook %d: %w", audioID, err)
	}

	r.loadMembership(ctx)
	listing := catalog.Decorate([]models.Audiobook{*book}, r.library.Owns, r.cart.Contains)[0]
	if cmd.Bool("json") {
		return r.writeJSON(listing, true)
	}

	r.writePlainHeader(book.Title)
	if author := book.Author(); author != "" {
		r.writePlain("Author:    %s\n", author)
	}
	if book.Narrator != "" {
		r.writePlain("Narrator:  %s\n", book.Narrator)
	}
	if d := book.KnownDuration(); d > 0 {
		r.writePlain("Duration:  %s\n", formatter.FormatTime(d))
	}
	r.writePlain("Price:     %s\n", formatter.FormatPrice(book.Price))
	r.writePlain("Rating:    ★ %.1f\n", book.TotalStar)
	switch {
	case listing.Owned:
		r.writePlain("Status:    in your library\n")
	case listing.InCart:
		r.writePlain("Status:    in your cart\n")
	}
	if book.Description != "" {
		r.writePlainln("%s", book.Description)
	}
	return nil
}

// CatalogOpen hands an audiobook's cover, preview or audio file to the system opener.
func (r *Runner) CatalogOpen(ctx context.Context, cmd *cli.Command) error {
	audioID, err := idArg(cmd, "audioId")
	if err != nil {
		return err
	}

	book, err := r.catalog.GetAudiobook(ctx, audioID)
	if err != nil {
		return fmt.Errorf("failed to load audiobook %d: %w", audioID, err)
	}

	var target *string
	switch what := cmd.String("what"); what {
	case "cover":
		target = book.CoverImage
	case "clip":
		target = book.ShortClip
	case "audio":
		target = book.AudioFile
	default:
		return fmt.Errorf("%w: --what must be cover, clip or audio, got %q", shared.ErrInvalidArgument, what)
	}
	if target == nil || *target == "" {
		return fmt.Errorf("%w: audiobook %d has no %s", shared.ErrNoSource, audioID, cmd.String("what"))
	}

	r.logger.Info("opening", "audio_id", audioID, "target", *target)
	return shared.OpenExternal(*target)
}

// loadMembership refreshes the library and cart when signed in so listings can be flagged.
func (r *Runner) loadMembership(ctx context.Context) {
	if _, ok := r.session.Current(); !ok {
		return
	}
	if _, err := r.library.OwnedAudioIDs(ctx); err != nil {
		r.logger.Debug("library unavailable for flags", "error", err)
	}
	if err := r.cart.Refresh(ctx); err != nil {
		r.logger.Debug("cart unavailable for flags", "error", err)
	}
}

func (r *Runner) printListings(ctx context.Context, books []models.Audiobook, term string, key catalog.SortKey, asJSON bool) error {
	r.loadMembership(ctx)
	listings := catalog.Browse(books, term, key, r.library.Owns, r.cart.Contains)

	if asJSON {
		return r.writeJSON(listings, true)
	}

	if len(listings) == 0 {
		return r.writePlain("No audiobooks found.\n")
	}

	r.writePlain("Audiobooks (%s):\n\n", key.Label())
	for _, l := range listings {
		flag := ""
		switch {
		case l.Owned:
			flag = " [owned]"
		case l.InCart:
			flag = " [in cart]"
		}
		r.writePlain("  %4d  %-40s %10s  ★ %.1f%s\n", l.AudioID, l.Title, formatter.FormatPrice(l.Price), l.TotalStar, flag)
		if author := l.Author(); author != "" {
			r.writePlain("        %s\n", author)
		}
	}
	return r.writePlainln("%d audiobooks", len(listings))
}
