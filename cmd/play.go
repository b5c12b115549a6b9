package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/audx/internal/formatter"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/playback"
	"github.com/desertthunder/audx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Play plays an owned audiobook, or any audiobook's preview, printing the playhead until it ends,
// the --for limit passes, or the process is interrupted.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	audioID, err := idArg(cmd, "audioId")
	if err != nil {
		return err
	}

	book, src, resume, err := r.resolveSource(ctx, audioID, cmd.Bool("preview"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if limit := cmd.Duration("for"); limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	player := r.transport()
	defer player.Unbind()

	if err := player.Load(ctx, src, resume); err != nil {
		return describe(err, "Failed to load audio")
	}
	if cmd.IsSet("from") {
		player.Seek(cmd.Float("from"))
	}
	if cmd.IsSet("rate") {
		if err := player.SetPlaybackRate(cmd.Float("rate")); err != nil {
			return err
		}
	}
	if err := player.TogglePlayPause(); err != nil {
		return describe(err, "Failed to start playback")
	}

	label := book.Title
	if src.ItemID == 0 {
		label += " (preview)"
	}
	r.writePlain("▶ %s\n", label)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		st := player.Status()
		r.writePlain("\r  %s / %s  %.2gx ", formatter.FormatTime(st.Position), formatter.FormatTime(st.Duration), st.Rate)
		if st.State == playback.Ended {
			return r.writePlain("\n■ finished\n")
		}

		select {
		case <-ctx.Done():
			return r.writePlain("\n■ stopped at %s\n", formatter.FormatTime(player.CurrentTime()))
		case <-ticker.C:
		}
	}
}

// resolveSource picks the full file for an owned audiobook or the short clip for a preview.
func (r *Runner) resolveSource(ctx context.Context, audioID int, preview bool) (models.Audiobook, playback.Source, float64, error) {
	if preview {
		book, err := r.catalog.GetAudiobook(ctx, audioID)
		if err != nil {
			return models.Audiobook{}, playback.Source{}, 0, fmt.Errorf("failed to load audiobook %d: %w", audioID, err)
		}
		if book.ShortClip == nil || *book.ShortClip == "" {
			return *book, playback.Source{}, 0, describe(shared.ErrNoSource, "")
		}
		return *book, playback.Source{URL: *book.ShortClip}, 0, nil
	}

	entries, err := r.library.Entries(ctx)
	if err != nil {
		return models.Audiobook{}, playback.Source{}, 0, describe(err, "Failed to load library")
	}
	for _, e := range entries {
		if e.AudioID != audioID {
			continue
		}
		src := playback.Source{URL: e.Item.AudioURL(), ItemID: e.AudioID, Duration: e.Item.KnownDuration()}
		if src.URL == "" {
			return e.Item, src, 0, describe(shared.ErrNoSource, "")
		}
		return e.Item, src, e.LastPosition, nil
	}
	return models.Audiobook{}, playback.Source{}, 0, fmt.Errorf("%w: audiobook %d is not in your library (try --preview)", shared.ErrInvalidArgument, audioID)
}
