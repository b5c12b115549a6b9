package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/audx/internal/formatter"
	"github.com/desertthunder/audx/internal/playback"
	"github.com/desertthunder/audx/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) requireDB() error {
	if r.db == nil {
		return fmt.Errorf("%w: no local database is open (run 'audx setup database')", shared.ErrMissingConfig)
	}
	return nil
}

// CachePositions lists the resume offsets saved on this machine.
func (r *Runner) CachePositions(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	entries, err := r.state.List(playback.PositionPrefix)
	if err != nil {
		return err
	}

	type row struct {
		AudioID   int     `json:"audioId"`
		Position  float64 `json:"position"`
		UpdatedAt string  `json:"updatedAt"`
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		id, ok := playback.AudioIDFromKey(e.Key)
		if !ok {
			continue
		}
		pos, err := playback.ParseOffset(e.Value)
		if err != nil {
			r.logger.Warn("ignoring malformed offset", "key", e.Key, "value", e.Value)
			continue
		}
		rows = append(rows, row{AudioID: id, Position: pos, UpdatedAt: e.UpdatedAt.Format("2006-01-02 15:04:05")})
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}
	if len(rows) == 0 {
		return r.writePlain("No saved positions.\n")
	}
	for _, rw := range rows {
		r.writePlain("  %4d  %8s  %s\n", rw.AudioID, formatter.FormatTime(rw.Position), rw.UpdatedAt)
	}
	return nil
}

// CacheClearPosition forgets the resume offset for one audiobook, or all of them with --all.
func (r *Runner) CacheClearPosition(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("all") {
		if err := r.requireDB(); err != nil {
			return err
		}
		entries, err := r.state.List(playback.PositionPrefix)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := r.state.Delete(e.Key); err != nil {
				return err
			}
		}
		return r.writePlain("✓ Cleared %d saved positions\n", len(entries))
	}

	audioID, err := idArg(cmd, "audioId")
	if err != nil {
		return err
	}
	if err := r.positions.Clear(audioID); err != nil {
		return err
	}
	return r.writePlain("✓ Cleared saved position for %d\n", audioID)
}

// CacheDownloads lists the download log.
func (r *Runner) CacheDownloads(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	criteria := map[string]any{}
	if cmd.IsSet("audio-id") {
		criteria["audio_id"] = cmd.Int("audio-id")
	}
	records, err := r.downloads.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(downloadRows(records), true)
	}
	if len(records) == 0 {
		return r.writePlain("No downloads logged.\n")
	}
	for _, d := range records {
		r.writePlain("  %s  %s  %4d  %-32s %s\n", d.ID(), d.CreatedAt().Format("2006-01-02 15:04"), d.AudioID(), d.Title(), d.Path())
	}
	return nil
}

// CacheForgetDownload removes one record from the download log. The file is left in place.
func (r *Runner) CacheForgetDownload(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: download id is required", shared.ErrMissingArgument)
	}
	if err := r.downloads.Delete(id); err != nil {
		return err
	}
	return r.writePlain("✓ Forgot download %s\n", id)
}
