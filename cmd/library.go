package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/audx/internal/formatter"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
	"github.com/desertthunder/audx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// LibraryShow prints owned audiobooks with their listening progress.
func (r *Runner) LibraryShow(ctx context.Context, cmd *cli.Command) error {
	entries, err := r.library.Entries(ctx)
	if err != nil {
		return describe(err, "Failed to load library")
	}
	entries = r.withLocalPositions(entries)

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}
	if len(entries) == 0 {
		return r.writePlain("Your library is empty.\n")
	}

	r.writePlain("Library (%d audiobooks):\n\n", len(entries))
	for _, e := range entries {
		progress := "not started"
		switch {
		case e.IsCompleted:
			progress = "completed"
		case e.LastPosition > 0:
			progress = "at " + formatter.FormatTime(e.LastPosition)
			if d := e.Item.KnownDuration(); d > 0 {
				progress += " of " + formatter.FormatTime(d)
			}
		}
		r.writePlain("  %4d  %-40s %s\n", e.AudioID, e.Item.Title, progress)
	}
	return nil
}

// LibraryRemove deletes an audiobook from the library.
func (r *Runner) LibraryRemove(ctx context.Context, cmd *cli.Command) error {
	audioID, err := idArg(cmd, "audioId")
	if err != nil {
		return err
	}
	customerID, err := r.session.CustomerID()
	if err != nil {
		return describe(err, "")
	}

	if err := r.library.RemoveEntry(ctx, customerID, audioID); err != nil {
		return describe(err, "Failed to remove from library")
	}
	if err := r.positions.Clear(audioID); err != nil {
		r.logger.Warn("failed to clear resume position", "audio_id", audioID, "error", err)
	}
	return r.writePlain("✓ Removed %d from your library\n", audioID)
}

// LibraryExport writes the library as CSV, Markdown, plain text or JSON.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	current, ok := r.session.Current()
	if !ok {
		return describe(shared.ErrNotAuthenticated, "")
	}
	entries, err := r.library.Entries(ctx)
	if err != nil {
		return describe(err, "Failed to load library")
	}

	export := formatter.NewLibraryExport(*current, r.withLocalPositions(entries))
	out := cmd.String("output")

	switch format := strings.ToLower(cmd.String("format")); format {
	case "csv":
		path, err := formatter.WriteCSVExport(export, out)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d audiobooks to %s\n", len(entries), path)
	case "txt", "text":
		path, err := formatter.WriteTextExport(export, out)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d audiobooks to %s\n", len(entries), path)
	case "md", "markdown":
		res, err := formatter.WriteMarkdownExport(export, out, formatter.MarkdownOptions{
			Covers: cmd.Bool("covers"),
			Client: r.httpClient,
			Logger: r.logger,
		})
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d audiobooks to %s (%d covers)\n", len(entries), res.Directory, res.Covers)
	case "json":
		data, err := formatter.ExportToJSON(export)
		if err != nil {
			return err
		}
		_, err = r.output.Write(append(data, '\n'))
		return err
	default:
		return fmt.Errorf("%w: unknown format %q (csv, md, txt, json)", shared.ErrInvalidArgument, format)
	}
}

// LibraryDownload saves the audio files of owned audiobooks.
func (r *Runner) LibraryDownload(ctx context.Context, cmd *cli.Command) error {
	entries, err := r.library.Entries(ctx)
	if err != nil {
		return describe(err, "Failed to load library")
	}

	if ids := cmd.IntSlice("id"); len(ids) > 0 {
		want := make(map[int]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
		var picked []models.LibraryEntry
		for _, e := range entries {
			if want[e.AudioID] {
				picked = append(picked, e)
			}
		}
		entries = picked
	}
	if len(entries) == 0 {
		return r.writePlain("Nothing to download.\n")
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			switch update.Phase {
			case tasks.Prepare:
				r.writePlain("📁 %s\n", update.Message)
			case tasks.Download:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.WriteManifest:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.BulkDownload(ctx, progress, entries, tasks.BulkDownloadOpts{
		OutputDir:  cmd.String("out"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		Overwrite:  cmd.Bool("overwrite"),
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Download Complete")
	r.writePlain("Directory:  %s\n", result.OutputDirectory)
	r.writePlain("Saved:      %d\n", result.Successful)
	r.writePlain("Skipped:    %d\n", result.Skipped)
	r.writePlain("Failed:     %d\n", result.Failed)
	for _, res := range result.Results {
		if res.Error != nil {
			r.writePlain("  ✗ %s: %v\n", res.Title, res.Error)
		}
	}
	return nil
}

// LibraryAudit compares the download log with the library.
func (r *Runner) LibraryAudit(ctx context.Context, cmd *cli.Command) error {
	entries, err := r.library.Entries(ctx)
	if err != nil {
		return describe(err, "Failed to load library")
	}

	result, err := r.engine.Audit(ctx, nil, entries)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		view := map[string]any{"missing": result.Missing}
		view["downloaded"] = downloadRows(result.Downloaded)
		view["orphaned"] = downloadRows(result.Orphaned)
		view["vanished"] = downloadRows(result.Vanished)
		return r.writeJSON(view, true)
	}

	r.writePlainHeader("Download Audit")
	r.writePlain("Downloaded: %d\n", len(result.Downloaded))
	for _, e := range result.Missing {
		r.writePlain("  missing   %4d  %s\n", e.AudioID, e.Item.Title)
	}
	for _, d := range result.Vanished {
		r.writePlain("  vanished  %4d  %s (%s)\n", d.AudioID(), d.Title(), d.Path())
	}
	for _, d := range result.Orphaned {
		r.writePlain("  orphaned  %4d  %s (%s)\n", d.AudioID(), d.Title(), d.Path())
	}
	return nil
}

// withLocalPositions overlays resume offsets saved on this machine, which are fresher than the
// server's copy while listening offline.
func (r *Runner) withLocalPositions(entries []models.LibraryEntry) []models.LibraryEntry {
	for i, e := range entries {
		if pos, ok, err := r.positions.Load(e.AudioID); err == nil && ok && pos > e.LastPosition {
			entries[i].LastPosition = pos
		}
	}
	return entries
}

type downloadRow struct {
	ID           string `json:"id"`
	AudioID      int    `json:"audioId"`
	Title        string `json:"title"`
	Path         string `json:"path"`
	Bytes        int64  `json:"bytes"`
	DownloadedAt string `json:"downloadedAt"`
}

func downloadRows(records []*models.DownloadRecord) []downloadRow {
	rows := make([]downloadRow, len(records))
	for i, d := range records {
		rows[i] = downloadRow{
			ID:           d.ID(),
			AudioID:      d.AudioID(),
			Title:        d.Title(),
			Path:         d.Path(),
			Bytes:        d.Bytes(),
			DownloadedAt: d.CreatedAt().Format("2006-01-02 15:04:05"),
		}
	}
	return rows
}
