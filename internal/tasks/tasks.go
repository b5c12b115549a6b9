// package tasks implements long-running library operations.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
)

// Recorder persists the download log.
type Recorder interface {
	Create(record *models.DownloadRecord) error
	List(criteria map[string]any) ([]*models.DownloadRecord, error)
}

// Engine runs library tasks.
type Engine struct {
	client   *http.Client
	recorder Recorder
	logger   *log.Logger
}

// NewEngine creates an [Engine]. A nil client gets a client with a generous timeout; a nil recorder
// disables the download log.
func NewEngine(client *http.Client, recorder Recorder, logger *log.Logger) *Engine {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Engine{client: client, recorder: recorder, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// AuditResult compares the download log with a library.
type AuditResult struct {
	Downloaded []*models.DownloadRecord // Logged downloads of owned items whose file still exists
	Missing    []models.LibraryEntry    // Owned items with no logged download
	Orphaned   []*models.DownloadRecord // Logged downloads of items no longer owned
	Vanished   []*models.DownloadRecord // Logged downloads whose file is gone
}

// Audit reports how the download log lines up with entries. Only the newest record per audio id is
// considered.
func (e *Engine) Audit(ctx context.Context, progress chan<- ProgressUpdate, entries []models.LibraryEntry) (*AuditResult, error) {
	if e.recorder == nil {
		return nil, fmt.Errorf("%w: download log not configured", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, auditUpdate(1, 3, "Reading download log..."))
	records, err := e.recorder.List(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read download log: %w", err)
	}

	latest := make(map[int]*models.DownloadRecord)
	for _, r := range records {
		if prev, ok := latest[r.AudioID()]; !ok || r.CreatedAt().After(prev.CreatedAt()) {
			latest[r.AudioID()] = r
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.sendProgress(progress, auditUpdate(2, 3, "Checking files..."))
	result := &AuditResult{}
	owned := make(map[int]bool, len(entries))
	for _, entry := range entries {
		owned[entry.AudioID] = true
		record, ok := latest[entry.AudioID]
		if !ok {
			result.Missing = append(result.Missing, entry)
			continue
		}
		if _, err := os.Stat(record.Path()); err != nil {
			result.Vanished = append(result.Vanished, record)
			continue
		}
		result.Downloaded = append(result.Downloaded, record)
	}

	e.sendProgress(progress, auditUpdate(3, 3, "Looking for downloads no longer owned..."))
	ids := make([]int, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if !owned[id] {
			result.Orphaned = append(result.Orphaned, latest[id])
		}
	}

	return result, nil
}

// FileName picks the on-disk name for entry's audio file: {audioId}-{slug}{ext}. The extension comes
// from the source URL and defaults to .mp3.
func FileName(entry models.LibraryEntry) string {
	ext := strings.ToLower(path.Ext(strings.SplitN(entry.Item.AudioURL(), "?", 2)[0]))
	if ext == "" || len(ext) > 5 {
		ext = ".mp3"
	}

	name := strconv.Itoa(entry.AudioID)
	if slug := slugify(entry.Item.Title); slug != "" {
		name += "-" + slug
	}
	return name + ext
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
