package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
	"golang.org/x/time/rate"
)

// BulkDownloadOpts contains configuration for bulk audio downloads.
type BulkDownloadOpts struct {
	OutputDir  string  // Base output directory (default: audx_downloads_{epoch})
	NumWorkers int     // Concurrent workers (default: 3, max: 8)
	RateLimit  float64 // Requests per second (default: 2)
	Overwrite  bool    // Replace files that already exist
}

// DownloadResult is the outcome for one entry.
type DownloadResult struct {
	AudioID int    `json:"audioId"`
	Title   string `json:"title"`
	Path    string `json:"path,omitempty"`
	Bytes   int64  `json:"bytes"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   error  `json:"-"`
	Message string `json:"error,omitempty"`
}

// BulkDownloadResult summarizes a bulk download.
type BulkDownloadResult struct {
	Total           int              `json:"total"`
	Successful      int              `json:"successful"`
	Failed          int              `json:"failed"`
	Skipped         int              `json:"skipped"`
	OutputDirectory string           `json:"outputDirectory"`
	ManifestPath    string           `json:"-"`
	Results         []DownloadResult `json:"results"`
}

type downloadJob struct {
	entry models.LibraryEntry
	path  string
}

// BulkDownload saves the audio file of every entry concurrently with rate limiting and progress tracking.
//
// Entries without an audio URL fail individually; the run continues. Every written file is added to
// the download log, and a download_manifest.json summarizing the run is written to the output directory.
func (e *Engine) BulkDownload(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	entries []models.LibraryEntry,
	opts BulkDownloadOpts,
) (*BulkDownloadResult, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: nothing to download", shared.ErrInvalidInput)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("audx_downloads_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkDownloadResult{
		Total:           len(entries),
		OutputDirectory: opts.OutputDir,
		Results:         make([]DownloadResult, 0, len(entries)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan downloadJob, len(entries))
	results := make(chan DownloadResult, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.downloadWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		e.sendProgress(prog, prepareUpdate(len(entries), opts.OutputDir))
		for i, entry := range entries {
			if entry.Item.AudioURL() == "" {
				results <- DownloadResult{
					AudioID: entry.AudioID,
					Title:   entry.Item.Title,
					Error:   fmt.Errorf("%w: no audio file", shared.ErrMediaFailed),
				}
				continue
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			jobs <- downloadJob{entry: entry, path: filepath.Join(opts.OutputDir, FileName(entry))}
			e.sendProgress(prog, downloadingUpdate(i+1, len(entries), entry.Item.Title))
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Error != nil {
			res.Message = res.Error.Error()
			result.Failed++
			e.sendProgress(prog, downloadFailedUpdate(completed, len(entries), res))
		} else {
			if res.Skipped {
				result.Skipped++
			} else {
				result.Successful++
			}
			e.sendProgress(prog, downloadCompletedUpdate(completed, len(entries), res))
		}
		result.Results = append(result.Results, res)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "download_manifest.json")
	e.sendProgress(prog, manifestUpdate(manifestPath))
	data, err := json.MarshalIndent(result, "", "  ")
	if err == nil {
		err = os.WriteFile(manifestPath, data, 0644)
	}
	if err != nil {
		return result, fmt.Errorf("download completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// downloadWorker is a worker goroutine that downloads entries from the jobs channel.
func (e *Engine) downloadWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan downloadJob,
	results chan<- DownloadResult,
	opts BulkDownloadOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.downloadOne(ctx, job, opts)
	}
}

// downloadOne fetches one file into place through a temporary file and logs it.
func (e *Engine) downloadOne(ctx context.Context, job downloadJob, opts BulkDownloadOpts) DownloadResult {
	res := DownloadResult{AudioID: job.entry.AudioID, Title: job.entry.Item.Title, Path: job.path}

	if !opts.Overwrite {
		if info, err := os.Stat(job.path); err == nil {
			res.Bytes = info.Size()
			res.Skipped = true
			return res
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.entry.Item.AudioURL(), nil)
	if err != nil {
		res.Error = fmt.Errorf("failed to build request: %w", err)
		return res
	}

	resp, err := e.client.Do(req)
	if err != nil {
		res.Error = fmt.Errorf("%w: %w", shared.ErrNetworkFailure, err)
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		res.Error = fmt.Errorf("%w: status %d", shared.ErrMediaFailed, resp.StatusCode)
		return res
	}

	tmp, err := os.CreateTemp(filepath.Dir(job.path), ".audx-*")
	if err != nil {
		res.Error = fmt.Errorf("failed to create file: %w", err)
		return res
	}
	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		res.Error = fmt.Errorf("failed to write file: %w", firstErr(copyErr, closeErr))
		return res
	}
	if err := os.Rename(tmp.Name(), job.path); err != nil {
		os.Remove(tmp.Name())
		res.Error = fmt.Errorf("failed to move file into place: %w", err)
		return res
	}
	res.Bytes = n

	if e.recorder != nil {
		if err := e.recorder.Create(models.NewDownloadRecord(job.entry.AudioID, job.entry.Item.Title, job.path, n)); err != nil {
			e.logger.Warn("download not logged", "audio_id", job.entry.AudioID, "error", err)
		}
	}
	e.logger.Debug("downloaded", "audio_id", job.entry.AudioID, "path", job.path, "bytes", n)
	return res
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
