// Package tasks runs long library operations with real-time progress reporting.
//
// # Core Operations
//
// [Engine] offers two operations:
//
//  1. [Engine.BulkDownload] : Save owned audio files to disk
//     - Fans entries out to a bounded worker pool
//     - Rate limits requests to the media host
//     - Records every written file in the download log
//     - Writes a manifest summarizing successes and failures
//
//  2. [Engine.Audit] : Compare the download log with the library
//     - Reports owned items that were never downloaded
//     - Reports downloads of items no longer owned
//     - Reports logged files that have since disappeared from disk
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [Engine] depends on:
//   - [*http.Client] : fetches audio files
//   - [Recorder] : download log (repositories.DownloadRepository)
package tasks
