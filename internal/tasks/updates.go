package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Prepare Phase = iota
	Download
	WriteManifest
	Audit
)

func (p Phase) String() string {
	switch p {
	case Prepare:
		return "prepare"
	case Download:
		return "download"
	case WriteManifest:
		return "write_manifest"
	case Audit:
		return "audit"
	default:
		return ""
	}
}

func prepareUpdate(total int, dir string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Prepare,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Downloading %d audiobooks to %s...", total, dir),
	}
}

func downloadingUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Download,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Downloading: %s...", step, total, title),
	}
}

func downloadCompletedUpdate(step, total int, res DownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Download,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, res.Title, humanBytes(res.Bytes)),
		Data:    res,
	}
}

func downloadFailedUpdate(step, total int, res DownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Download,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Title, res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing manifest %s...", path),
	}
}

func auditUpdate(step, total int, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Audit,
		Step:    step,
		Total:   total,
		Message: message,
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
