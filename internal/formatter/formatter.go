// package formatter renders times and prices for display and exports a customer's library to CSV,
// Markdown, and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/models"
)

// FormatTime renders seconds as m:ss. Negative and non-finite values render as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatPrice renders an amount in rupees with two decimals.
func FormatPrice(amount float64) string {
	return fmt.Sprintf("₹%.2f", amount)
}

// LibraryExport is a snapshot of one customer's library.
type LibraryExport struct {
	Owner      models.Session        `json:"owner"`
	Entries    []models.LibraryEntry `json:"entries"`
	ExportedAt time.Time             `json:"exportedAt"`
}

// NewLibraryExport stamps entries with the current time.
func NewLibraryExport(owner models.Session, entries []models.LibraryEntry) *LibraryExport {
	return &LibraryExport{Owner: owner, Entries: entries, ExportedAt: time.Now().UTC()}
}

func progressOf(e models.LibraryEntry) string {
	if e.IsCompleted {
		return "completed"
	}
	if d := e.Item.KnownDuration(); d > 0 {
		return FormatTime(e.LastPosition) + " / " + FormatTime(d)
	}
	return FormatTime(e.LastPosition)
}

// ExportToCSV converts a LibraryExport to CSV with columns: AudioID, Title, Author, Narrator, Duration, LastPosition, Completed
func ExportToCSV(export *LibraryExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"AudioID", "Title", "Author", "Narrator", "Duration", "LastPosition", "Completed"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range export.Entries {
		record := []string{
			strconv.Itoa(e.AudioID),
			e.Item.Title,
			e.Item.Author(),
			e.Item.Narrator,
			strconv.FormatFloat(e.Item.KnownDuration(), 'f', -1, 64),
			strconv.FormatFloat(e.LastPosition, 'f', -1, 64),
			strconv.FormatBool(e.IsCompleted),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a LibraryExport to Markdown. covers maps audio ids to cover image filenames
// relative to the document; it may be nil.
func ExportToMarkdown(export *LibraryExport, covers map[int]string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s's Library\n\n", displayName(export.Owner))
	fmt.Fprintf(&buf, "**Audiobooks**: %d\n", len(export.Entries))
	fmt.Fprintf(&buf, "**Exported**: %s\n\n", export.ExportedAt.Format(time.DateOnly))

	buf.WriteString("## Audiobooks\n\n")
	for i, e := range export.Entries {
		author := ""
		if a := e.Item.Author(); a != "" {
			author = " by " + a
		}
		fmt.Fprintf(&buf, "%d. %s%s [%s]\n", i+1, e.Item.Title, author, progressOf(e))
		if cover, ok := covers[e.AudioID]; ok {
			fmt.Fprintf(&buf, "\n   ![%s](%s)\n\n", e.Item.Title, cover)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a LibraryExport to plain text
func ExportToText(export *LibraryExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Library: %s\n", displayName(export.Owner))
	fmt.Fprintf(&buf, "Audiobooks: %d\n\n", len(export.Entries))

	for i, e := range export.Entries {
		fmt.Fprintf(&buf, "%d. %s - %s (%s)\n", i+1, e.Item.Author(), e.Item.Title, progressOf(e))
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a LibraryExport to indented JSON
func ExportToJSON(export *LibraryExport) ([]byte, error) {
	return json.MarshalIndent(export, "", "  ")
}

func displayName(s models.Session) string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Username != "":
		return s.Username
	default:
		return fmt.Sprintf("Customer %d", s.CustomerID)
	}
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// WriteCSVExport writes the library as CSV to path, defaulting to library.csv.
func WriteCSVExport(export *LibraryExport, path string) (string, error) {
	if path == "" {
		path = "library.csv"
	}

	data, err := ExportToCSV(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}
	return path, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Covers    int
}

// MarkdownOptions controls cover downloads for WriteMarkdownExport.
type MarkdownOptions struct {
	Covers bool
	Client *http.Client
	Logger *log.Logger
}

// WriteMarkdownExport exports the library to Markdown in a dedicated directory.
//
// Directory name defaults to "library". With Covers set, each entry's cover image is downloaded into
// {dir}/covers/{audioId}.jpg; a failed download is logged and the entry is written without it.
func WriteMarkdownExport(export *LibraryExport, outputDir string, opts MarkdownOptions) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "library"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	covers := map[int]string{}
	if opts.Covers {
		if err := os.MkdirAll(filepath.Join(outputDir, "covers"), 0755); err != nil {
			return nil, fmt.Errorf("failed to create covers directory: %w", err)
		}
		for _, e := range export.Entries {
			if e.Item.CoverImage == nil || *e.Item.CoverImage == "" {
				continue
			}
			imageData, err := DownloadImage(opts.Client, *e.Item.CoverImage)
			if err != nil {
				if opts.Logger != nil {
					opts.Logger.Warn("cover download failed", "audio_id", e.AudioID, "error", err)
				}
				continue
			}
			rel := filepath.Join("covers", strconv.Itoa(e.AudioID)+".jpg")
			full := filepath.Join(outputDir, rel)
			if err := os.WriteFile(full, imageData, 0644); err != nil {
				if opts.Logger != nil {
					opts.Logger.Warn("cover not saved", "audio_id", e.AudioID, "error", err)
				}
				continue
			}
			covers[e.AudioID] = filepath.ToSlash(rel)
			result.Files = append(result.Files, full)
			result.Covers++
		}
	}

	mdData, err := ExportToMarkdown(export, covers)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteTextExport writes the library as plain text to path, defaulting to library.txt.
func WriteTextExport(export *LibraryExport, path string) (string, error) {
	if path == "" {
		path = "library.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}
