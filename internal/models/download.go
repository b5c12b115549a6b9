package models

import (
	"fmt"
	"time"
)

// DownloadRecord is a file written to disk by a library download.
type DownloadRecord struct {
	id           string
	audioID      int
	title        string
	path         string
	bytes        int64
	downloadedAt time.Time
}

// NewDownloadRecord creates a [DownloadRecord] stamped with the current time. The ID is assigned on create.
func NewDownloadRecord(audioID int, title, path string, bytes int64) *DownloadRecord {
	return &DownloadRecord{audioID: audioID, title: title, path: path, bytes: bytes, downloadedAt: time.Now()}
}

func (d *DownloadRecord) ID() string           { return d.id }
func (d *DownloadRecord) CreatedAt() time.Time { return d.downloadedAt }
func (d *DownloadRecord) AudioID() int         { return d.audioID }
func (d *DownloadRecord) Title() string        { return d.title }
func (d *DownloadRecord) Path() string         { return d.path }
func (d *DownloadRecord) Bytes() int64         { return d.bytes }

func (d *DownloadRecord) SetID(id string)               { d.id = id }
func (d *DownloadRecord) SetDownloadedAt(at time.Time) { d.downloadedAt = at }

// Validate checks that the record points at an item and a file.
func (d *DownloadRecord) Validate() error {
	if d.audioID <= 0 {
		return fmt.Errorf("audio id must be positive")
	}
	if d.path == "" {
		return fmt.Errorf("path is required")
	}
	if d.bytes < 0 {
		return fmt.Errorf("bytes cannot be negative")
	}
	return nil
}
