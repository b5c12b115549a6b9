package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
)

// DownloadRepository implements [models.Repository] for [models.DownloadRecord] persistence.
type DownloadRepository struct {
	db *sql.DB
}

// NewDownloadRepository creates a new [DownloadRepository] with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Create inserts a record with a generated ID.
func (r *DownloadRepository) Create(record *models.DownloadRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	query := `INSERT INTO download_log (id, audio_id, title, path, bytes, downloaded_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.Exec(query, id, record.AudioID(), record.Title(), record.Path(), record.Bytes(), record.CreatedAt()); err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}

	record.SetID(id)
	return nil
}

// Get retrieves a record by ID.
func (r *DownloadRepository) Get(id string) (*models.DownloadRecord, error) {
	row := r.db.QueryRow(`SELECT id, audio_id, title, path, bytes, downloaded_at FROM download_log WHERE id = ?`, id)

	record, err := scanDownload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("download", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query download: %w", err)
	}
	return record, nil
}

// Delete removes a record by ID. The file on disk is left alone.
func (r *DownloadRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM download_log WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return notFound("download", id)
	}
	return nil
}

// List retrieves records, newest first. Supported criteria: "audio_id" (int).
func (r *DownloadRepository) List(criteria map[string]any) ([]*models.DownloadRecord, error) {
	query := `SELECT id, audio_id, title, path, bytes, downloaded_at FROM download_log WHERE 1 = 1`
	args := []any{}

	if audioID, ok := criteria["audio_id"].(int); ok && audioID > 0 {
		query += " AND audio_id = ?"
		args = append(args, audioID)
	}
	query += " ORDER BY downloaded_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var records []*models.DownloadRecord
	for rows.Next() {
		record, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDownload(s scanner) (*models.DownloadRecord, error) {
	var (
		id           string
		audioID      int
		title        string
		path         string
		bytes        int64
		downloadedAt time.Time
	)
	if err := s.Scan(&id, &audioID, &title, &path, &bytes, &downloadedAt); err != nil {
		return nil, err
	}

	record := models.NewDownloadRecord(audioID, title, path, bytes)
	record.SetID(id)
	record.SetDownloadedAt(downloadedAt)
	return record, nil
}
