// package repositories provides the persistence layer for download history.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kherzog/ytmsync/internal/models"
	"github.com/kherzog/ytmsync/internal/shared"
)

// HistoryRepository handles CRUD operations for [models.HistoryEntry] rows.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create inserts a new history entry with a generated ID and timestamp.
func (r *HistoryRepository) Create(entry *models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = shared.GenerateID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO history (id, video_id, title, filename, source_url, status, pass, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		entry.ID,
		entry.VideoID,
		entry.Title,
		entry.Filename,
		entry.SourceURL,
		entry.Status,
		entry.Pass,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return nil
}

// List returns the most recent entries, newest first, up to limit.
// A limit of 0 or less returns everything.
func (r *HistoryRepository) List(limit int) ([]models.HistoryEntry, error) {
	query := `
		SELECT id, video_id, title, filename, source_url, status, pass, created_at
		FROM history
		ORDER BY created_at DESC, id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.VideoID, &e.Title, &e.Filename, &e.SourceURL, &e.Status, &e.Pass, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Clear removes all history rows.
func (r *HistoryRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM history"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Record implements the tasks.HistoryRecorder interface, letting the
// aggregator persist outcomes without knowing about the database.
func (r *HistoryRepository) Record(entry models.HistoryEntry) error {
	return r.Create(&entry)
}
