// package models defines the persisted data model for the sync service
package models

import (
	"fmt"
	"time"
)

// History entry statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// HistoryEntry records the terminal outcome of one download item within a
// pass. A URL that fails in pass 1 and succeeds in pass 2 produces two rows.
type HistoryEntry struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	Title     string    `json:"title"`
	Filename  string    `json:"filename"`
	SourceURL string    `json:"source_url"`
	Status    string    `json:"status"`
	Pass      int       `json:"pass"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the entry's data is valid and returns an error if not.
func (e *HistoryEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("history entry ID is required")
	}
	if e.Title == "" {
		return fmt.Errorf("history entry title is required")
	}
	switch e.Status {
	case StatusCompleted, StatusFailed:
	default:
		return fmt.Errorf("invalid history status: %q", e.Status)
	}
	if e.Pass < 1 || e.Pass > 2 {
		return fmt.Errorf("invalid pass number: %d", e.Pass)
	}
	return nil
}
