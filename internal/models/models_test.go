package models

import "testing"

func TestHistoryEntryValidate(t *testing.T) {
	valid := HistoryEntry{
		ID:     "id-1",
		Title:  "Song",
		Status: StatusCompleted,
		Pass:   1,
	}

	tests := []struct {
		name    string
		mutate  func(*HistoryEntry)
		wantErr bool
	}{
		{"valid completed entry", func(e *HistoryEntry) {}, false},
		{"valid failed entry", func(e *HistoryEntry) { e.Status = StatusFailed }, false},
		{"valid retry pass", func(e *HistoryEntry) { e.Pass = 2 }, false},
		{"missing ID", func(e *HistoryEntry) { e.ID = "" }, true},
		{"missing title", func(e *HistoryEntry) { e.Title = "" }, true},
		{"unknown status", func(e *HistoryEntry) { e.Status = "pending" }, true},
		{"pass zero", func(e *HistoryEntry) { e.Pass = 0 }, true},
		{"pass out of range", func(e *HistoryEntry) { e.Pass = 3 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := valid
			tt.mutate(&entry)

			err := entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
