package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateCookieFile(t *testing.T) {
	entry := ".youtube.com\tTRUE\t/\tTRUE\t1999999999\tSESSION\tabc123"

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name:    "valid export",
			content: "# Netscape HTTP Cookie File\n" + entry + "\n",
		},
		{
			name:    "entry without header",
			content: entry + "\n",
		},
		{
			name:    "comments and blanks only",
			content: "# Netscape HTTP Cookie File\n\n# nothing here\n",
			wantErr: true,
		},
		{
			name:    "empty file",
			content: "",
			wantErr: true,
		},
		{
			name:    "malformed lines",
			content: "this is not a cookie file\nneither is this\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cookies.txt")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			err := ValidateCookieFile(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCookieFile() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCookieFileMissing(t *testing.T) {
	if err := ValidateCookieFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("ValidateCookieFile() error = nil for missing file")
	}
}
