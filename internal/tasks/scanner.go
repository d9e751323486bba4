package tasks

import (
	"os"
	"path/filepath"
	"strings"
)

// audioExt is the extension downloaded tracks end up with after the engine's
// audio extraction step.
const audioExt = ".mp3"

// normalizeExt turns an audio format name into a file extension,
// defaulting to .mp3.
func normalizeExt(format string) string {
	if format == "" {
		return audioExt
	}
	if strings.HasPrefix(format, ".") {
		return format
	}
	return "." + format
}

// ScanLibrary lists the audio files already present in dir, returning base
// filenames. A missing or empty directory yields an empty result, not an
// error; the identity-token check downstream treats both the same.
func ScanLibrary(dir, ext string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+normalizeExt(ext)))
	if err != nil {
		return nil, err
	}

	var files []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, filepath.Base(match))
	}

	return files, nil
}
