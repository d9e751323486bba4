// Utilities for inspecting browser cookie exports.
package shared

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// cookieFieldCount is the number of tab-separated fields in a Netscape
// cookie file entry: domain, include-subdomains, path, secure, expiry,
// name, value.
const cookieFieldCount = 7

// ValidateCookieFile checks that the file at path looks like a Netscape
// cookie export usable by yt-dlp's --cookies flag.
//
// The check is deliberately shallow: it confirms the file is readable and
// that it contains at least one entry-shaped line. A stale or expired
// cookie jar still passes; the retry pass surfaces those as download errors.
func ValidateCookieFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cookie file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(strings.Split(line, "\t")) >= cookieFieldCount {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read cookie file: %w", err)
	}

	return fmt.Errorf("no cookie entries found in %s", path)
}
