// Package naming builds the file names used for recordings and stills.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout renders a time as DDMMYYYY_HHMMSS.
const TimestampLayout = "02012006_150405"

// FileName returns "<name> <DDMMYYYY_HHMMSS>.<ext>".
func FileName(name string, t time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s %s.%s", sanitize(name), t.Format(TimestampLayout), ext)
}

// Path joins dir with FileName.
func Path(dir, name string, t time.Time, ext string) string {
	return filepath.Join(dir, FileName(name, t, ext))
}

// Parse splits a file name produced by FileName back into its parts.
func Parse(fileName string) (name string, t time.Time, ext string, err error) {
	base := filepath.Base(fileName)
	ext = strings.TrimPrefix(filepath.Ext(base), ".")
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	i := strings.LastIndexByte(stem, ' ')
	if i <= 0 {
		return "", time.Time{}, "", fmt.Errorf("naming: %q has no timestamp", fileName)
	}
	t, err = time.ParseInLocation(TimestampLayout, stem[i+1:], time.Local)
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("naming: %q: %w", fileName, err)
	}
	return stem[:i], t, ext, nil
}

// sanitize keeps names usable as file names on every platform.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
