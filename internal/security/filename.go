// Package security keeps user-supplied names from escaping the output
// directory.
package security

import (
	"path/filepath"
	"strings"
)

// maxStemLen bounds derived file names to avoid overly long paths.
const maxStemLen = 128

// SanitizeFilename makes a safe file name from an arbitrary string. Runs of
// characters other than ASCII letters, digits, dot, underscore or dash
// become a single underscore, and leading or trailing dots and underscores
// are trimmed. An empty result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxStemLen {
			break
		}
		if isSafe(r) {
			b.WriteRune(r)
			lastUnderscore = r == '_'
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// OutputStem returns the sanitized base name of a video path without its
// extension, for naming the files written next to a run.
func OutputStem(videoPath string) string {
	base := filepath.Base(videoPath)
	return SanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
