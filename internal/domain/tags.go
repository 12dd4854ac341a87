package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTags NFC-normalizes and trims tags, dropping blanks and duplicates.
// Order of first appearance is kept.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		t := strings.TrimSpace(norm.NFC.String(tag))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
