// Package linguistics turns a text sample into lexical features.
//
// Everything here is deterministic and allocation-light: no models, no
// external calls, only regular expressions and small fixed lexicons.
package linguistics

import (
	"regexp"
	"strings"
)

var (
	wordPattern     = regexp.MustCompile(`[a-z']+`)
	sentencePattern = regexp.MustCompile(`[.!?]+`)
)

// Words lower-cases text and returns maximal runs of letters and apostrophes.
// Digits and punctuation act as separators.
func Words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Sentences splits text on runs of '.', '!' and '?', trimming each fragment
// and dropping empty ones.
func Sentences(text string) []string {
	parts := sentencePattern.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
