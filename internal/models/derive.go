// ABOUTME: Derived-field calculator for note content.
// ABOUTME: Extracts plain text from HTML and computes word count and reading time.

package models

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// WordsPerMinute is the reading speed behind ReadingTime.
const WordsPerMinute = 200

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	nbspPattern   = regexp.MustCompile(`&nbsp;`)
	entityPattern = regexp.MustCompile(`&(?:[a-zA-Z][a-zA-Z0-9]*|#[0-9]+|#[xX][0-9a-fA-F]+);`)
)

// Derived is the set of fields computed from note content.
type Derived struct {
	PlainText      string
	WordCount      int
	ReadingTime    int
	CharacterCount int
}

func Derive(content string) Derived {
	plain := PlainText(content)
	words := WordCount(plain)
	return Derived{
		PlainText:      plain,
		WordCount:      words,
		ReadingTime:    ReadingTime(words),
		CharacterCount: utf8.RuneCountInString(plain),
	}
}

// PlainText strips markup tags, turns &nbsp; into a space, drops every other
// character entity and trims surrounding whitespace.
func PlainText(html string) string {
	s := tagPattern.ReplaceAllString(html, "")
	s = nbspPattern.ReplaceAllString(s, " ")
	s = entityPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func WordCount(plain string) int {
	return len(strings.Fields(plain))
}

// ReadingTime is minutes at WordsPerMinute, rounded up, never below 1.
func ReadingTime(words int) int {
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}
