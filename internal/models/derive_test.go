// ABOUTME: Tests for the derived-field calculator.
// ABOUTME: Covers tag stripping, entities, word counts and reading time.

package models

import "testing"

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraph", "<p>Hello world</p>", "Hello world"},
		{"nbsp becomes space", "<p>a&nbsp;b</p>", "a b"},
		{"other entities dropped", "Tom &amp; Jerry &#169; &#x2014;", "Tom  Jerry"},
		{"trimmed", "  <div> padded </div>\n", "padded"},
		{"nested", "<ul><li><b>one</b></li><li>two</li></ul>", "onetwo"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Tags are removed, not replaced, so text in adjacent blocks runs together.
// Stored word counts depend on this; separating blocks would change them.
func TestAdjacentBlocksJoinWithoutSpace(t *testing.T) {
	d := Derive("<p>a</p><p>b</p>")
	if d.PlainText != "ab" {
		t.Errorf("PlainText = %q, want %q", d.PlainText, "ab")
	}
	if d.WordCount != 1 {
		t.Errorf("WordCount = %d, want 1", d.WordCount)
	}

	d = Derive("<p>a</p>\n<p>b</p>")
	if d.PlainText != "a\nb" || d.WordCount != 2 {
		t.Errorf("blocks split by a newline: PlainText = %q, WordCount = %d", d.PlainText, d.WordCount)
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount("   "); got != 0 {
		t.Errorf("expected 0 words for whitespace, got %d", got)
	}
	if got := WordCount("one  two\tthree\nfour"); got != 4 {
		t.Errorf("expected 4 words, got %d", got)
	}
}

func TestReadingTime(t *testing.T) {
	tests := map[int]int{0: 1, 1: 1, 200: 1, 201: 2, 400: 2, 401: 3}
	for words, want := range tests {
		if got := ReadingTime(words); got != want {
			t.Errorf("ReadingTime(%d) = %d, want %d", words, got, want)
		}
	}
}

func TestDerive(t *testing.T) {
	d := Derive("<p>Héllo wörld</p>")
	if d.CharacterCount != 11 {
		t.Errorf("expected 11 characters, got %d", d.CharacterCount)
	}
	if d.WordCount != 2 || d.ReadingTime != 1 {
		t.Errorf("unexpected derived fields %+v", d)
	}
}
