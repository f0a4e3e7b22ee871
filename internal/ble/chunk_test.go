package ble

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{"unlimited", "the quick brown fox", 0, []string{"the quick brown fox"}},
		{"fits", "shoot", 20, []string{"shoot"}},
		{"exact fit", "aaaa", 4, []string{"aaaa"}},
		{"empty", "", 4, []string{""}},
		{"word boundary", "the quick brown fox", 10, []string{"the quick ", "brown fox"}},
		{"forced split", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"rune boundary", "héllo", 2, []string{"h", "é", "ll", "o"}},
		{"rune wider than max", "\U0001F600a", 1, []string{"\U0001F600", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitText(tt.text, tt.max)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("splitText(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}

func TestSplitTextReassembles(t *testing.T) {
	text := "take a picture \U0001F4F7 with the remote shutter, über schnell"
	for max := 1; max <= len(text); max++ {
		parts := splitText(text, max)
		if got := strings.Join(parts, ""); got != text {
			t.Fatalf("max=%d: reassembled %q", max, got)
		}
		for i, p := range parts {
			if !utf8.ValidString(p) {
				t.Errorf("max=%d: part %d %q is not valid UTF-8", max, i, p)
			}
			if len(p) > max && utf8.RuneCountInString(p) != 1 {
				t.Errorf("max=%d: part %d %q exceeds limit", max, i, p)
			}
		}
	}
}
