package ble

import (
	"strings"
	"unicode/utf8"
)

// splitText cuts text into pieces of at most max bytes for peripherals with
// a small ATT MTU. It prefers to cut after a space and never cuts inside a
// rune; a single rune wider than max becomes its own piece. max <= 0 keeps
// text whole. Concatenating the pieces yields text.
func splitText(text string, max int) []string {
	if max <= 0 || len(text) <= max {
		return []string{text}
	}

	var parts []string
	for len(text) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(text)
		} else if sp := strings.LastIndexByte(text[:cut], ' '); sp >= 0 {
			cut = sp + 1
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
