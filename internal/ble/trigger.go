package ble

import (
	"strings"
	"unicode/utf8"
)

// DefaultTrigger is the command the shutter peripheral sends to take a photo.
const DefaultTrigger = "shoot"

// MatchTrigger reports whether payload, decoded as UTF-8 and trimmed of
// surrounding whitespace, equals token exactly. Invalid UTF-8 never matches.
func MatchTrigger(payload []byte, token string) bool {
	text, ok := decodeNotification(payload)
	return ok && text == token
}

// decodeNotification returns the trimmed text of a notification payload.
func decodeNotification(payload []byte) (string, bool) {
	if !utf8.Valid(payload) {
		return "", false
	}
	return strings.TrimSpace(string(payload)), true
}
