package notify

import (
	"context"
	"strings"
	"unicode"
)

// Messenger delivers a text message to a phone number
type Messenger interface {
	Send(ctx context.Context, to, message string) error
}

// NoopMessenger drops every message. Used when no gateway token is configured.
type NoopMessenger struct{}

// Send does nothing
func (NoopMessenger) Send(ctx context.Context, to, message string) error {
	return nil
}

// NormalizePhone converts an Indonesian phone number to the 62… form expected by
// the gateway. Separators are stripped; "08…" and "+62…" are rewritten.
// It returns "" when nothing usable remains.
func NormalizePhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "62"):
		return digits
	case strings.HasPrefix(digits, "0"):
		return "62" + digits[1:]
	case strings.HasPrefix(digits, "8"):
		return "62" + digits
	}
	return digits
}
