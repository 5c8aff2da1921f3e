// Package phone normalizes contact numbers and builds WhatsApp deep links.
package phone

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// MinDigits is the shortest number accepted as a contact phone.
const MinDigits = 10

// Normalize keeps only the ASCII digits of raw.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate normalizes raw and rejects numbers shorter than MinDigits.
func Validate(raw string) (string, error) {
	digits := Normalize(raw)
	if len(digits) < MinDigits {
		return "", fmt.Errorf("phone must contain at least %d digits", MinDigits)
	}
	return digits, nil
}

// WhatsAppLink returns a wa.me link to number with a prefilled message.
// An empty string is returned when number has no digits.
func WhatsAppLink(number, message string) string {
	digits := Normalize(number)
	if digits == "" {
		return ""
	}
	link := "https://wa.me/" + digits
	if message = strings.TrimSpace(message); message != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link
}
