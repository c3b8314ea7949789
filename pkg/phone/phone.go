// Package phone normalizes Philippine mobile numbers to the 639XXXXXXXXX
// form expected by the SMS gateways.
package phone

import (
	"errors"
	"strings"
)

var ErrInvalidNumber = errors.New("invalid Philippine mobile number")

// Normalize accepts 09XXXXXXXXX, 9XXXXXXXXX, +639XXXXXXXXX and 639XXXXXXXXX,
// with optional spaces, dashes, dots or parentheses, and returns
// 639XXXXXXXXX.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", ErrInvalidNumber
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "639"):
	case len(digits) == 11 && strings.HasPrefix(digits, "09"):
		digits = "63" + digits[1:]
	case len(digits) == 10 && strings.HasPrefix(digits, "9"):
		digits = "63" + digits
	default:
		return "", ErrInvalidNumber
	}
	return digits, nil
}

// Format renders a number as +63 9XX XXX XXXX. Numbers that do not normalize
// are returned unchanged.
func Format(n string) string {
	d, err := Normalize(n)
	if err != nil {
		return n
	}
	return "+63 " + d[2:5] + " " + d[5:8] + " " + d[8:]
}
