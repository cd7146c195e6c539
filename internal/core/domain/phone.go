package domain

import "strings"

// FormatPhone renders a 10 digit number as 555-123-4567. Anything else is
// returned unchanged.
func FormatPhone(number string) string {
	var digits strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) != 10 {
		return number
	}
	return d[:3] + "-" + d[3:6] + "-" + d[6:]
}
