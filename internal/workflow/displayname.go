package workflow

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// EndorsementDisplayName builds the public-facing author name for an
// endorsement: "Resident on {street} - {initials}". The street comes from
// the first comma-delimited segment of the address with the leading
// house-number token dropped; initials are first- and last-name initials.
// When no street token parses the whole name falls back to "Resident",
// and an empty initials suffix is omitted.
func EndorsementDisplayName(name, address string) string {
	street := streetName(address)
	ini := initials(name)

	base := "Resident"
	if street != "" {
		base = "Resident on " + street
	}
	if ini == "" {
		return base
	}
	return base + " - " + ini
}

// streetName extracts a coarse street name from a free-text address, or
// "" when none parses.
func streetName(address string) string {
	segment := address
	if i := strings.Index(segment, ","); i >= 0 {
		segment = segment[:i]
	}
	tokens := strings.Fields(strings.TrimSpace(segment))
	if len(tokens) > 0 && startsWithDigit(tokens[0]) {
		tokens = tokens[1:]
	}
	street := strings.Join(tokens, " ")
	if !containsLetter(street) {
		return ""
	}
	return street
}

func initials(name string) string {
	tokens := strings.Fields(strings.TrimSpace(name))
	switch len(tokens) {
	case 0:
		return ""
	case 1:
		return firstInitial(tokens[0])
	default:
		return firstInitial(tokens[0]) + firstInitial(tokens[len(tokens)-1])
	}
}

func firstInitial(token string) string {
	for _, r := range token {
		if unicode.IsLetter(r) {
			return string(unicode.ToUpper(r)) + "."
		}
	}
	return ""
}

func startsWithDigit(s string) bool {
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// ElapsedString renders a duration for the staff-reply email, with a floor
// of one minute for any positive duration.
func ElapsedString(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return pluralize(days, "day") + ", " + pluralize(hours, "hour")
	case hours > 0:
		return pluralize(hours, "hour") + ", " + pluralize(minutes, "minute")
	default:
		if minutes < 1 {
			minutes = 1
		}
		return pluralize(minutes, "minute")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
