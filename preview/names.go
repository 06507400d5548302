package preview

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseNames splits raw newline-separated input into trimmed, non-blank
// names, preserving order.
func ParseNames(raw string) []string {
	if raw == "" {
		return nil
	}
	var names []string
	for _, line := range strings.Split(raw, "\n") {
		if n := strings.TrimSpace(line); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// CountNames is the live count shown next to the name input.
func CountNames(raw string) int {
	return len(ParseNames(raw))
}

// BatchFilename builds the archive entry name for the i-th tag: a zero-padded
// ordinal plus the name reduced to filesystem-safe characters (letters,
// digits, space, underscore, hyphen). A name with nothing safe left falls
// back to resident_<i+1>.
func BatchFilename(i int, name string) string {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			return r
		}
		return -1
	}, name)
	safe = strings.TrimSpace(safe)
	if safe == "" {
		safe = fmt.Sprintf("resident_%d", i+1)
	}
	return fmt.Sprintf("%03d_%s.png", i+1, safe)
}
