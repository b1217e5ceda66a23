package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseStamp parses a caller-supplied timestamp bound. Accepted layouts are
// "YYYY-MM-DD HH:MM:SS", "YYYY-MM-DD HH:MM", and "YYYY-MM-DD" (start of
// day), all interpreted in the local timezone.
func ParseStamp(s string) (time.Time, error) {
	input := strings.TrimSpace(s)
	if input == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}

	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, input, time.Local); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q: expected 'YYYY-MM-DD HH:MM:SS', 'YYYY-MM-DD HH:MM', or 'YYYY-MM-DD'", input)
}
