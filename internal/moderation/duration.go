package moderation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(`^(\d+)([wdhm])$`)

var durationUnits = map[string]time.Duration{
	"w": 7 * 24 * time.Hour,
	"d": 24 * time.Hour,
	"h": time.Hour,
	"m": time.Minute,
}

// ParseDuration parses a compact duration such as "1w", "5d", "48h" or
// "30m". Anything else, including zero amounts, returns ErrInvalidDuration.
func ParseDuration(token string) (time.Duration, error) {
	match := durationPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(token)))
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, token)
	}

	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, token)
	}

	unit := durationUnits[match[2]]
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, token)
	}
	return time.Duration(n) * unit, nil
}
