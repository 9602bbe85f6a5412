package youtube

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var ErrInvalidDuration = errors.New("invalid ISO-8601 duration")

var durationPattern = regexp.MustCompile(
	`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// Seconds per component, in submatch order: Y, M, W, D, H, M, S.
var durationFactors = [...]int{
	365 * 86400,
	30 * 86400,
	7 * 86400,
	86400,
	3600,
	60,
	1,
}

// ParseDuration converts an ISO-8601 duration as returned by the Data API
// (for example "PT3M27S") into whole seconds.
func ParseDuration(s string) (int, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	total := 0
	seen := false
	for i, factor := range durationFactors {
		part := m[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidDuration, s, err)
		}
		if n > (math.MaxInt-total)/factor {
			return 0, fmt.Errorf("%w: %q: out of range", ErrInvalidDuration, s)
		}
		total += n * factor
		seen = true
	}

	// "P" and "PT" match the pattern but carry no components.
	if !seen {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	return total, nil
}
