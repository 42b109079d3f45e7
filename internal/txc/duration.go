package txc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RuntimePolicy decides how an absent or undecodable run time is represented
type RuntimePolicy string

const (
	// PolicyZero reports missing run times as 0 seconds
	PolicyZero RuntimePolicy = "zero"
	// PolicyNull reports missing run times as nil
	PolicyNull RuntimePolicy = "null"
)

// maxComponent bounds each duration component so the total cannot overflow
const maxComponent = 1_000_000_000

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseRuntimePolicy returns the policy for a configuration value
func ParseRuntimePolicy(name string) (RuntimePolicy, error) {
	switch RuntimePolicy(strings.ToLower(strings.TrimSpace(name))) {
	case PolicyZero:
		return PolicyZero, nil
	case PolicyNull, "":
		return PolicyNull, nil
	}
	return "", fmt.Errorf("unknown runtime policy: %q", name)
}

// ParseDuration converts an ISO 8601 time duration (PT1M30S) to seconds
// Only hour, minute and second components are recognised, in that order.
// The second return value is false for empty or non-matching input.
func ParseDuration(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	var parts [3]int
	for i, group := range m[1:] {
		if group == "" {
			continue
		}
		v, err := strconv.Atoi(group)
		if err != nil || v >= maxComponent {
			return 0, false
		}
		parts[i] = v
	}

	return parts[0]*3600 + parts[1]*60 + parts[2], true
}

// DecodeRuntime decodes a raw run time according to the policy
func DecodeRuntime(raw string, policy RuntimePolicy) *int {
	secs, ok := ParseDuration(raw)
	if !ok {
		if policy == PolicyZero {
			zero := 0
			return &zero
		}
		return nil
	}
	return &secs
}
