package enums

import (
	"fmt"
	"slices"
	"strings"
)

// parseValue normalizes value and checks it against the allowed set.
func parseValue[T ~string](value string, allowed []T, kind string) (T, error) {
	candidate := T(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(allowed, candidate) {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}
