package env

import (
	"os"
	"strings"
)

// Prefix namespaces every storefront variable.
const Prefix = "STOREFRONT_"

// Get resolves key as STOREFRONT_<key> first and then as the bare name, so
// platform-provided variables (PORT, LOG_FORMAT) still apply.
func Get(key, fallback string) string {
	key = strings.TrimPrefix(key, Prefix)
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
