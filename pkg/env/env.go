// Package env reads process settings that must be known before config.Load
// runs, such as the log format.
package env

import (
	"os"
	"strings"
)

const prefix = "DISHDASH_"

// Get returns DISHDASH_<key>, then the bare key, then fallback.
func Get(key, fallback string) string {
	for _, name := range []string{prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
