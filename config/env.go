package config

import (
	"os"
	"strings"
)

const (
	EnvLogLevel     = "DISPATCH_LOG_LEVEL"
	EnvLogColor     = "DISPATCH_LOG_COLOR"
	EnvDrainTimeout = "DISPATCH_DRAIN_TIMEOUT"
)

// lookupEnv finds an environment variable by key.
// An exact match wins, otherwise keys are compared case-insensitive.
// A variable that's set to an empty or all-space value is treated as unset.
func lookupEnv(key string) (string, bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		for _, entry := range os.Environ() {
			name, value, found := strings.Cut(entry, "=")
			if found && strings.EqualFold(name, key) {
				val, ok = value, true
				break
			}
		}
	}
	if !ok {
		return "", false
	}
	val = strings.TrimSpace(val)
	if len(val) == 0 {
		return "", false
	}
	return val, true
}
