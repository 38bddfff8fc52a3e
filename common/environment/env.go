// Package environment reads configuration from environment variables.
//
// Helpers return values or defaults; required variables return an error
// instead of exiting, so main owns all process-level decisions.
package environment

import (
	"fmt"
	"os"
	"strconv"
)

// String returns the named variable and whether it was set, even to the
// empty string.
func String(name string) (string, bool) {
	return os.LookupEnv(name)
}

// StringOr returns the named variable, or defaultValue when it is unset or
// empty.
func StringOr(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

// RequiredString returns the named variable or an error when it is unset
// or empty.
func RequiredString(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("required environment variable %q is not set", name)
	}
	return v, nil
}

// IntOr parses the named variable as a decimal integer, falling back to
// defaultValue when it is unset, empty, or unparsable.
func IntOr(name string, defaultValue int) int {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
