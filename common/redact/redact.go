// Package redact strips sensitive values from strings before they reach
// log output. The Matrix access token in particular can surface inside
// client error messages (failed requests echo their URL query), so every
// log line built from a transport error goes through here first.
//
// Redaction is best-effort: it works on string representations and relies
// on callers to pass the right set of sensitive terms. It is not a
// substitute for keeping secrets out of log call-sites in the first place.
package redact

import "strings"

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with
// [REDACTED]. Values shorter than 4 characters are skipped to avoid
// spurious redaction of common substrings.
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// Error is a convenience wrapper for redacting an error's message. A nil
// error yields an empty string.
func Error(err error, sensitiveValues ...string) string {
	if err == nil {
		return ""
	}
	return String(err.Error(), sensitiveValues...)
}
