package env

import (
	"os"
	"strconv"
	"strings"
)

const (
	// LogFormatKey selects "json" (default) or "console" log output.
	LogFormatKey = "LOG_FORMAT"
	// NoColorKey disables ANSI colours in console output.
	NoColorKey = "NO_COLOR"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Bool parses a boolean variable. Unset or malformed values yield fallback.
func Bool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(Get(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// OneOf returns the lowercased value of key when it is one of allowed.
func OneOf(key, fallback string, allowed ...string) string {
	val := strings.ToLower(Get(key, fallback))
	for _, candidate := range allowed {
		if val == candidate {
			return val
		}
	}
	return fallback
}
