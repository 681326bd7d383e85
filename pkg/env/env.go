package env

import (
	"os"
	"strings"
)

// Lookup returns the trimmed value of key and whether it holds anything
// besides whitespace.
func Lookup(key string) (string, bool) {
	val := strings.TrimSpace(os.Getenv(key))
	return val, val != ""
}

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val, ok := Lookup(key); ok {
		return val
	}
	return fallback
}
