package env

import "os"

// Get reads an environment variable, treating empty the same as unset.
func Get(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
