package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from .env/.env.local files.
// It attempts each supported filename in order and stops at the first
// successfully parsed file. Existing process environment variables are
// never overwritten, so real environment always wins over file values.
func LoadDotEnv() {
	for _, path := range []string{".env", ".env.local"} {
		if err := godotenv.Load(path); err == nil {
			slog.Debug("Loaded environment variables", "path", path)
			return
		}
	}
}
