package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func Config(key string) string {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	return os.Getenv(key)
}

// Float reads a numeric setting, falling back when unset or malformed.
func Float(key string, fallback float64) float64 {
	raw := Config(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Warning: invalid value for %s: %q, using default %v", key, raw, fallback)
		return fallback
	}
	return v
}

func Int(key string, fallback int) int {
	raw := Config(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid value for %s: %q, using default %v", key, raw, fallback)
		return fallback
	}
	return v
}
