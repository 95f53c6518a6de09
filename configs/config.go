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

// ConfigOr returns the value for key, falling back when the key is unset or empty.
func ConfigOr(key, fallback string) string {
	value := Config(key)
	if value == "" {
		return fallback
	}
	return value
}

func ConfigInt(key string, fallback int) int {
	value := Config(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: %s=%q is not a valid number, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}
