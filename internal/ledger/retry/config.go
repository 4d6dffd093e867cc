package retry

import (
	"os"
	"strconv"
	"time"
)

// Config holds fetch retry configuration
type Config struct {
	Enabled      bool          // Enable/disable the retry mechanism
	MaxRetries   int           // Maximum number of retry attempts
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Ceiling on the delay between retries
}

// LoadConfig loads fetch retry configuration from environment variables
func LoadConfig() Config {
	return Config{
		Enabled:      getEnvAsBool("FETCH_RETRY_ENABLED", true),
		MaxRetries:   getEnvAsInt("FETCH_RETRY_MAX_RETRIES", 10),
		InitialDelay: time.Duration(getEnvAsInt("FETCH_RETRY_INITIAL_DELAY_SEC", 1)) * time.Second,
		MaxDelay:     time.Duration(getEnvAsInt("FETCH_RETRY_MAX_DELAY_SEC", 60)) * time.Second,
	}
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
