package retry

import (
	"context"
	"log/slog"
)

// Strategy defines how a fetch operation is retried on transient failure.
type Strategy interface {
	// Execute runs the operation with the configured retry logic
	Execute(ctx context.Context, operation Operation) error

	// Name returns the strategy name for logging
	Name() string
}

// Operation is a function that can be retried.
type Operation func() error

// NewStrategy creates a retry strategy based on configuration
func NewStrategy(config Config) Strategy {
	if !config.Enabled {
		slog.Info("Fetch retry disabled, using NoRetryStrategy")
		return NewNoRetryStrategy()
	}

	slog.Info("Fetch retry enabled, using ExponentialBackoffStrategy",
		"max_retries", config.MaxRetries,
		"initial_delay", config.InitialDelay,
		"max_delay", config.MaxDelay,
	)

	return NewExponentialBackoffStrategy(
		config.MaxRetries,
		config.InitialDelay,
		config.MaxDelay,
	)
}
