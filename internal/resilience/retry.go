package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/miethe/skillmeat/internal/logger"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	Jitter          bool
	RetryableErrors []error
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// MarketplaceRetryConfig is tuned for fetching artifact blobs from an
// upstream marketplace: more attempts, longer backoff ceiling than the
// default, since a marketplace outage tends to be measured in minutes.
func MarketplaceRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// RetryResult contains the outcome of a retry operation.
type RetryResult struct {
	Attempts      int
	LastError     error
	Success       bool
	TotalDuration time.Duration
}

// Retry executes fn with exponential backoff and jitter.
func Retry(ctx context.Context, config *RetryConfig, fn RetryableFunc) (*RetryResult, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}

	log := logger.New("resilience.retry")
	startTime := time.Now()
	result := &RetryResult{}

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result.Attempts = attempt

		if err := fn(ctx); err == nil {
			result.Success = true
			result.TotalDuration = time.Since(startTime)
			if attempt > 1 {
				log.Info("operation succeeded after retry", logger.Int("attempt", attempt), logger.Duration("duration", result.TotalDuration))
			}
			return result, nil
		} else {
			result.LastError = err

			if !isRetryable(err, config.RetryableErrors) {
				log.Warn("non-retryable error", logger.Error(err), logger.Int("attempt", attempt))
				result.TotalDuration = time.Since(startTime)
				return result, err
			}

			if attempt >= config.MaxAttempts {
				log.Error("max retry attempts reached", logger.Error(err), logger.Int("attempts", attempt))
				result.TotalDuration = time.Since(startTime)
				return result, fmt.Errorf("operation failed after %d attempts: %w", attempt, err)
			}

			delay := calculateDelay(attempt, config)
			log.Debug("retrying operation", logger.Int("attempt", attempt), logger.Duration("next_delay", delay), logger.Error(err))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				result.TotalDuration = time.Since(startTime)
				return result, ctx.Err()
			}
		}
	}

	result.TotalDuration = time.Since(startTime)
	return result, result.LastError
}

// RetryWithTimeout runs Retry bounded by an overall timeout.
func RetryWithTimeout(timeout time.Duration, config *RetryConfig, fn RetryableFunc) (*RetryResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return Retry(ctx, config, fn)
}

func calculateDelay(attempt int, config *RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	if config.Jitter {
		delay += rand.Float64() * 0.3 * delay
	}
	return time.Duration(delay)
}

func isRetryable(err error, retryableErrors []error) bool {
	if len(retryableErrors) == 0 {
		return true
	}
	for _, retryableErr := range retryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{"timeout", "connection refused", "connection reset", "too many requests", "rate limit", "throttled", "temporary", "503", "429"}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}
