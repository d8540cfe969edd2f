package db

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Backoff returns the wait before retry number attempt (0-based):
// 500ms, 1s, 2s... capped at 10s, plus up to 250ms of jitter.
func Backoff(attempt int) time.Duration {
	base := 500 * time.Millisecond
	capDelay := 10 * time.Second

	multiple := math.Pow(2, float64(attempt))
	delay := time.Duration(float64(base) * multiple)

	if delay > capDelay || delay <= 0 {
		delay = capDelay
	}

	// small jitter (0–250ms) so replicas do not reconnect in lockstep
	delay += time.Duration(rand.Intn(250)) * time.Millisecond
	return delay
}

// ConnectWithRetry calls NewClient up to attempts times, waiting Backoff
// between tries. It gives up early when ctx is done.
func ConnectWithRetry(ctx context.Context, uri string, attempts int, log *slog.Logger) (*mongo.Client, error) {
	return connectWithRetry(ctx, attempts, log, func() (*mongo.Client, error) {
		return NewClient(uri)
	})
}

func connectWithRetry(ctx context.Context, attempts int, log *slog.Logger, connect func() (*mongo.Client, error)) (*mongo.Client, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		client, err := connect()

		if err == nil {
			return client, nil
		}

		lastErr = err

		if attempt == attempts-1 {
			break
		}

		wait := Backoff(attempt)
		log.Warn("mongo connect failed, retrying", "attempt", attempt+1, "wait", wait, "err", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, lastErr
}
