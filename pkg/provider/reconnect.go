package provider

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BackoffConfig controls reconnection pacing of the event stream.
type BackoffConfig struct {
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterPercent     float64 // 0.2 = up to 20% extra delay
}

// backoff paces reconnect attempts with capped exponential delay plus jitter.
type backoff struct {
	cfg     BackoffConfig
	logger  *zap.Logger
	mu      sync.Mutex
	current time.Duration
}

// DefaultReconnectInitialDelay replaces a non-positive initial delay.
const DefaultReconnectInitialDelay = time.Second

func newBackoff(cfg BackoffConfig, logger *zap.Logger) *backoff {
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultReconnectInitialDelay
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	return &backoff{
		cfg:     cfg,
		logger:  logger,
		current: cfg.InitialDelay,
	}
}

// retry calls dial until it succeeds or ctx ends.
func (b *backoff) retry(ctx context.Context, dial func(context.Context) error) error {
	for {
		delay := b.next()

		b.logger.Info("event-stream-reconnect-scheduled", zap.Duration("backoff", delay))
		ReconnectAttemptsTotal.Inc()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err := dial(ctx)
		if err == nil {
			b.reset()
			b.logger.Info("event-stream-reconnected")
			return nil
		}

		b.logger.Warn("event-stream-reconnect-failed", zap.Error(err))
		ReconnectFailuresTotal.Inc()
		b.grow()
	}
}

// next returns the current delay with jitter applied.
func (b *backoff) next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	jitter := rand.Float64() * b.cfg.JitterPercent
	return time.Duration(float64(b.current) * (1.0 + jitter))
}

func (b *backoff) grow() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = time.Duration(float64(b.current) * b.cfg.BackoffMultiplier)
	if b.current > b.cfg.MaxDelay {
		b.current = b.cfg.MaxDelay
	}
}

func (b *backoff) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = b.cfg.InitialDelay
}
