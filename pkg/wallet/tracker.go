package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Account is the connected account to track. An empty Address means nothing is connected.
type Account struct {
	Address string
	ChainID string
}

// Tracker periodically fetches the connected account's balance and updates Prometheus metrics.
type Tracker struct {
	client       *Client
	account      func() Account
	pollInterval time.Duration
	logger       *zap.Logger

	mu     sync.RWMutex
	latest *Balance
}

// Config holds tracker configuration.
type Config struct {
	Client       *Client
	Account      func() Account
	PollInterval time.Duration
	Logger       *zap.Logger
}

// New creates a new balance tracker.
func New(cfg *Config) (t *Tracker, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Client == nil {
		return nil, errors.New("client cannot be nil")
	}

	if cfg.Account == nil {
		return nil, errors.New("account source cannot be nil")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	tracker := &Tracker{
		client:       cfg.Client,
		account:      cfg.Account,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}

	return tracker, nil
}

// Run starts the tracker polling loop (blocking).
func (t *Tracker) Run(ctx context.Context) (err error) {
	t.logger.Info("balance-tracker-starting", zap.Duration("poll-interval", t.pollInterval))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	// Initial poll
	pollErr := t.poll(ctx)
	if pollErr != nil {
		t.logger.Warn("initial-balance-poll-failed", zap.Error(pollErr))
		UpdateErrorsTotal.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("balance-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			pollErr = t.poll(ctx)
			if pollErr != nil {
				t.logger.Warn("balance-poll-failed", zap.Error(pollErr))
				UpdateErrorsTotal.Inc()
			}
		}
	}
}

// Latest returns the most recent balance of the connected account. It reports false when
// nothing is connected or the account changed since the last poll.
func (t *Tracker) Latest() (Balance, bool) {
	account := t.account()

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.latest == nil || account.Address == "" ||
		t.latest.Address != account.Address || t.latest.ChainID != account.ChainID {
		return Balance{}, false
	}
	return *t.latest, true
}

// poll performs a single polling cycle.
func (t *Tracker) poll(ctx context.Context) (err error) {
	account := t.account()
	if account.Address == "" || account.ChainID == "" {
		t.reset()
		return nil
	}

	if !t.client.registry.IsAllowed(account.ChainID) {
		t.reset()
		return nil
	}

	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	balance, err := t.client.NativeBalance(ctx, account.ChainID, account.Address)
	if err != nil {
		return fmt.Errorf("get native balance: %w", err)
	}

	t.mu.Lock()
	t.latest = balance
	t.mu.Unlock()

	NativeBalance.Set(balance.Float())
	LastUpdateTimestamp.Set(float64(time.Now().Unix()))

	t.logger.Debug("balance-poll-complete",
		zap.String("balance", balance.String()),
		zap.Duration("duration", time.Since(start)))

	return nil
}

func (t *Tracker) reset() {
	t.mu.Lock()
	t.latest = nil
	t.mu.Unlock()
	NativeBalance.Set(0)
}
