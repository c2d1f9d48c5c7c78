package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/mselser95/onearb-wallet/pkg/config"
	"github.com/mselser95/onearb-wallet/pkg/healthprobe"
	"github.com/mselser95/onearb-wallet/pkg/httpserver"
	walletbalance "github.com/mselser95/onearb-wallet/pkg/wallet"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Initialize components
	healthChecker := setupHealthChecker()

	wallet, err := NewWallet(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup wallet: %w", err)
	}

	registerChecks(healthChecker, wallet)

	tracker, err := setupBalanceTracker(cfg, logger, wallet)
	if err != nil {
		cancel()
		_ = wallet.Close()
		return nil, fmt.Errorf("setup balance tracker: %w", err)
	}

	httpServer := setupHTTPServer(cfg, logger, healthChecker, wallet, tracker)

	a := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		wallet:        wallet,
		tracker:       tracker,
		ctx:           ctx,
		cancel:        cancel,
		autoConnect:   opts.AutoConnect,
	}

	return a, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func registerChecks(hc *healthprobe.HealthChecker, w *Wallet) {
	hc.AddCheck("session-store", func(ctx context.Context) error {
		_, err := w.Store.Load(ctx)
		return err
	})
	hc.AddCheck("wallet-events", func(context.Context) error {
		if !w.EventsConnected() {
			return errors.New("event stream disconnected")
		}
		return nil
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	wallet *Wallet,
	tracker *walletbalance.Tracker,
) *httpserver.Server {
	serverCfg := &httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Wallet:        wallet.Controller,
		ActionTimeout: cfg.RequestTimeout,
	}
	if tracker != nil {
		serverCfg.Balances = tracker
	}
	return httpserver.New(serverCfg)
}

// setupBalanceTracker returns nil when balance polling is disabled.
func setupBalanceTracker(cfg *config.Config, logger *zap.Logger, wallet *Wallet) (*walletbalance.Tracker, error) {
	if cfg.BalancePollInterval <= 0 {
		logger.Info("balance-tracker-disabled")
		return nil, nil
	}

	return walletbalance.New(&walletbalance.Config{
		Client:       wallet.Balances,
		Account:      wallet.Account,
		PollInterval: cfg.BalancePollInterval,
		Logger:       logger,
	})
}
