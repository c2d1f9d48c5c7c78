package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("session-store", a.cfg.SessionStore),
		zap.Bool("injected-provider", a.cfg.HasInjectedProvider()),
		zap.Bool("bridge", a.cfg.HasBridge()),
		zap.String("log-level", a.cfg.LogLevel))

	a.startComponents()

	// Mark as ready
	a.healthChecker.SetReady(true)

	view := a.wallet.Controller.View()
	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("provider-kind", string(view.ProviderKind)),
		zap.String("status", view.StatusText))

	// Wait for shutdown signal
	return a.waitForShutdown()
}

func (a *App) startComponents() {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	a.discoverWallet()

	if a.tracker != nil {
		a.wg.Add(1)
		go a.runBalanceTracker()
	}
}

func (a *App) runBalanceTracker() {
	defer a.wg.Done()
	err := a.tracker.Run(a.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("balance-tracker-error", zap.Error(err))
	}
}

// discoverWallet finds the provider and restores the saved session before the
// service reports ready.
func (a *App) discoverWallet() {
	ctx, cancel := context.WithTimeout(a.ctx, a.cfg.RequestTimeout)
	defer cancel()

	a.wallet.Controller.Discover(ctx)

	if !a.autoConnect {
		return
	}

	state := a.wallet.Controller.State()
	if !state.HasProvider || state.Connected() {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		connectCtx, connectCancel := context.WithTimeout(a.ctx, a.cfg.RequestTimeout)
		defer connectCancel()
		a.wallet.Controller.Connect(connectCtx)
	}()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
