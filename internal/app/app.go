package app

import (
	"context"
	"sync"

	"github.com/mselser95/onearb-wallet/pkg/config"
	"github.com/mselser95/onearb-wallet/pkg/healthprobe"
	"github.com/mselser95/onearb-wallet/pkg/httpserver"
	walletbalance "github.com/mselser95/onearb-wallet/pkg/wallet"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	wallet        *Wallet
	tracker       *walletbalance.Tracker
	autoConnect   bool
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// AutoConnect requests accounts right after discovery when no session was restored.
	AutoConnect bool
}
