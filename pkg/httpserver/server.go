package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mselser95/onearb-wallet/pkg/healthprobe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides HTTP endpoints for the wallet session, metrics and health checks.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	wallet        *WalletHandler
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Wallet        WalletController
	Balances      BalanceSource
	ActionTimeout time.Duration
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	var wallet *WalletHandler
	if cfg.Wallet != nil {
		wallet = NewWalletHandler(cfg.Wallet, cfg.ActionTimeout, cfg.Logger)
		wallet.balances = cfg.Balances
		r.Route("/api/wallet", func(r chi.Router) {
			r.Get("/", wallet.HandleView)
			r.Get("/balance", wallet.HandleBalance)
			r.Post("/connect", wallet.HandleConnect)
			r.Post("/disconnect", wallet.HandleDisconnect)
			r.Post("/switch-network", wallet.HandleSwitchNetwork)
			r.Post("/copy-address", wallet.HandleCopyAddress)
		})
		r.Get("/api/networks", wallet.HandleNetworks)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
		wallet:        wallet,
	}
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server and waits for background
// wallet actions started by it.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if s.wallet != nil {
		err = s.wallet.Wait(ctx)
		if err != nil {
			return fmt.Errorf("wait for wallet actions: %w", err)
		}
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
