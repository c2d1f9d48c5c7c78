package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mselser95/onearb-wallet/internal/notify"
	"github.com/mselser95/onearb-wallet/internal/storage"
	"github.com/mselser95/onearb-wallet/internal/walletsession"
	"github.com/mselser95/onearb-wallet/pkg/bridge"
	"github.com/mselser95/onearb-wallet/pkg/cache"
	"github.com/mselser95/onearb-wallet/pkg/clipboard"
	"github.com/mselser95/onearb-wallet/pkg/config"
	"github.com/mselser95/onearb-wallet/pkg/networks"
	"github.com/mselser95/onearb-wallet/pkg/provider"
	walletbalance "github.com/mselser95/onearb-wallet/pkg/wallet"
	"go.uber.org/zap"
)

// Wallet bundles the session controller with the resources it was built from.
type Wallet struct {
	Controller *walletsession.Controller
	Registry   *networks.Registry
	Store      storage.SessionStore
	Notifier   *notify.Notifier
	Balances   *walletbalance.Client

	injected *provider.RPCProvider
	events   *provider.EventStream
	logger   *zap.Logger
}

// clientVersioner is implemented by providers that report the wallet software name.
type clientVersioner interface {
	ClientVersion(ctx context.Context) (string, error)
}

// NewWallet builds the controller and its environment from configuration. It does not
// run discovery.
func NewWallet(ctx context.Context, cfg *config.Config, logger *zap.Logger) (w *Wallet, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	registry, err := setupRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("setup registry: %w", err)
	}

	store, err := setupStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup session store: %w", err)
	}

	balances, err := walletbalance.NewClient(registry, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create balance client: %w", err)
	}

	w = &Wallet{
		Registry: registry,
		Balances: balances,
		Store:    store,
		Notifier: notify.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger),
		logger:   logger,
	}

	w.injected, w.events = setupInjectedProvider(ctx, cfg, logger)

	var (
		onConnected    func(walletsession.Connection)
		onDisconnected func()
	)
	if w.Notifier.Enabled() {
		onConnected = w.Notifier.ConnectionHook(registry)
		onDisconnected = w.Notifier.DisconnectionHook()
	}

	w.Controller, err = walletsession.New(&walletsession.Config{
		Registry:             registry,
		Store:                store,
		Environment:          w.environment(cfg),
		Clipboard:            setupClipboard(logger),
		OnWalletConnected:    onConnected,
		OnWalletDisconnected: onDisconnected,
		CopyHintDelay:        cfg.CopyHintDuration,
		Logger:               logger,
	})
	if err != nil {
		_ = w.closeResources()
		return nil, fmt.Errorf("create wallet controller: %w", err)
	}

	return w, nil
}

// Account returns the connected account for balance tracking.
func (w *Wallet) Account() walletbalance.Account {
	state := w.Controller.State()
	return walletbalance.Account{Address: state.Address, ChainID: state.ChainID}
}

// EventsConnected reports whether the injected provider's event stream is up.
// It is true when no event stream is configured.
func (w *Wallet) EventsConnected() bool {
	return w.events == nil || w.events.Connected()
}

// Close shuts the controller down and releases every resource it used.
func (w *Wallet) Close() error {
	var errs []error

	err := w.Controller.Close()
	if err != nil {
		errs = append(errs, fmt.Errorf("close controller: %w", err))
	}

	w.Notifier.Wait()

	err = w.closeResources()
	if err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (w *Wallet) closeResources() error {
	var errs []error

	// The provider owns its event stream.
	if w.injected != nil {
		err := w.injected.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("close provider: %w", err))
		}
	}

	err := w.Store.Close()
	if err != nil {
		errs = append(errs, fmt.Errorf("close session store: %w", err))
	}

	return errors.Join(errs...)
}

func (w *Wallet) environment(cfg *config.Config) walletsession.Environment {
	env := walletsession.Environment{
		IsTrusted: trustedClient(cfg.WalletTrustedClient, w.logger),
	}

	if w.injected != nil {
		env.Injected = w.injected
	}

	if cfg.HasBridge() {
		env.NewBridge = func(ctx context.Context) (bridge.Bridge, error) {
			relay, err := bridge.NewRelayClient(ctx, &bridge.Config{
				BaseURL:      cfg.WalletBridgeURL,
				Dapp:         bridge.DappMetadata{Name: cfg.DappName, URL: cfg.DappURL},
				EnableEvents: cfg.WalletBridgeEvents,
				Events:       eventStreamConfig(cfg, "", w.logger),
				Logger:       w.logger,
			})
			if err != nil {
				return nil, err
			}
			return relay, nil
		}
	}

	return env
}

// trustedClient accepts providers whose client version names the expected wallet.
// An empty name trusts every injected provider.
func trustedClient(name string, logger *zap.Logger) func(context.Context, provider.Provider) bool {
	if name == "" {
		return nil
	}

	want := strings.ToLower(name)
	return func(ctx context.Context, p provider.Provider) bool {
		cv, ok := p.(clientVersioner)
		if !ok {
			return false
		}

		version, err := cv.ClientVersion(ctx)
		if err != nil {
			logger.Debug("wallet-client-version-unavailable", zap.Error(err))
			return false
		}

		logger.Debug("wallet-client-version", zap.String("client-version", version))
		return strings.Contains(strings.ToLower(version), want)
	}
}

// setupRegistry loads NETWORKS_FILE, falling back to the built-in registry when unset.
func setupRegistry(cfg *config.Config) (*networks.Registry, error) {
	return networks.LoadFile(cfg.NetworksFile)
}

func setupStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.SessionStore, error) {
	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		store, err := storage.NewPostgresStore(ctx, &storage.PostgresConfig{
			Host:       cfg.PostgresHost,
			Port:       cfg.PostgresPort,
			User:       cfg.PostgresUser,
			Password:   cfg.PostgresPass,
			Database:   cfg.PostgresDB,
			SSLMode:    cfg.PostgresSSL,
			SessionKey: cfg.SessionKey,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		return store, nil

	case config.SessionStoreMemory:
		sessionCache, err := cache.NewRistrettoCache(cache.DefaultRistrettoConfig(logger))
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
		store, err := storage.NewMemoryStore(sessionCache, cfg.SessionKey, logger)
		if err != nil {
			sessionCache.Close()
			return nil, fmt.Errorf("create memory store: %w", err)
		}
		return store, nil

	default:
		store, err := storage.NewFileStore(&storage.FileConfig{
			Dir:    cfg.SessionDir,
			Key:    cfg.SessionKey,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create file store: %w", err)
		}
		return store, nil
	}
}

// setupInjectedProvider connects to the host wallet endpoint. An unreachable endpoint
// leaves the host without an injected provider rather than failing startup.
func setupInjectedProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*provider.RPCProvider, *provider.EventStream) {
	if !cfg.HasInjectedProvider() {
		return nil, nil
	}

	var events *provider.EventStream
	if cfg.WalletEventsURL != "" {
		stream, err := provider.NewEventStream(eventStreamConfig(cfg, cfg.WalletEventsURL, logger))
		if err == nil {
			err = stream.Start()
			if err != nil {
				_ = stream.Close()
			}
		}
		if err != nil {
			logger.Warn("wallet-events-unavailable",
				zap.String("url", cfg.WalletEventsURL),
				zap.Error(err))
		} else {
			events = stream
		}
	}

	p, err := provider.NewRPCProvider(ctx, &provider.RPCConfig{
		URL:          cfg.WalletProviderURL,
		UnlockMethod: cfg.WalletUnlockMethod,
		Events:       events,
		Logger:       logger,
	})
	if err != nil {
		logger.Warn("wallet-provider-unreachable",
			zap.String("url", cfg.WalletProviderURL),
			zap.Error(err))
		if events != nil {
			_ = events.Close()
		}
		return nil, nil
	}

	return p, events
}

func eventStreamConfig(cfg *config.Config, url string, logger *zap.Logger) provider.EventStreamConfig {
	return provider.EventStreamConfig{
		URL:                   url,
		DialTimeout:           cfg.WSDialTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		Logger:                logger,
	}
}

func setupClipboard(logger *zap.Logger) clipboard.Writer {
	return clipboard.New(clipboard.System{}, clipboard.NewOSC52(os.Stderr), logger)
}
