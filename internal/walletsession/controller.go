package walletsession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mselser95/onearb-wallet/internal/storage"
	"github.com/mselser95/onearb-wallet/pkg/bridge"
	"github.com/mselser95/onearb-wallet/pkg/clipboard"
	"github.com/mselser95/onearb-wallet/pkg/networks"
	"github.com/mselser95/onearb-wallet/pkg/provider"
	"go.uber.org/zap"
)

// DefaultCopyHintDelay is how long a copy hint stays visible.
const DefaultCopyHintDelay = 1600 * time.Millisecond

const noGenerationCheck = ^uint64(0)

// Environment describes what the host offers for reaching a wallet.
type Environment struct {
	// Injected is a provider exposed directly by the host, if any.
	Injected provider.Provider

	// IsTrusted identifies Injected as a supported wallet. Nil accepts any injected provider.
	IsTrusted func(ctx context.Context, p provider.Provider) bool

	// NewBridge builds the remote bridge. It is called at most once, and only when there is no
	// trusted injected provider. The controller owns and closes the result.
	NewBridge func(ctx context.Context) (bridge.Bridge, error)
}

// Config holds Controller configuration.
type Config struct {
	Registry    *networks.Registry
	Store       storage.SessionStore
	Environment Environment

	// Clipboard receives CopyAddress writes. Nil makes every copy fail.
	Clipboard clipboard.Writer

	// OnWalletConnected is called, outside any lock, whenever a connected (address, chain)
	// pair is established or changes.
	OnWalletConnected func(Connection)

	// OnWalletDisconnected is called, outside any lock, when a connected account is forgotten.
	OnWalletDisconnected func()

	CopyHintDelay time.Duration
	Logger        *zap.Logger
}

// Controller owns the wallet connection state. All methods are safe for concurrent use and
// report failures through State.ErrorMessage rather than returned errors.
type Controller struct {
	registry       *networks.Registry
	store          storage.SessionStore
	env            Environment
	clipboard      clipboard.Writer
	onConnected    func(Connection)
	onDisconnected func()
	copyHintDelay  time.Duration
	logger         *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// persistMu orders transitions that also write the session store, so the stored
	// session always matches the last applied transition.
	persistMu sync.Mutex

	mu          sync.Mutex
	state       State
	generation  uint64
	discovered  bool
	closed      bool
	provider    provider.Provider
	caps        provider.Capabilities
	bridge      bridge.Bridge
	unsubscribe func()
	copySeq     uint64
	copyTimer   *time.Timer
}

// New creates a controller. Call Discover to find a provider.
func New(cfg *Config) (c *Controller, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Registry == nil {
		return nil, errors.New("network registry cannot be nil")
	}

	if cfg.Store == nil {
		return nil, errors.New("session store cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	delay := cfg.CopyHintDelay
	if delay <= 0 {
		delay = DefaultCopyHintDelay
	}

	ctx, cancel := context.WithCancel(context.Background())

	c = &Controller{
		registry:       cfg.Registry,
		store:          cfg.Store,
		env:            cfg.Environment,
		clipboard:      cfg.Clipboard,
		onConnected:    cfg.OnWalletConnected,
		onDisconnected: cfg.OnWalletDisconnected,
		copyHintDelay:  delay,
		logger:         cfg.Logger,
		ctx:            ctx,
		cancel:         cancel,
		state:          initialState(),
	}

	return c, nil
}

// Discover looks for a wallet provider, subscribes to its events and restores the saved
// session. Only the first call has an effect.
func (c *Controller) Discover(ctx context.Context) {
	c.mu.Lock()
	if c.discovered || c.closed {
		c.mu.Unlock()
		return
	}
	c.discovered = true
	c.mu.Unlock()

	p, kind, b := c.findProvider(ctx)
	caps := provider.Probe(p)

	c.mu.Lock()
	c.provider = p
	c.bridge = b
	c.caps = caps
	c.mu.Unlock()

	c.update(func(s State) State {
		s.HasProvider = p != nil
		s.ProviderKind = kind
		return s
	})

	if p == nil {
		c.logger.Warn("wallet-provider-not-found")
		return
	}

	c.logger.Info("wallet-provider-discovered",
		zap.String("provider-kind", string(kind)),
		zap.Bool("events", caps.Subscribe != nil),
		zap.Bool("unlock-query", caps.IsUnlocked != nil))

	if caps.Subscribe != nil {
		unsubscribe, err := caps.Subscribe(provider.Handlers{
			AccountsChanged: c.handleAccountsChanged,
			ChainChanged:    c.handleChainChanged,
			Disconnect:      c.handleProviderDisconnect,
		})
		if err != nil {
			c.logger.Warn("wallet-event-subscribe-failed", zap.Error(err))
		} else {
			c.mu.Lock()
			c.unsubscribe = unsubscribe
			c.mu.Unlock()
		}
	}

	c.Hydrate(ctx)
}

func (c *Controller) findProvider(ctx context.Context) (provider.Provider, ProviderKind, bridge.Bridge) {
	env := c.env

	if env.Injected != nil {
		if env.IsTrusted == nil || env.IsTrusted(ctx, env.Injected) {
			return env.Injected, ProviderExtension, nil
		}
		c.logger.Info("injected-provider-not-trusted")
	}

	if env.NewBridge == nil {
		return nil, ProviderNone, nil
	}

	b, err := env.NewBridge(ctx)
	if err != nil {
		c.logger.Warn("wallet-bridge-unavailable", zap.Error(err))
		return nil, ProviderNone, nil
	}

	p := b.Provider()
	if p == nil {
		c.logger.Warn("wallet-bridge-has-no-provider")
		return nil, ProviderNone, b
	}

	return p, ProviderRemoteSDK, b
}

// Hydrate reads the current chain and silently restores the saved session. Every step
// degrades on failure.
func (c *Controller) Hydrate(ctx context.Context) {
	p, caps := c.resources()
	if p == nil {
		return
	}

	chainID, err := provider.ChainID(ctx, p)
	if err != nil {
		c.logger.Warn("wallet-chain-id-unavailable", zap.Error(err))
		chainID = ""
	}
	chainID = networks.NormalizeChainID(chainID)

	c.update(func(s State) State {
		s.ChainID = chainID
		return s
	})

	c.restoreSession(ctx, p)

	if c.State().Address != "" {
		return
	}

	if c.isLocked(ctx, caps) {
		c.update(func(s State) State {
			if s.Address == "" {
				s.ErrorMessage = MsgLocked
			}
			return s
		})
	}
}

func (c *Controller) restoreSession(ctx context.Context, p provider.Provider) {
	session, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("wallet-session-load-failed", zap.Error(err))
		SessionRestoresTotal.WithLabelValues("load_error").Inc()
		return
	}

	if session == nil || !session.Connected || session.Address == "" {
		SessionRestoresTotal.WithLabelValues("none").Inc()
		return
	}

	gen := c.currentGeneration()

	accounts, err := provider.Accounts(ctx, p)
	if err != nil {
		// The saved session is kept; a later hydration may still restore it.
		c.logger.Warn("wallet-session-restore-failed", zap.Error(err))
		SessionRestoresTotal.WithLabelValues("provider_error").Inc()
		return
	}

	primary := primaryAccount(accounts)
	if primary == "" {
		c.logger.Info("wallet-session-stale", zap.String("address", session.Address))
		SessionRestoresTotal.WithLabelValues("stale").Inc()
		c.resetSession(ctx, func(s State) State {
			s.Address = ""
			return s
		})
		return
	}

	s, ok := c.adopt(ctx, gen, func(s State) State {
		s.Address = primary
		return s
	})
	if !ok {
		SessionRestoresTotal.WithLabelValues("discarded").Inc()
		return
	}

	SessionRestoresTotal.WithLabelValues("restored").Inc()
	c.logger.Info("wallet-session-restored",
		zap.String("address", s.Address),
		zap.String("chain-id", s.ChainID))
	c.notify(s)
}

// Connect asks the wallet to authorize an account. While a connect is in flight further
// calls return immediately.
func (c *Controller) Connect(ctx context.Context) {
	var (
		started    bool
		noProvider bool
		gen        uint64
		p          provider.Provider
		caps       provider.Capabilities
		b          bridge.Bridge
		kind       ProviderKind
	)

	c.update(func(s State) State {
		switch {
		case !s.HasProvider:
			noProvider = true
			s.ErrorMessage = MsgNotInstalled
		case s.IsConnecting:
		default:
			started = true
			s.IsConnecting = true
			s.ErrorMessage = ""
			gen = c.generation
			p, caps, b, kind = c.provider, c.caps, c.bridge, s.ProviderKind
		}
		return s
	})

	if noProvider {
		ConnectAttemptsTotal.WithLabelValues("no_provider").Inc()
		return
	}

	if !started {
		c.logger.Debug("wallet-connect-already-in-flight")
		return
	}

	defer c.update(func(s State) State {
		s.IsConnecting = false
		return s
	})

	c.logger.Info("wallet-connect-started", zap.String("provider-kind", string(kind)))

	accounts, err := c.requestAccounts(ctx, p, b, kind)
	if err != nil {
		msg := ErrorMessage(err)
		stale := false
		c.update(func(s State) State {
			if gen != c.generation {
				stale = true
				return s
			}
			s.ErrorMessage = msg
			return s
		})
		if stale {
			c.discardStaleConnect()
			return
		}

		ConnectAttemptsTotal.WithLabelValues(errorKind(err)).Inc()
		c.logger.Warn("wallet-connect-failed",
			zap.Error(err),
			zap.String("message", msg))
		return
	}

	chainID, chainErr := provider.ChainID(ctx, p)
	if chainErr != nil {
		c.logger.Warn("wallet-chain-id-unavailable", zap.Error(chainErr))
	}
	chainID = networks.NormalizeChainID(chainID)

	setChain := func(s State) State {
		if chainErr == nil {
			s.ChainID = chainID
		}
		return s
	}

	primary := primaryAccount(accounts)
	if primary == "" {
		if c.isStale(gen) {
			c.discardStaleConnect()
			return
		}

		c.resetSession(ctx, func(s State) State {
			s = setChain(s)
			s.Address = ""
			s.ErrorMessage = ""
			return s
		})

		if c.isLocked(ctx, caps) {
			c.update(func(s State) State {
				if s.Address == "" {
					s.ErrorMessage = MsgLocked
				}
				return s
			})
		}

		ConnectAttemptsTotal.WithLabelValues("no_accounts").Inc()
		c.logger.Info("wallet-connect-returned-no-accounts", zap.Int("account-count", len(accounts)))
		return
	}

	s, ok := c.adopt(ctx, gen, func(s State) State {
		s = setChain(s)
		s.Address = primary
		s.ErrorMessage = ""
		return s
	})
	if !ok {
		c.discardStaleConnect()
		return
	}

	ConnectAttemptsTotal.WithLabelValues("connected").Inc()
	c.logger.Info("wallet-connected",
		zap.String("address", s.Address),
		zap.String("chain-id", s.ChainID),
		zap.String("provider-kind", string(kind)))

	c.notify(s)
}

func (c *Controller) requestAccounts(ctx context.Context, p provider.Provider, b bridge.Bridge, kind ProviderKind) ([]string, error) {
	if kind == ProviderRemoteSDK && b != nil {
		accounts, err := b.Connect(ctx)
		if err != nil {
			return nil, fmt.Errorf("bridge connect: %w", err)
		}
		return accounts, nil
	}

	return provider.RequestAccounts(ctx, p)
}

func (c *Controller) discardStaleConnect() {
	StaleConnectsDiscardedTotal.Inc()
	ConnectAttemptsTotal.WithLabelValues("discarded").Inc()
	c.logger.Info("wallet-connect-result-discarded")
}

// Disconnect ends the remote session when there is one and always forgets the account.
func (c *Controller) Disconnect(ctx context.Context) {
	// In-flight connects are invalidated before Terminate, which may fail them.
	c.mu.Lock()
	c.generation++
	b, kind := c.bridge, c.state.ProviderKind
	c.mu.Unlock()

	if t, ok := b.(bridge.Terminator); ok && kind == ProviderRemoteSDK {
		err := t.Terminate(ctx)
		if err != nil {
			c.logger.Warn("wallet-bridge-terminate-failed", zap.Error(err))
		}
	}

	c.resetSession(ctx, func(s State) State {
		s.Address = ""
		s.ErrorMessage = ""
		return s
	})

	c.logger.Info("wallet-disconnected")
}

// SwitchNetwork asks the wallet to move to the registry's target chain, adding the chain
// first if the wallet does not know it. Already being on the target is a no-op.
func (c *Controller) SwitchNetwork(ctx context.Context) {
	c.mu.Lock()
	p, current := c.provider, c.state.ChainID
	c.mu.Unlock()

	if p == nil {
		return
	}

	target := c.registry.Target()
	if target == "" {
		return
	}

	if current == target {
		NetworkSwitchesTotal.WithLabelValues("already_on_target").Inc()
		c.logger.Debug("wallet-already-on-target-network", zap.String("chain-id", target))
		return
	}

	c.update(func(s State) State {
		s.ErrorMessage = ""
		return s
	})

	err := c.switchChain(ctx, p, target)
	if err != nil {
		msg := ErrorMessage(err)
		c.update(func(s State) State {
			s.ErrorMessage = msg
			return s
		})

		NetworkSwitchesTotal.WithLabelValues(errorKind(err)).Inc()
		c.logger.Warn("wallet-network-switch-failed",
			zap.String("target-chain-id", target),
			zap.Error(err))
		return
	}

	NetworkSwitchesTotal.WithLabelValues("switched").Inc()
	c.logger.Info("wallet-network-switched", zap.String("chain-id", target))

	chainID, err := provider.ChainID(ctx, p)
	if err != nil {
		c.logger.Debug("wallet-chain-id-reread-failed", zap.Error(err))
		return
	}
	chainID = networks.NormalizeChainID(chainID)

	var changed bool
	s := c.update(func(s State) State {
		changed = s.ChainID != chainID
		s.ChainID = chainID
		return s
	})

	if changed {
		c.notify(s)
	}
}

func (c *Controller) switchChain(ctx context.Context, p provider.Provider, target string) error {
	err := provider.SwitchChain(ctx, p, target)
	if err == nil || !provider.HasCode(err, provider.CodeUnrecognizedChain) {
		return err
	}

	network, ok := c.registry.Lookup(target)
	if !ok {
		return err
	}

	c.logger.Info("wallet-add-chain-requested", zap.String("chain-id", target))
	return provider.AddChain(ctx, p, network)
}

// CopyAddress copies the current address and shows a hint that clears after the hint delay.
func (c *Controller) CopyAddress(ctx context.Context) {
	address := c.State().Address
	if address == "" {
		return
	}

	hint := HintCopied
	err := c.writeClipboard(ctx, address)
	if err != nil {
		hint = HintCopyFailed
		c.logger.Warn("wallet-copy-address-failed", zap.Error(err))
	}

	c.update(func(s State) State {
		if c.closed {
			return s
		}

		c.copySeq++
		seq := c.copySeq
		if c.copyTimer != nil {
			c.copyTimer.Stop()
		}
		c.copyTimer = time.AfterFunc(c.copyHintDelay, func() { c.clearCopyHint(seq) })

		s.CopyHint = hint
		return s
	})
}

func (c *Controller) writeClipboard(ctx context.Context, text string) error {
	if c.clipboard == nil {
		return clipboard.ErrUnavailable
	}
	return c.clipboard.WriteText(ctx, text)
}

func (c *Controller) clearCopyHint(seq uint64) {
	c.update(func(s State) State {
		if c.copySeq == seq {
			s.CopyHint = ""
		}
		return s
	})
}

func (c *Controller) handleAccountsChanged(accounts []string) {
	if c.isClosed() {
		return
	}
	ProviderEventsTotal.WithLabelValues(provider.EventAccountsChanged).Inc()

	primary := primaryAccount(accounts)
	if primary == "" {
		c.resetSession(c.ctx, func(s State) State {
			// With no known address the user already disconnected locally.
			if s.Address != "" {
				s.ErrorMessage = MsgProviderDisconnected
			} else {
				s.ErrorMessage = ""
			}
			s.Address = ""
			return s
		})
		c.logger.Info("wallet-accounts-revoked")
		return
	}

	s, _ := c.adopt(c.ctx, noGenerationCheck, func(s State) State {
		s.Address = primary
		s.ErrorMessage = ""
		return s
	})

	c.logger.Info("wallet-account-changed", zap.String("address", s.Address))
	c.notify(s)
}

func (c *Controller) handleChainChanged(chainID string) {
	if c.isClosed() {
		return
	}
	ProviderEventsTotal.WithLabelValues(provider.EventChainChanged).Inc()

	chainID = networks.NormalizeChainID(chainID)
	s := c.update(func(s State) State {
		s.ChainID = chainID
		s.ErrorMessage = ""
		return s
	})

	c.logger.Info("wallet-chain-changed",
		zap.String("chain-id", chainID),
		zap.Bool("allowed", c.registry.IsAllowed(chainID)))

	c.notify(s)
}

func (c *Controller) handleProviderDisconnect(err *provider.RPCError) {
	if c.isClosed() {
		return
	}
	ProviderEventsTotal.WithLabelValues(provider.EventDisconnect).Inc()

	c.resetSession(c.ctx, func(s State) State {
		s.Address = ""
		s.ErrorMessage = MsgProviderDisconnected
		return s
	})

	fields := []zap.Field{}
	if err != nil {
		fields = append(fields, zap.Int("code", err.Code), zap.String("reason", err.Message))
	}
	c.logger.Warn("wallet-provider-disconnected", fields...)
}

// State returns a snapshot of the connection state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns the presentation projection of the current state.
func (c *Controller) View() View {
	return Derive(c.State(), c.registry)
}

// Registry returns the network registry the controller validates chains against.
func (c *Controller) Registry() *networks.Registry {
	return c.registry
}

// Close releases event subscriptions, stops the copy hint timer and closes the bridge.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	if c.copyTimer != nil {
		c.copyTimer.Stop()
	}
	b := c.bridge
	c.mu.Unlock()

	c.cancel()

	if unsubscribe != nil {
		unsubscribe()
	}

	if closer, ok := b.(io.Closer); ok {
		err := closer.Close()
		if err != nil {
			return fmt.Errorf("close bridge: %w", err)
		}
	}

	c.logger.Info("wallet-controller-closed")
	return nil
}

// update applies fn to the state as one transition and returns the new state.
func (c *Controller) update(fn func(State) State) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = fn(c.state)
	c.recordConnected()
	return c.state
}

// adopt applies an account-bearing transition and persists the session. When gen is not
// noGenerationCheck the transition is skipped if a disconnect happened since gen was read.
func (c *Controller) adopt(ctx context.Context, gen uint64, fn func(State) State) (State, bool) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	if gen != noGenerationCheck && gen != c.generation {
		c.mu.Unlock()
		return State{}, false
	}
	c.state = fn(c.state)
	c.recordConnected()
	s := c.state
	c.mu.Unlock()

	err := c.store.Save(ctx, storage.Session{Connected: true, Address: s.Address})
	if err != nil {
		c.logger.Warn("wallet-session-save-failed", zap.Error(err))
	}

	return s, true
}

// resetSession applies a disconnect-type transition, invalidates in-flight connects and
// clears the stored session.
func (c *Controller) resetSession(ctx context.Context, fn func(State) State) State {
	c.persistMu.Lock()

	c.mu.Lock()
	wasConnected := c.state.Connected()
	c.generation++
	c.state = fn(c.state)
	c.recordConnected()
	s := c.state
	c.mu.Unlock()

	err := c.store.Clear(ctx)
	c.persistMu.Unlock()

	if err != nil {
		c.logger.Warn("wallet-session-clear-failed", zap.Error(err))
	}

	if wasConnected && !s.Connected() && c.onDisconnected != nil {
		c.onDisconnected()
	}

	return s
}

// recordConnected must be called with mu held.
func (c *Controller) recordConnected() {
	if c.state.Connected() {
		Connected.Set(1)
	} else {
		Connected.Set(0)
	}
}

func (c *Controller) notify(s State) {
	if c.onConnected == nil || s.Address == "" || s.ChainID == "" {
		return
	}

	c.onConnected(Connection{Address: s.Address, ChainID: s.ChainID})
}

func (c *Controller) isLocked(ctx context.Context, caps provider.Capabilities) bool {
	if caps.IsUnlocked == nil {
		return false
	}

	unlocked, err := caps.IsUnlocked(ctx)
	if err != nil {
		c.logger.Debug("wallet-unlock-status-unavailable", zap.Error(err))
		return false
	}
	return !unlocked
}

func (c *Controller) resources() (provider.Provider, provider.Capabilities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider, c.caps
}

func (c *Controller) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *Controller) isStale(gen uint64) bool {
	return c.currentGeneration() != gen
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
