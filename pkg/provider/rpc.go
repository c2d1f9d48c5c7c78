package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// RPCProvider speaks the wallet request API as JSON-RPC over HTTP or websocket.
// It is used for wallets that the host exposes at a local endpoint.
type RPCProvider struct {
	client       *rpc.Client
	url          string
	unlockMethod string
	events       *EventStream
	logger       *zap.Logger
}

// RPCConfig holds RPCProvider configuration.
type RPCConfig struct {
	URL string

	// UnlockMethod is the wallet method answering "is the wallet unlocked" with a bool.
	// Empty disables the unlock capability.
	UnlockMethod string

	// Events is an optional push channel for provider events.
	Events *EventStream

	Logger *zap.Logger
}

// NewRPCProvider dials the wallet endpoint.
func NewRPCProvider(ctx context.Context, cfg *RPCConfig) (p *RPCProvider, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.URL == "" {
		return nil, errors.New("provider URL cannot be empty")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	client, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial provider: %w", err)
	}

	p = &RPCProvider{
		client:       client,
		url:          cfg.URL,
		unlockMethod: cfg.UnlockMethod,
		events:       cfg.Events,
		logger:       cfg.Logger,
	}

	return p, nil
}

// Request performs a single wallet request. Wallet-reported failures are returned as *RPCError.
func (p *RPCProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	start := time.Now()
	defer func() {
		RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	RequestsTotal.WithLabelValues(method).Inc()

	var result json.RawMessage
	err := p.client.CallContext(ctx, &result, method, params...)
	if err != nil {
		RequestErrorsTotal.WithLabelValues(method).Inc()

		if providerErr, ok := AsRPCError(err); ok {
			p.logger.Debug("provider-request-rejected",
				zap.String("method", method),
				zap.Int("code", providerErr.Code),
				zap.String("message", providerErr.Message))
			return nil, providerErr
		}

		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	return result, nil
}

// Capabilities reports the optional surface configured for this provider.
func (p *RPCProvider) Capabilities() Capabilities {
	var caps Capabilities
	if p.events != nil {
		caps.Subscribe = p.events.Subscribe
	}
	if p.unlockMethod != "" {
		caps.IsUnlocked = p.isUnlocked
	}
	return caps
}

func (p *RPCProvider) isUnlocked(ctx context.Context) (unlocked bool, err error) {
	raw, err := p.Request(ctx, p.unlockMethod)
	if err != nil {
		return false, err
	}

	err = json.Unmarshal(raw, &unlocked)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", p.unlockMethod, err)
	}
	return unlocked, nil
}

// ClientVersion returns the wallet's self-reported client string.
func (p *RPCProvider) ClientVersion(ctx context.Context) (version string, err error) {
	raw, err := p.Request(ctx, MethodWeb3ClientVersion)
	if err != nil {
		return "", err
	}

	err = json.Unmarshal(raw, &version)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", MethodWeb3ClientVersion, err)
	}
	return version, nil
}

// URL returns the endpoint the provider was dialed with.
func (p *RPCProvider) URL() string {
	return p.url
}

// Close releases the RPC client and the event stream, if any.
func (p *RPCProvider) Close() error {
	p.client.Close()

	if p.events != nil {
		err := p.events.Close()
		if err != nil {
			return fmt.Errorf("close event stream: %w", err)
		}
	}

	p.logger.Debug("provider-closed", zap.String("url", p.url))
	return nil
}
