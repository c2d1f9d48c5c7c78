package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Methods of the wallet request API consumed by the dashboard.
const (
	MethodChainID           = "eth_chainId"
	MethodAccounts          = "eth_accounts"
	MethodRequestAccounts   = "eth_requestAccounts"
	MethodSwitchChain       = "wallet_switchEthereumChain"
	MethodAddChain          = "wallet_addEthereumChain"
	MethodWeb3ClientVersion = "web3_clientVersion"
)

// Events pushed by the wallet.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
	EventDisconnect      = "disconnect"
)

// ErrUnsupported is returned when a provider lacks an optional capability.
var ErrUnsupported = errors.New("capability not supported by provider")

// Provider is the request half of an EIP-1193 wallet provider.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// Handlers receives provider-pushed events. Nil members are skipped.
type Handlers struct {
	AccountsChanged func(accounts []string)
	ChainChanged    func(chainID string)
	Disconnect      func(err *RPCError)
}

// EventSource is implemented by providers that push events.
type EventSource interface {
	Subscribe(h Handlers) (unsubscribe func(), err error)
}

// UnlockQuerier is implemented by providers that can report whether the wallet is unlocked.
type UnlockQuerier interface {
	IsUnlocked(ctx context.Context) (bool, error)
}

// Capabilities is the optional surface of a provider, probed once. Nil fields are absent.
type Capabilities struct {
	Subscribe  func(h Handlers) (unsubscribe func(), err error)
	IsUnlocked func(ctx context.Context) (bool, error)
}

// CapabilityReporter lets a provider decide its own capability set at runtime.
type CapabilityReporter interface {
	Capabilities() Capabilities
}

// Probe inspects p once and returns its optional capabilities.
func Probe(p Provider) Capabilities {
	if p == nil {
		return Capabilities{}
	}

	if reporter, ok := p.(CapabilityReporter); ok {
		return reporter.Capabilities()
	}

	var caps Capabilities
	if es, ok := p.(EventSource); ok {
		caps.Subscribe = es.Subscribe
	}
	if uq, ok := p.(UnlockQuerier); ok {
		caps.IsUnlocked = uq.IsUnlocked
	}
	return caps
}

// ChainID asks the provider for the current hex chain id.
func ChainID(ctx context.Context, p Provider) (chainID string, err error) {
	raw, err := p.Request(ctx, MethodChainID)
	if err != nil {
		return "", err
	}

	err = json.Unmarshal(raw, &chainID)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", MethodChainID, err)
	}
	return chainID, nil
}

// Accounts returns the already-authorized accounts without prompting the user.
func Accounts(ctx context.Context, p Provider) ([]string, error) {
	return requestAccountList(ctx, p, MethodAccounts)
}

// RequestAccounts asks the user to authorize accounts. It may block until the user acts.
func RequestAccounts(ctx context.Context, p Provider) ([]string, error) {
	return requestAccountList(ctx, p, MethodRequestAccounts)
}

func requestAccountList(ctx context.Context, p Provider, method string) (accounts []string, err error) {
	raw, err := p.Request(ctx, method)
	if err != nil {
		return nil, err
	}

	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	err = json.Unmarshal(raw, &accounts)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	return accounts, nil
}

type switchChainParams struct {
	ChainID string `json:"chainId"`
}

// SwitchChain asks the wallet to switch to chainID.
func SwitchChain(ctx context.Context, p Provider, chainID string) error {
	_, err := p.Request(ctx, MethodSwitchChain, switchChainParams{ChainID: chainID})
	return err
}

// AddChain asks the wallet to add a chain. descriptor is marshalled as the single param.
func AddChain(ctx context.Context, p Provider, descriptor any) error {
	_, err := p.Request(ctx, MethodAddChain, descriptor)
	return err
}
