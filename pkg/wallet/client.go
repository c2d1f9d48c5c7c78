package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mselser95/onearb-wallet/pkg/networks"
	"go.uber.org/zap"
)

// Client reads on-chain account data through the public RPC endpoints of the registry.
type Client struct {
	registry *networks.Registry
	timeout  time.Duration
	logger   *zap.Logger
}

// Balance is the native currency balance of an account on one network.
type Balance struct {
	Address   string    `json:"address"`
	ChainID   string    `json:"chainId"`
	Wei       *big.Int  `json:"wei"`
	Symbol    string    `json:"symbol"`
	Decimals  int       `json:"decimals"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Float returns the balance in whole currency units.
func (b Balance) Float() float64 {
	if b.Wei == nil {
		return 0
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(b.Decimals)), nil))
	value, _ := new(big.Float).Quo(new(big.Float).SetInt(b.Wei), scale).Float64()
	return value
}

// String formats the balance as "1.2345 ETH".
func (b Balance) String() string {
	return fmt.Sprintf("%.4f %s", b.Float(), b.Symbol)
}

// NewClient creates a new balance client.
func NewClient(registry *networks.Registry, logger *zap.Logger) (c *Client, err error) {
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	client := &Client{
		registry: registry,
		timeout:  15 * time.Second,
		logger:   logger,
	}

	return client, nil
}

// NativeBalance fetches the native currency balance of address on chainID. The chain must
// be described in the registry with at least one RPC URL.
func (c *Client) NativeBalance(ctx context.Context, chainID, address string) (balance *Balance, err error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}

	network, ok := c.registry.Lookup(chainID)
	if !ok {
		return nil, fmt.Errorf("network %s not in registry", chainID)
	}

	if len(network.RPCURLs) == 0 {
		return nil, fmt.Errorf("network %s has no RPC URL", chainID)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, network.RPCURLs[0])
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	wei, err := client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("get %s balance: %w", network.NativeCurrency.Symbol, err)
	}

	c.logger.Debug("native-balance-fetched",
		zap.String("address", address),
		zap.String("chain-id", network.ChainID),
		zap.String("wei", wei.String()))

	balance = &Balance{
		Address:   address,
		ChainID:   network.ChainID,
		Wei:       wei,
		Symbol:    network.NativeCurrency.Symbol,
		Decimals:  network.NativeCurrency.Decimals,
		FetchedAt: time.Now(),
	}

	return balance, nil
}
