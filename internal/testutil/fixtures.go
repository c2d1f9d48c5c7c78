package testutil

import (
	"github.com/mselser95/onearb-wallet/pkg/networks"
)

// Test accounts. AddressA is mixed case on purpose.
const (
	AddressA = "0xAbC0000000000000000000000000000000000123"
	AddressB = "0x52908400098527886e0f7030069857d2e4169ee7"
)

// Chain ids used across tests.
const (
	ChainMainnet = "0x1"
	ChainSepolia = "0xaa36a7"
	ChainPolygon = "0x89"
)

// TestRegistry returns the built-in registry (mainnet default, Sepolia allowed).
func TestRegistry() *networks.Registry {
	return networks.Default()
}
