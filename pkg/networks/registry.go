package networks

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const unknownNetworkName = "Unknown network"

// NativeCurrency describes the gas token of a chain.
type NativeCurrency struct {
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals int    `json:"decimals" yaml:"decimals"`
}

// Network is the descriptor sent with wallet_addEthereumChain.
type Network struct {
	ChainID           string         `json:"chainId" yaml:"chain_id"`
	ChainName         string         `json:"chainName" yaml:"chain_name"`
	RPCURLs           []string       `json:"rpcUrls" yaml:"rpc_urls"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency" yaml:"native_currency"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty" yaml:"block_explorer_urls"`
}

// Registry is the static set of chains the dashboard accepts.
type Registry struct {
	Allowlist      []string           `json:"allowlist" yaml:"allowlist"`
	DefaultChainID string             `json:"defaultChainId" yaml:"default_chain_id"`
	Networks       map[string]Network `json:"networks" yaml:"networks"`
}

// Default returns the registry shipped with the dashboard: Ethereum mainnet and Sepolia.
func Default() *Registry {
	return &Registry{
		Allowlist:      []string{"0x1", "0xaa36a7"},
		DefaultChainID: "0x1",
		Networks: map[string]Network{
			"0x1": {
				ChainID:           "0x1",
				ChainName:         "Ethereum Mainnet",
				RPCURLs:           []string{"https://cloudflare-eth.com"},
				NativeCurrency:    NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
				BlockExplorerURLs: []string{"https://etherscan.io"},
			},
			"0xaa36a7": {
				ChainID:           "0xaa36a7",
				ChainName:         "Sepolia",
				RPCURLs:           []string{"https://rpc.sepolia.org"},
				NativeCurrency:    NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
				BlockExplorerURLs: []string{"https://sepolia.etherscan.io"},
			},
		},
	}
}

// NormalizeChainID lowercases a hex chain id and strips leading zeros ("0x01" -> "0x1").
// Values that are not hex quantities are returned trimmed and lowercased.
func NormalizeChainID(chainID string) string {
	s := strings.ToLower(strings.TrimSpace(chainID))
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	n, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return strings.ToLower(strings.TrimSpace(chainID))
	}
	return hexutil.EncodeBig(n)
}

// Normalize rewrites every chain id in the registry into canonical form.
func (r *Registry) Normalize() {
	for i, id := range r.Allowlist {
		r.Allowlist[i] = NormalizeChainID(id)
	}
	r.DefaultChainID = NormalizeChainID(r.DefaultChainID)

	normalized := make(map[string]Network, len(r.Networks))
	for key, n := range r.Networks {
		id := NormalizeChainID(n.ChainID)
		if id == "" {
			id = NormalizeChainID(key)
		}
		n.ChainID = id
		normalized[id] = n
	}
	r.Networks = normalized
}

// Validate checks that the registry can drive a network switch.
func (r *Registry) Validate() error {
	if len(r.Allowlist) == 0 {
		return errors.New("allowlist cannot be empty")
	}

	seen := make(map[string]struct{}, len(r.Allowlist))
	for _, id := range r.Allowlist {
		if _, err := hexutil.DecodeBig(id); err != nil {
			return fmt.Errorf("allowlist chain id %q: %w", id, err)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate allowlist chain id %s", id)
		}
		seen[id] = struct{}{}
	}

	if r.DefaultChainID != "" && !r.IsAllowed(r.DefaultChainID) {
		return fmt.Errorf("default chain id %s is not in the allowlist", r.DefaultChainID)
	}

	for id, n := range r.Networks {
		if n.ChainName == "" {
			return fmt.Errorf("network %s: chain name is required", id)
		}
		if len(n.RPCURLs) == 0 {
			return fmt.Errorf("network %s: at least one rpc url is required", id)
		}
	}

	return nil
}

// Target returns the chain a network switch aims for: the default chain, or the first
// allowlisted chain when no default is set.
func (r *Registry) Target() string {
	if r.DefaultChainID != "" {
		return r.DefaultChainID
	}
	if len(r.Allowlist) > 0 {
		return r.Allowlist[0]
	}
	return ""
}

// IsAllowed reports whether chainID is in the allowlist. Unknown (empty) ids are not allowed.
func (r *Registry) IsAllowed(chainID string) bool {
	id := NormalizeChainID(chainID)
	if id == "" {
		return false
	}
	for _, allowed := range r.Allowlist {
		if allowed == id {
			return true
		}
	}
	return false
}

// Lookup returns the descriptor for chainID.
func (r *Registry) Lookup(chainID string) (Network, bool) {
	n, ok := r.Networks[NormalizeChainID(chainID)]
	return n, ok
}

// Name returns the human network name, or "Unknown network".
func (r *Registry) Name(chainID string) string {
	if n, ok := r.Lookup(chainID); ok && n.ChainName != "" {
		return n.ChainName
	}
	return unknownNetworkName
}

// Decimal converts a hex chain id to its decimal value. ok is false for empty or malformed ids.
func Decimal(chainID string) (value *big.Int, ok bool) {
	if chainID == "" {
		return nil, false
	}
	n, err := hexutil.DecodeBig(NormalizeChainID(chainID))
	if err != nil {
		return nil, false
	}
	return n, true
}
