package walletsession

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const placeholder = "--"

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex account.
func IsValidAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// FormatAddress collapses an address to its first 6 and last 4 characters.
func FormatAddress(address string) string {
	if address == "" {
		return placeholder
	}
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// primaryAccount returns the first account if it is a valid address.
func primaryAccount(accounts []string) string {
	if len(accounts) == 0 {
		return ""
	}
	first := strings.TrimSpace(accounts[0])
	if !IsValidAddress(first) {
		return ""
	}
	return first
}
