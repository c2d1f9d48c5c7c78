package walletsession

import (
	"fmt"

	"github.com/mselser95/onearb-wallet/pkg/networks"
)

// Status texts, by priority.
const (
	StatusNoProvider   = "no provider"
	StatusConnecting   = "connecting"
	StatusWrongNetwork = "wrong network"
	StatusConnected    = "connected"
	StatusNotConnected = "not connected"
)

// View is the presentation projection of State.
type View struct {
	HasProvider  bool         `json:"hasProvider"`
	ProviderKind ProviderKind `json:"providerKind"`
	IsConnecting bool         `json:"isConnecting"`
	Connected    bool         `json:"connected"`

	Address      string `json:"address,omitempty"`
	HasAddress   bool   `json:"hasAddress"`
	AddressLabel string `json:"addressLabel"`

	ChainID        string `json:"chainId,omitempty"`
	ChainIDDecimal string `json:"chainIdDecimal,omitempty"`
	ChainLabel     string `json:"chainLabel"`
	NetworkName    string `json:"networkName"`
	IsWrongNetwork bool   `json:"isWrongNetwork"`

	StatusText      string `json:"statusText"`
	ConnectionLabel string `json:"connectionLabel"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
	ConnectHint     string `json:"connectHint,omitempty"`
	CopyHint        string `json:"copyHint,omitempty"`

	CanConnect        bool `json:"canConnect"`
	ShowDisconnect    bool `json:"showDisconnect"`
	ShowSwitchNetwork bool `json:"showSwitchNetwork"`
}

// Derive computes the view of s against registry. It has no side effects.
func Derive(s State, registry *networks.Registry) View {
	connected := s.Connected()
	wrongNetwork := s.ChainID != "" && !registry.IsAllowed(s.ChainID)

	v := View{
		HasProvider:       s.HasProvider,
		ProviderKind:      s.ProviderKind,
		IsConnecting:      s.IsConnecting,
		Connected:         connected,
		Address:           s.Address,
		HasAddress:        connected,
		AddressLabel:      FormatAddress(s.Address),
		ChainID:           s.ChainID,
		ChainLabel:        placeholder,
		NetworkName:       placeholder,
		IsWrongNetwork:    wrongNetwork,
		ErrorMessage:      s.ErrorMessage,
		CopyHint:          s.CopyHint,
		CanConnect:        s.HasProvider && !s.IsConnecting && !connected,
		ShowDisconnect:    connected,
		ShowSwitchNetwork: s.HasProvider && wrongNetwork,
	}

	if s.ChainID != "" {
		decimal := placeholder
		if n, ok := networks.Decimal(s.ChainID); ok {
			decimal = n.String()
			v.ChainIDDecimal = decimal
		}
		v.ChainLabel = fmt.Sprintf("%s (%s)", s.ChainID, decimal)
		v.NetworkName = registry.Name(s.ChainID)
	}

	switch {
	case !s.HasProvider:
		v.StatusText = StatusNoProvider
	case s.IsConnecting:
		v.StatusText = StatusConnecting
	case connected && wrongNetwork:
		v.StatusText = StatusWrongNetwork
	case connected:
		v.StatusText = StatusConnected
	default:
		v.StatusText = StatusNotConnected
	}

	switch {
	case wrongNetwork:
		v.ConnectionLabel = "Wrong network"
	case connected:
		v.ConnectionLabel = "Connected"
	default:
		v.ConnectionLabel = "Not connected"
	}

	if s.ProviderKind == ProviderRemoteSDK {
		v.ConnectHint = remoteConnectHint
	}

	if v.ErrorMessage == "" && wrongNetwork {
		if target := registry.Target(); target != "" {
			v.ErrorMessage = fmt.Sprintf("Unsupported network. Switch to %s (%s).", registry.Name(target), target)
		}
	}

	return v
}
