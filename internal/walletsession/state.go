package walletsession

// ProviderKind is how the controller reaches the wallet.
type ProviderKind string

const (
	ProviderNone      ProviderKind = "none"
	ProviderExtension ProviderKind = "extension"
	ProviderRemoteSDK ProviderKind = "remote_sdk"
)

// State is the in-memory connection state. Absent values are empty strings.
type State struct {
	HasProvider  bool
	ProviderKind ProviderKind
	IsConnecting bool
	Address      string
	ChainID      string
	ErrorMessage string
	CopyHint     string
}

// Connected reports whether an account is authorized. It is derived from Address so the two
// can never disagree.
func (s State) Connected() bool {
	return s.Address != ""
}

// Connection is passed to the OnWalletConnected callback.
type Connection struct {
	Address string `json:"address"`
	ChainID string `json:"chainId"`
}

func initialState() State {
	return State{ProviderKind: ProviderNone}
}
