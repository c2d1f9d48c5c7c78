package walletsession

import (
	"github.com/mselser95/onearb-wallet/pkg/provider"
)

// User-facing messages.
const (
	MsgNotInstalled         = "Wallet is not installed."
	MsgUserRejected         = "Request rejected. Please approve the wallet prompt to continue."
	MsgRequestPending       = "A request is already pending in your wallet. Open it to continue."
	MsgUnrecognizedChain    = "This network is not added to your wallet. Approve the add network request."
	MsgLocked               = "Wallet is locked. Unlock it to continue."
	MsgProviderDisconnected = "Wallet disconnected. Please reconnect."
	MsgGeneric              = "Something went wrong. Check your wallet and try again."

	HintCopied     = "Copied"
	HintCopyFailed = "Copy failed"

	remoteConnectHint = "This opens the wallet app to approve the connection."
)

// ErrorMessage translates a provider or bridge failure into a message for the user.
// Transport failures carry no useful text for the user and map to MsgGeneric.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	providerErr, ok := provider.AsRPCError(err)
	if !ok {
		return MsgGeneric
	}

	switch providerErr.Code {
	case provider.CodeUserRejected:
		return MsgUserRejected
	case provider.CodeRequestPending:
		return MsgRequestPending
	case provider.CodeUnrecognizedChain:
		return MsgUnrecognizedChain
	}

	if providerErr.Message != "" {
		return providerErr.Message
	}
	return MsgGeneric
}

// errorKind labels failures for metrics.
func errorKind(err error) string {
	providerErr, ok := provider.AsRPCError(err)
	if !ok {
		return "transport"
	}

	switch providerErr.Code {
	case provider.CodeUserRejected:
		return "user_rejected"
	case provider.CodeRequestPending:
		return "request_pending"
	case provider.CodeUnrecognizedChain:
		return "unrecognized_chain"
	}
	return "provider"
}
