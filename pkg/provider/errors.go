package provider

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// Provider error codes (EIP-1193 and JSON-RPC).
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeDisconnected      = 4900
	CodeUnrecognizedChain = 4902
	CodeRequestPending    = -32002
)

// RPCError is an error reported by the wallet.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// AsRPCError extracts a provider error code from err. go-ethereum rpc errors are converted.
func AsRPCError(err error) (*RPCError, bool) {
	if err == nil {
		return nil, false
	}

	var providerErr *RPCError
	if errors.As(err, &providerErr) {
		return providerErr, true
	}

	var gethErr rpc.Error
	if errors.As(err, &gethErr) {
		return &RPCError{Code: gethErr.ErrorCode(), Message: gethErr.Error()}, true
	}

	return nil, false
}

// HasCode reports whether err carries the given provider error code.
func HasCode(err error, code int) bool {
	providerErr, ok := AsRPCError(err)
	return ok && providerErr.Code == code
}
