package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// WalletServer is a JSON-RPC endpoint answering like a host-exposed wallet.
type WalletServer struct {
	*httptest.Server

	mu      sync.Mutex
	results map[string]any
	errs    map[string]rpcErrorBody
	calls   map[string]int
}

type rpcRequestBody struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewWalletServer starts a wallet endpoint on mainnet with no authorized accounts.
// It is closed when the test ends.
func NewWalletServer(t *testing.T) *WalletServer {
	t.Helper()

	w := &WalletServer{
		results: map[string]any{
			"eth_chainId":        ChainMainnet,
			"eth_accounts":       []string{},
			"web3_clientVersion": "MetaMask/v11.16.0",
		},
		errs:  make(map[string]rpcErrorBody),
		calls: make(map[string]int),
	}
	w.Server = httptest.NewServer(http.HandlerFunc(w.serve))
	t.Cleanup(w.Close)
	return w
}

// SetResult makes method answer result.
func (w *WalletServer) SetResult(method string, result any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.errs, method)
	w.results[method] = result
}

// SetError makes method fail with a wallet error.
func (w *WalletServer) SetError(method string, code int, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errs[method] = rpcErrorBody{Code: code, Message: message}
}

// Calls returns how many times method was requested.
func (w *WalletServer) Calls(method string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[method]
}

func (w *WalletServer) serve(rw http.ResponseWriter, r *http.Request) {
	var req rpcRequestBody
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	w.mu.Lock()
	w.calls[req.Method]++
	result, hasResult := w.results[req.Method]
	rpcErr, hasErr := w.errs[req.Method]
	w.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch {
	case hasErr:
		resp["error"] = rpcErr
	case hasResult:
		resp["result"] = result
	default:
		resp["error"] = rpcErrorBody{Code: -32601, Message: "the method " + req.Method + " does not exist"}
	}

	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(resp)
}
