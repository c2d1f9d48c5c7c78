package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/onearb-wallet/internal/walletsession"
	"github.com/mselser95/onearb-wallet/pkg/networks"
	walletbalance "github.com/mselser95/onearb-wallet/pkg/wallet"
	"go.uber.org/zap"
)

// DefaultActionTimeout bounds asynchronous wallet actions started over HTTP.
const DefaultActionTimeout = 2 * time.Minute

// WalletController is the wallet session surface served over HTTP.
type WalletController interface {
	Connect(ctx context.Context)
	Disconnect(ctx context.Context)
	SwitchNetwork(ctx context.Context)
	CopyAddress(ctx context.Context)
	View() walletsession.View
	Registry() *networks.Registry
}

// BalanceSource reports the latest balance of the connected account.
type BalanceSource interface {
	Latest() (walletbalance.Balance, bool)
}

// WalletHandler handles HTTP requests for the wallet session.
type WalletHandler struct {
	controller    WalletController
	balances      BalanceSource
	logger        *zap.Logger
	actionTimeout time.Duration
	inflight      sync.WaitGroup
}

// NewWalletHandler creates a new wallet handler.
func NewWalletHandler(controller WalletController, actionTimeout time.Duration, logger *zap.Logger) *WalletHandler {
	if actionTimeout <= 0 {
		actionTimeout = DefaultActionTimeout
	}
	return &WalletHandler{
		controller:    controller,
		logger:        logger,
		actionTimeout: actionTimeout,
	}
}

// NetworkEntry is one allowlisted network in the registry response.
type NetworkEntry struct {
	ChainID        string `json:"chainId"`
	ChainIDDecimal string `json:"chainIdDecimal"`
	Name           string `json:"name"`
	Target         bool   `json:"target"`
}

// NetworksResponse represents the HTTP response for the network registry.
type NetworksResponse struct {
	Target   string         `json:"target"`
	Networks []NetworkEntry `json:"networks"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleView handles GET /api/wallet.
func (h *WalletHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.View())
}

// HandleConnect handles POST /api/wallet/connect. The wallet prompt may take
// arbitrarily long, so the action runs in the background and 202 is returned.
func (h *WalletHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	h.runAsync(r, "connect", h.controller.Connect)
	h.writeJSON(w, http.StatusAccepted, h.controller.View())
}

// HandleSwitchNetwork handles POST /api/wallet/switch-network.
func (h *WalletHandler) HandleSwitchNetwork(w http.ResponseWriter, r *http.Request) {
	h.runAsync(r, "switch-network", h.controller.SwitchNetwork)
	h.writeJSON(w, http.StatusAccepted, h.controller.View())
}

// HandleDisconnect handles POST /api/wallet/disconnect.
func (h *WalletHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	h.controller.Disconnect(r.Context())
	h.writeJSON(w, http.StatusOK, h.controller.View())
}

// HandleCopyAddress handles POST /api/wallet/copy-address.
func (h *WalletHandler) HandleCopyAddress(w http.ResponseWriter, r *http.Request) {
	h.controller.CopyAddress(r.Context())
	h.writeJSON(w, http.StatusOK, h.controller.View())
}

// BalanceResponse represents the HTTP response for the connected account's balance.
type BalanceResponse struct {
	Address   string  `json:"address"`
	ChainID   string  `json:"chainId"`
	Wei       string  `json:"wei"`
	Amount    float64 `json:"amount"`
	Symbol    string  `json:"symbol"`
	Formatted string  `json:"formatted"`
	FetchedAt string  `json:"fetchedAt"`
}

// HandleBalance handles GET /api/wallet/balance.
func (h *WalletHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	if h.balances == nil {
		h.writeError(w, "balance tracking disabled", http.StatusNotFound)
		return
	}

	balance, ok := h.balances.Latest()
	if !ok {
		h.writeError(w, "no balance available", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, BalanceResponse{
		Address:   balance.Address,
		ChainID:   balance.ChainID,
		Wei:       balance.Wei.String(),
		Amount:    balance.Float(),
		Symbol:    balance.Symbol,
		Formatted: balance.String(),
		FetchedAt: balance.FetchedAt.UTC().Format(time.RFC3339),
	})
}

// HandleNetworks handles GET /api/networks.
func (h *WalletHandler) HandleNetworks(w http.ResponseWriter, r *http.Request) {
	registry := h.controller.Registry()
	if registry == nil {
		h.writeError(w, "network registry unavailable", http.StatusServiceUnavailable)
		return
	}

	target := registry.Target()
	resp := NetworksResponse{
		Target:   target,
		Networks: make([]NetworkEntry, 0, len(registry.Allowlist)),
	}
	for _, chainID := range registry.Allowlist {
		entry := NetworkEntry{
			ChainID: chainID,
			Name:    registry.Name(chainID),
			Target:  chainID == target,
		}
		if dec, ok := networks.Decimal(chainID); ok {
			entry.ChainIDDecimal = dec.String()
		}
		resp.Networks = append(resp.Networks, entry)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Wait blocks until background actions have finished or ctx is done.
func (h *WalletHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WalletHandler) runAsync(r *http.Request, action string, fn func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.actionTimeout)

	h.logger.Debug("wallet-action-started", zap.String("action", action))

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer cancel()
		fn(ctx)
		h.logger.Debug("wallet-action-finished", zap.String("action", action))
	}()
}

func (h *WalletHandler) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *WalletHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
