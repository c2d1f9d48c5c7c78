package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/onearb-wallet/internal/walletsession"
	"github.com/mselser95/onearb-wallet/pkg/networks"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

// Notifier sends wallet alerts to a Telegram chat via the Bot API.
type Notifier struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	enabled    bool
	baseURL    string // overridable for testing; defaults to Telegram API
	logger     *zap.Logger

	mu       sync.Mutex
	last     walletsession.Connection
	inflight sync.WaitGroup
}

// NewNotifier creates a Notifier. Notifications are enabled only when both
// botToken and chatID are non-empty.
func NewNotifier(botToken, chatID string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: sendTimeout},
		enabled:    botToken != "" && chatID != "",
		logger:     logger,
	}
}

// Enabled reports whether the notifier is active.
func (n *Notifier) Enabled() bool { return n.enabled }

// Send posts a message to the configured Telegram chat.
func (n *Notifier) Send(ctx context.Context, msg string) error {
	if !n.enabled {
		return nil
	}

	endpoint := n.baseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	}
	vals := url.Values{
		"chat_id":    {n.chatID},
		"text":       {msg},
		"parse_mode": {"HTML"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.URL.RawQuery = vals.Encode()

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("notify: telegram %d: %s", resp.StatusCode, body.Description)
	}
	return nil
}

// NotifyWalletConnected sends a wallet connection alert.
func (n *Notifier) NotifyWalletConnected(ctx context.Context, address, network string) error {
	msg := fmt.Sprintf("<b>Wallet Connected</b>\nAddress: <code>%s</code>\nNetwork: %s",
		html.EscapeString(address), html.EscapeString(network))
	return n.Send(ctx, msg)
}

// ConnectionHook returns a callback for walletsession.Config.OnWalletConnected. Each
// distinct (address, chain) pair is sent once per connection, in the background.
func (n *Notifier) ConnectionHook(registry *networks.Registry) func(walletsession.Connection) {
	return func(conn walletsession.Connection) {
		if !n.enabled {
			return
		}

		n.mu.Lock()
		if conn == n.last {
			n.mu.Unlock()
			return
		}
		n.last = conn
		n.mu.Unlock()

		network := fmt.Sprintf("%s (%s)", registry.Name(conn.ChainID), conn.ChainID)

		n.inflight.Add(1)
		go func() {
			defer n.inflight.Done()

			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			err := n.NotifyWalletConnected(ctx, conn.Address, network)
			if err != nil {
				n.logger.Warn("wallet-connected-notification-failed",
					zap.String("address", conn.Address),
					zap.Error(err))
				return
			}
			n.logger.Debug("wallet-connected-notification-sent", zap.String("address", conn.Address))
		}()
	}
}

// DisconnectionHook returns a callback for walletsession.Config.OnWalletDisconnected. It
// forgets the last connection so that reconnecting the same account is announced again.
func (n *Notifier) DisconnectionHook() func() {
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.last = walletsession.Connection{}
	}
}

// Wait blocks until background notifications have been sent.
func (n *Notifier) Wait() {
	n.inflight.Wait()
}
