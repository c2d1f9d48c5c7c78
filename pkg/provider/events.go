package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventStream receives wallet events over a websocket and fans them out to subscribers.
//
// Frames look like {"event":"accountsChanged","params":["0x..."]}.
type EventStream struct {
	url     string
	config  EventStreamConfig
	logger  *zap.Logger
	backoff *backoff

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.RWMutex
	conn   *websocket.Conn

	subsMu sync.Mutex
	subs   map[uint64]Handlers
	nextID uint64

	connected    atomic.Bool
	lastPongTime atomic.Int64
}

// EventStreamConfig holds EventStream configuration.
type EventStreamConfig struct {
	URL                   string
	DialTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	Logger                *zap.Logger
}

type eventFrame struct {
	Event  string          `json:"event"`
	Params json.RawMessage `json:"params"`
}

// NewEventStream creates an event stream. Call Start to connect.
func NewEventStream(cfg EventStreamConfig) (s *EventStream, err error) {
	if cfg.URL == "" {
		return nil, errors.New("event stream URL cannot be empty")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 15 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	s = &EventStream{
		url:    cfg.URL,
		config: cfg,
		logger: cfg.Logger,
		backoff: newBackoff(BackoffConfig{
			InitialDelay:      cfg.ReconnectInitialDelay,
			MaxDelay:          cfg.ReconnectMaxDelay,
			BackoffMultiplier: cfg.ReconnectBackoffMult,
			JitterPercent:     0.2,
		}, cfg.Logger),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[uint64]Handlers),
	}

	return s, nil
}

// Start dials the stream and runs the read and ping loops until Close.
func (s *EventStream) Start() error {
	s.logger.Info("event-stream-starting", zap.String("url", s.url))

	err := s.dial(s.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	s.wg.Add(2)
	go s.run()
	go s.pingLoop()

	return nil
}

// Subscribe registers h. The returned function removes the registration; calling it twice is safe.
func (s *EventStream) Subscribe(h Handlers) (unsubscribe func(), err error) {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = h
	count := len(s.subs)
	s.subsMu.Unlock()

	s.logger.Debug("event-subscription-added", zap.Int("subscriber-count", count))

	var once sync.Once
	unsubscribe = func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
	return unsubscribe, nil
}

func (s *EventStream) dial(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.config.DialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		s.lastPongTime.Store(time.Now().Unix())
		return nil
	})

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	s.connected.Store(true)
	s.lastPongTime.Store(time.Now().Unix())
	EventStreamConnected.Set(1)

	s.logger.Info("event-stream-connected")
	return nil
}

// run reads frames until the connection drops, then reconnects with backoff.
func (s *EventStream) run() {
	defer s.wg.Done()

	for {
		s.readUntilError()

		if s.ctx.Err() != nil {
			return
		}

		s.logger.Warn("event-stream-lost-initiating-reconnect")

		err := s.backoff.retry(s.ctx, s.dial)
		if err != nil {
			return
		}
	}
}

func (s *EventStream) readUntilError() {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()

	if conn == nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil {
				s.logger.Warn("event-stream-read-error", zap.Error(err))
			}
			s.connected.Store(false)
			EventStreamConnected.Set(0)
			return
		}

		s.handleMessage(message)
	}
}

func (s *EventStream) handleMessage(message []byte) {
	var frame eventFrame
	err := json.Unmarshal(message, &frame)
	if err != nil || frame.Event == "" {
		s.logger.Debug("event-stream-unparseable-frame", zap.Int("bytes", len(message)))
		return
	}

	EventsReceivedTotal.WithLabelValues(frame.Event).Inc()

	err = s.dispatch(frame)
	if err != nil {
		s.logger.Warn("event-dispatch-failed",
			zap.String("event", frame.Event),
			zap.Error(err))
	}
}

// dispatch decodes frame params and calls every subscriber outside the lock.
func (s *EventStream) dispatch(frame eventFrame) error {
	s.subsMu.Lock()
	handlers := make([]Handlers, 0, len(s.subs))
	for _, h := range s.subs {
		handlers = append(handlers, h)
	}
	s.subsMu.Unlock()

	switch frame.Event {
	case EventAccountsChanged:
		var accounts []string
		if len(frame.Params) > 0 && string(frame.Params) != "null" {
			err := json.Unmarshal(frame.Params, &accounts)
			if err != nil {
				return fmt.Errorf("decode accounts: %w", err)
			}
		}
		for _, h := range handlers {
			if h.AccountsChanged != nil {
				h.AccountsChanged(accounts)
			}
		}

	case EventChainChanged:
		var chainID string
		err := json.Unmarshal(frame.Params, &chainID)
		if err != nil {
			return fmt.Errorf("decode chain id: %w", err)
		}
		for _, h := range handlers {
			if h.ChainChanged != nil {
				h.ChainChanged(chainID)
			}
		}

	case EventDisconnect:
		providerErr := &RPCError{Code: CodeDisconnected, Message: "disconnected"}
		if len(frame.Params) > 0 && string(frame.Params) != "null" {
			_ = json.Unmarshal(frame.Params, providerErr)
		}
		for _, h := range handlers {
			if h.Disconnect != nil {
				h.Disconnect(providerErr)
			}
		}

	default:
		s.logger.Debug("event-stream-ignored-event", zap.String("event", frame.Event))
	}

	return nil
}

func (s *EventStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if !s.connected.Load() {
				continue
			}

			s.connMu.RLock()
			conn := s.conn
			s.connMu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				s.logger.Warn("event-stream-ping-error", zap.Error(err))
			}
		}
	}
}

// Connected reports whether the websocket is currently up.
func (s *EventStream) Connected() bool {
	return s.connected.Load()
}

// Close stops the stream and waits for its goroutines.
func (s *EventStream) Close() error {
	s.cancel()

	s.connMu.RLock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.connMu.RUnlock()

	s.wg.Wait()

	s.connected.Store(false)
	EventStreamConnected.Set(0)

	s.logger.Info("event-stream-closed")
	return nil
}
