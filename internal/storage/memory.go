package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/mselser95/onearb-wallet/pkg/cache"
	"go.uber.org/zap"
)

// MemoryStore keeps the session in an in-process cache. It does not survive restarts.
type MemoryStore struct {
	cache  cache.Cache
	key    string
	logger *zap.Logger
}

// NewMemoryStore wraps c. An empty key uses DefaultSessionKey.
func NewMemoryStore(c cache.Cache, key string, logger *zap.Logger) (*MemoryStore, error) {
	if c == nil {
		return nil, errors.New("cache cannot be nil")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if key == "" {
		key = DefaultSessionKey
	}

	return &MemoryStore{cache: c, key: key, logger: logger}, nil
}

func (m *MemoryStore) Load(_ context.Context) (*Session, error) {
	value, found := m.cache.Get(m.key)
	if !found {
		observe("memory", "load", nil)
		return nil, nil
	}

	s, ok := value.(Session)
	if !ok {
		err := fmt.Errorf("unexpected cached type %T", value)
		observe("memory", "load", err)
		return nil, err
	}

	observe("memory", "load", nil)
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	if !m.cache.Set(m.key, s, 0) {
		err := errors.New("session rejected by cache")
		observe("memory", "save", err)
		return err
	}
	m.cache.Wait()

	observe("memory", "save", nil)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.cache.Delete(m.key)
	observe("memory", "clear", nil)
	return nil
}

func (m *MemoryStore) Close() error {
	m.cache.Close()
	m.logger.Debug("memory-session-store-closed")
	return nil
}
