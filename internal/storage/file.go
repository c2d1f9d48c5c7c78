package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// FileStore keeps the session as a JSON file named after the session key.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// FileConfig holds FileStore configuration.
type FileConfig struct {
	Dir    string
	Key    string
	Logger *zap.Logger
}

// NewFileStore creates the session directory if needed.
func NewFileStore(cfg *FileConfig) (*FileStore, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Dir == "" {
		return nil, errors.New("session directory cannot be empty")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	key := cfg.Key
	if key == "" {
		key = DefaultSessionKey
	}

	err := os.MkdirAll(cfg.Dir, 0o700)
	if err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	return &FileStore{
		path:   filepath.Join(cfg.Dir, key+".json"),
		logger: cfg.Logger,
	}, nil
}

// Path returns the session file location.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(_ context.Context) (s *Session, err error) {
	defer func() { observe("file", "load", err) }()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	s = &Session{}
	err = json.Unmarshal(data, s)
	if err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return s, nil
}

// Save writes to a temp file and renames it so readers never see a partial session.
func (f *FileStore) Save(_ context.Context, s Session) (err error) {
	defer func() { observe("file", "save", err) }()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp := f.path + ".tmp"
	err = os.WriteFile(tmp, data, 0o600)
	if err != nil {
		return fmt.Errorf("write session file: %w", err)
	}

	err = os.Rename(tmp, f.path)
	if err != nil {
		return fmt.Errorf("rename session file: %w", err)
	}

	f.logger.Debug("session-saved", zap.String("path", f.path))
	return nil
}

func (f *FileStore) Clear(_ context.Context) (err error) {
	defer func() { observe("file", "clear", err) }()

	err = os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}

	f.logger.Debug("session-cleared", zap.String("path", f.path))
	return nil
}

func (f *FileStore) Close() error {
	return nil
}
