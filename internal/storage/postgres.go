package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const createSessionsTable = `
	CREATE TABLE IF NOT EXISTS wallet_sessions (
		session_key TEXT PRIMARY KEY,
		connected   BOOLEAN NOT NULL,
		address     TEXT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// PostgresStore keeps the session as one row of wallet_sessions.
type PostgresStore struct {
	db     *sql.DB
	key    string
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host       string
	Port       string
	User       string
	Password   string
	Database   string
	SSLMode    string
	SessionKey string
	Logger     *zap.Logger
}

// DSN renders the lib/pq connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// NewPostgresStore connects and makes sure the sessions table exists.
func NewPostgresStore(ctx context.Context, cfg *PostgresConfig) (*PostgresStore, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store, err := newPostgresStore(ctx, db, cfg.SessionKey, cfg.Logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cfg.Logger.Info("postgres-session-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return store, nil
}

func newPostgresStore(ctx context.Context, db *sql.DB, key string, logger *zap.Logger) (*PostgresStore, error) {
	if key == "" {
		key = DefaultSessionKey
	}

	_, err := db.ExecContext(ctx, createSessionsTable)
	if err != nil {
		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	return &PostgresStore{db: db, key: key, logger: logger}, nil
}

func (p *PostgresStore) Load(ctx context.Context) (s *Session, err error) {
	defer func() { observe("postgres", "load", err) }()

	s = &Session{}
	err = p.db.QueryRowContext(ctx,
		`SELECT connected, address FROM wallet_sessions WHERE session_key = $1`,
		p.key,
	).Scan(&s.Connected, &s.Address)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}

	return s, nil
}

func (p *PostgresStore) Save(ctx context.Context, s Session) (err error) {
	defer func() { observe("postgres", "save", err) }()

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO wallet_sessions (session_key, connected, address, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (session_key) DO UPDATE
		SET connected = EXCLUDED.connected, address = EXCLUDED.address, updated_at = NOW()
	`, p.key, s.Connected, s.Address)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	p.logger.Debug("session-saved", zap.String("session-key", p.key))
	return nil
}

func (p *PostgresStore) Clear(ctx context.Context) (err error) {
	defer func() { observe("postgres", "clear", err) }()

	_, err = p.db.ExecContext(ctx, `DELETE FROM wallet_sessions WHERE session_key = $1`, p.key)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	p.logger.Debug("session-cleared", zap.String("session-key", p.key))
	return nil
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-session-store")
	return p.db.Close()
}
