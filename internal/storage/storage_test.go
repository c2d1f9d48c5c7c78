package storage

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAddress = "0x52908400098527886E0F7030069857D2E4169EE7"

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS wallet_sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := newPostgresStore(context.Background(), db, "", zap.NewNop())
	require.NoError(t, err)

	return store, mock
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockPostgres(t)
	defer store.db.Close()

	mock.ExpectExec("INSERT INTO wallet_sessions").
		WithArgs(DefaultSessionKey, true, testAddress).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Save(context.Background(), Session{Connected: true, Address: testAddress})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_Error(t *testing.T) {
	store, mock := newMockPostgres(t)
	defer store.db.Close()

	mock.ExpectExec("INSERT INTO wallet_sessions").
		WithArgs(DefaultSessionKey, true, testAddress).
		WillReturnError(sqlmock.ErrCancelled)

	err := store.Save(context.Background(), Session{Connected: true, Address: testAddress})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load(t *testing.T) {
	t.Run("stored-session", func(t *testing.T) {
		store, mock := newMockPostgres(t)
		defer store.db.Close()

		mock.ExpectQuery("SELECT connected, address FROM wallet_sessions").
			WithArgs(DefaultSessionKey).
			WillReturnRows(sqlmock.NewRows([]string{"connected", "address"}).AddRow(true, testAddress))

		s, err := store.Load(context.Background())
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, Session{Connected: true, Address: testAddress}, *s)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no-row", func(t *testing.T) {
		store, mock := newMockPostgres(t)
		defer store.db.Close()

		mock.ExpectQuery("SELECT connected, address FROM wallet_sessions").
			WithArgs(DefaultSessionKey).
			WillReturnRows(sqlmock.NewRows([]string{"connected", "address"}))

		s, err := store.Load(context.Background())
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query-error", func(t *testing.T) {
		store, mock := newMockPostgres(t)
		defer store.db.Close()

		mock.ExpectQuery("SELECT connected, address FROM wallet_sessions").
			WithArgs(DefaultSessionKey).
			WillReturnError(sqlmock.ErrCancelled)

		_, err := store.Load(context.Background())
		assert.Error(t, err)
	})
}

func TestPostgresStore_Clear(t *testing.T) {
	store, mock := newMockPostgres(t)
	defer store.db.Close()

	mock.ExpectExec("DELETE FROM wallet_sessions").
		WithArgs(DefaultSessionKey).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectClose()

	require.NoError(t, store.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStore_Validation(t *testing.T) {
	_, err := NewPostgresStore(context.Background(), nil)
	assert.Error(t, err)

	_, err = NewPostgresStore(context.Background(), &PostgresConfig{})
	assert.Error(t, err)
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := &PostgresConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "wallet",
		Password: "secret",
		Database: "onearb",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=localhost port=5432 user=wallet password=secret dbname=onearb sslmode=disable", cfg.DSN())
}

func TestSessionStore_Interface(t *testing.T) {
	var _ SessionStore = &FileStore{}
	var _ SessionStore = &MemoryStore{}
	var _ SessionStore = &PostgresStore{}
}
