package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()

	c, err := NewRistrettoCache(DefaultRistrettoConfig(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return c
}

func TestNewRistrettoCache_Validation(t *testing.T) {
	_, err := NewRistrettoCache(nil)
	assert.Error(t, err)

	_, err = NewRistrettoCache(&RistrettoConfig{NumCounters: 10, MaxCost: 1, BufferItems: 64})
	assert.Error(t, err)

	_, err = NewRistrettoCache(&RistrettoConfig{Logger: zap.NewNop()})
	assert.Error(t, err, "ristretto rejects zero counters")
}

func TestRistrettoCache(t *testing.T) {
	c := newTestCache(t)

	t.Run("set-and-get", func(t *testing.T) {
		require.True(t, c.Set("session", "0xabc", 0))
		c.Wait()

		got, found := c.Get("session")
		require.True(t, found)
		assert.Equal(t, "0xabc", got)
	})

	t.Run("get-missing-key", func(t *testing.T) {
		_, found := c.Get("nonexistent")
		assert.False(t, found)
	})

	t.Run("delete", func(t *testing.T) {
		c.Set("delete-me", 1, time.Hour)
		c.Wait()

		c.Delete("delete-me")

		_, found := c.Get("delete-me")
		assert.False(t, found)
	})

	t.Run("ttl-expiration", func(t *testing.T) {
		c.Set("short-lived", "v", 200*time.Millisecond)
		c.Wait()

		_, found := c.Get("short-lived")
		require.True(t, found)

		require.Eventually(t, func() bool {
			_, found := c.Get("short-lived")
			return !found
		}, 3*time.Second, 50*time.Millisecond)
	})

	t.Run("clear", func(t *testing.T) {
		c.Set("k1", "v1", 0)
		c.Wait()

		c.Clear()

		_, found := c.Get("k1")
		assert.False(t, found)
	})
}
