package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "rank:a", []byte("gold"), time.Hour))
	require.NoError(t, m.Set(ctx, "rank:b", []byte("iron"), 0))
	require.NoError(t, m.Set(ctx, "version", []byte("14.1.1"), time.Minute))

	val, ok, err := m.Get(ctx, "rank:a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gold", string(val))

	t.Run("expired entry is a miss", func(t *testing.T) {
		now = now.Add(time.Hour)
		_, ok, err := m.Get(ctx, "rank:a")
		require.NoError(t, err)
		assert.False(t, ok)

		val, ok, err := m.Get(ctx, "rank:b")
		require.NoError(t, err)
		assert.True(t, ok, "zero ttl never expires")
		assert.Equal(t, "iron", string(val))
	})

	t.Run("delete and clear", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "rank:c", []byte("x"), time.Hour))
		require.NoError(t, m.Set(ctx, "version", []byte("14.1.1"), time.Hour))
		require.NoError(t, m.Delete(ctx, "rank:b"))

		_, ok, _ := m.Get(ctx, "rank:b")
		assert.False(t, ok)

		require.NoError(t, m.Clear(ctx, "rank:"))
		_, ok, _ = m.Get(ctx, "rank:c")
		assert.False(t, ok)
		_, ok, _ = m.Get(ctx, "version")
		assert.True(t, ok, "other prefixes stay")
	})

	t.Run("stored value is copied", func(t *testing.T) {
		buf := []byte("abc")
		require.NoError(t, m.Set(ctx, "k", buf, 0))
		buf[0] = 'z'
		val, _, _ := m.Get(ctx, "k")
		assert.Equal(t, "abc", string(val))
	})
}
