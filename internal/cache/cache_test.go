package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ristretto applies writes asynchronously, so tests give it a moment to
// absorb each Set before reading back.
func settle() { time.Sleep(20 * time.Millisecond) }

func TestMarketCache_RoundTrip(t *testing.T) {
	mc, err := NewMarketCache(time.Minute)
	require.NoError(t, err)

	_, ok := mc.Snapshot()
	assert.False(t, ok)

	payload := []byte(`[{"symbol":"BTC"}]`)
	mc.SetSnapshot(payload)
	settle()

	got, ok := mc.Snapshot()
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestMarketCache_Invalidate(t *testing.T) {
	mc, err := NewMarketCache(time.Minute)
	require.NoError(t, err)

	mc.SetSnapshot([]byte(`[]`))
	settle()
	mc.Invalidate()
	settle()

	_, ok := mc.Snapshot()
	assert.False(t, ok)
}

func TestMarketCache_TTLExpiry(t *testing.T) {
	mc, err := NewMarketCache(50 * time.Millisecond)
	require.NoError(t, err)

	mc.SetSnapshot([]byte(`[]`))
	settle()
	time.Sleep(100 * time.Millisecond)

	_, ok := mc.Snapshot()
	assert.False(t, ok)
}
