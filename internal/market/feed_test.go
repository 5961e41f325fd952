package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFeed_Seeds(t *testing.T) {
	feed := NewFeed()
	quotes := feed.Snapshot()
	require.Len(t, quotes, 8)

	seen := make(map[string]bool)
	for _, q := range quotes {
		assert.False(t, seen[q.Symbol], "duplicate symbol %s", q.Symbol)
		seen[q.Symbol] = true
		assert.Greater(t, q.Price, float64(0))
		assert.GreaterOrEqual(t, q.Volume, float64(0))
		assert.GreaterOrEqual(t, q.MarketCap, float64(0))
	}

	btc, ok := feed.Quote("BTC")
	require.True(t, ok)
	assert.Equal(t, "Bitcoin", btc.Name)
	assert.Equal(t, float64(60000), btc.Price)
}

func TestTick_Bounds(t *testing.T) {
	feed := NewFeed()

	// Run plenty of ticks; every step must stay inside the walk's bounds.
	for i := 0; i < 200; i++ {
		before := feed.Snapshot()
		feed.Tick()
		after := feed.Snapshot()

		require.Len(t, after, len(before))
		for j := range after {
			// Symbols never change or reorder.
			assert.Equal(t, before[j].Symbol, after[j].Symbol)

			bound := before[j].Price * 0.025
			diff := after[j].Price - before[j].Price
			if diff < 0 {
				diff = -diff
			}
			assert.LessOrEqual(t, diff, bound, "tick %d moved %s beyond 2.5%%", i, after[j].Symbol)
			assert.Greater(t, after[j].Price, float64(0))

			assert.GreaterOrEqual(t, after[j].Change24h, -5.0)
			assert.LessOrEqual(t, after[j].Change24h, 5.0)

			// Volume is decorative and never recomputed.
			assert.Equal(t, before[j].Volume, after[j].Volume)
		}
	}
}

func TestTick_DoesNotTouchMarketCap(t *testing.T) {
	feed := NewFeed()
	before := feed.Snapshot()
	feed.Tick()
	after := feed.Snapshot()

	for i := range after {
		assert.Equal(t, before[i].MarketCap, after[i].MarketCap)
	}
}

func TestReconcileMarketCaps(t *testing.T) {
	feed := NewFeed()

	for i := 0; i < 10; i++ {
		feed.Tick()
	}
	feed.ReconcileMarketCaps()

	seeds := make(map[string]struct{ price, cap float64 })
	for _, q := range seedQuotes {
		seeds[q.Symbol] = struct{ price, cap float64 }{q.Price, q.MarketCap}
	}

	for _, q := range feed.Snapshot() {
		seed := seeds[q.Symbol]
		supply := seed.cap / seed.price
		assert.InDelta(t, q.Price*supply, q.MarketCap, q.MarketCap*1e-9)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	feed := NewFeed()

	snap := feed.Snapshot()
	snap[0].Price = -1

	fresh := feed.Snapshot()
	assert.Equal(t, float64(60000), fresh[0].Price)
}

func TestQuote_Unknown(t *testing.T) {
	feed := NewFeed()
	_, ok := feed.Quote("NOPE")
	assert.False(t, ok)
}
