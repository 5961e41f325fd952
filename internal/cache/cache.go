package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

const marketKey = "market:snapshot"

// MarketCache holds the JSON-encoded market list between feed ticks so the
// hot GET /market path does not re-encode the snapshot per request. Entries
// expire on the tick interval and are dropped eagerly when a tick lands.
type MarketCache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

// NewMarketCache creates the cache. The TTL should match the feed's tick
// interval; a longer TTL would serve stale prices.
func NewMarketCache(ttl time.Duration) (*MarketCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 10,
		MaxCost:     1 << 20, // the encoded quote list is tiny
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &MarketCache{c: c, ttl: ttl}, nil
}

// Snapshot returns the cached encoding, if fresh.
func (mc *MarketCache) Snapshot() ([]byte, bool) {
	v, ok := mc.c.Get(marketKey)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// SetSnapshot stores a freshly encoded market list.
func (mc *MarketCache) SetSnapshot(b []byte) {
	mc.c.SetWithTTL(marketKey, b, int64(len(b)), mc.ttl)
}

// Invalidate drops the cached encoding; called on every feed tick.
func (mc *MarketCache) Invalidate() {
	mc.c.Del(marketKey)
}
