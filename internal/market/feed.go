package market

import (
	"math/rand"
	"sync"
	"time"

	"github.com/aurex/exchange/internal/models"
)

// Feed holds the simulated quote table and perturbs it on every tick.
// All state is in memory and seeded with fixed values at startup.
type Feed struct {
	mu     sync.RWMutex
	quotes []models.Quote
	supply map[string]float64 // circulating supply derived from seed cap/price
	rng    *rand.Rand
}

// seedQuotes are the demo values every instance starts from.
var seedQuotes = []models.Quote{
	{Symbol: "BTC", Name: "Bitcoin", Price: 60000, Change24h: 2.5, Volume: 35000000000, MarketCap: 1200000000000},
	{Symbol: "ETH", Name: "Ethereum", Price: 4000, Change24h: -1.2, Volume: 15000000000, MarketCap: 480000000000},
	{Symbol: "BNB", Name: "Binance Coin", Price: 600, Change24h: 0.8, Volume: 2000000000, MarketCap: 90000000000},
	{Symbol: "ADA", Name: "Cardano", Price: 2.5, Change24h: 3.1, Volume: 1000000000, MarketCap: 80000000000},
	{Symbol: "SOL", Name: "Solana", Price: 150, Change24h: -0.5, Volume: 800000000, MarketCap: 45000000000},
	{Symbol: "XRP", Name: "XRP", Price: 1.1, Change24h: 1.7, Volume: 1200000000, MarketCap: 55000000000},
	{Symbol: "DOT", Name: "Polkadot", Price: 30, Change24h: -2.0, Volume: 600000000, MarketCap: 30000000000},
	{Symbol: "DOGE", Name: "Dogecoin", Price: 0.25, Change24h: 5.0, Volume: 500000000, MarketCap: 33000000000},
}

// NewFeed creates a feed seeded with the fixed demo quotes.
func NewFeed() *Feed {
	quotes := make([]models.Quote, len(seedQuotes))
	copy(quotes, seedQuotes)

	supply := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		supply[q.Symbol] = q.MarketCap / q.Price
	}

	return &Feed{
		quotes: quotes,
		supply: supply,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Tick applies one bounded random walk step to every quote: price moves by
// at most ±2.5% and the 24h change figure is overwritten with a value in
// [-5, 5). Volume and market cap are not touched.
func (f *Feed) Tick() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.quotes {
		f.quotes[i].Price *= 1 + (f.rng.Float64()-0.5)*0.05
		f.quotes[i].Change24h = (f.rng.Float64() - 0.5) * 10
	}
}

// Snapshot returns a copy of the current quote table.
func (f *Feed) Snapshot() []models.Quote {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.Quote, len(f.quotes))
	copy(out, f.quotes)
	return out
}

// Quote returns the current quote for a symbol.
func (f *Feed) Quote(symbol string) (models.Quote, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, q := range f.quotes {
		if q.Symbol == symbol {
			return q, true
		}
	}
	return models.Quote{}, false
}

// ReconcileMarketCaps recomputes each market cap as price x circulating
// supply. The tick itself never does this, so caps drift from the moving
// price until the reconcile job runs.
func (f *Feed) ReconcileMarketCaps() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.quotes {
		f.quotes[i].MarketCap = f.quotes[i].Price * f.supply[f.quotes[i].Symbol]
	}
}
