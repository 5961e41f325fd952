package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is loaded from the environment. Every knob has a default so the
// server runs with no configuration at all; a .env file is honored when
// present (loaded in main).
type Config struct {
	Port       string        `env:"PORT" envDefault:"8080"`
	CORSOrigin string        `env:"CORS_ORIGIN" envDefault:"*"`
	JWTSecret  string        `env:"JWT_SECRET" envDefault:"aurex-demo-secret"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// Price feed.
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"5s"`
	MarketTTL    time.Duration `env:"MARKET_CACHE_TTL" envDefault:"5s"`

	// Simulated network latencies per operation.
	LoginLatency    time.Duration `env:"LOGIN_LATENCY" envDefault:"1s"`
	SignupLatency   time.Duration `env:"SIGNUP_LATENCY" envDefault:"1s"`
	DepositLatency  time.Duration `env:"DEPOSIT_LATENCY" envDefault:"2s"`
	WithdrawLatency time.Duration `env:"WITHDRAW_LATENCY" envDefault:"2s"`
	TradeLatency    time.Duration `env:"TRADE_LATENCY" envDefault:"1500ms"`

	// Fraction of ledger operations declined after the latency wait.
	// Zero means every operation settles as completed.
	DeclineRate float64 `env:"DECLINE_RATE" envDefault:"0"`
}

func Load() (Config, error) {
	var cfg Config
	return cfg, env.Parse(&cfg)
}
