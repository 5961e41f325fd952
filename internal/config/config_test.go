package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Equal(t, 5*time.Second, cfg.TickInterval)
	assert.Equal(t, time.Second, cfg.LoginLatency)
	assert.Equal(t, time.Second, cfg.SignupLatency)
	assert.Equal(t, 2*time.Second, cfg.DepositLatency)
	assert.Equal(t, 2*time.Second, cfg.WithdrawLatency)
	assert.Equal(t, 1500*time.Millisecond, cfg.TradeLatency)
	assert.Equal(t, float64(0), cfg.DeclineRate)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("DECLINE_RATE", "0.25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 0.25, cfg.DeclineRate)
}
