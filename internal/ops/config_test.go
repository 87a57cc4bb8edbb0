package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Order.CommissionRate.Equal(decimal.RequireFromString("0.001")))
	assert.Equal(t, int64(1), cfg.Order.MinQuantity)
	assert.Equal(t, int64(10000), cfg.Order.MaxQuantity)
	assert.Equal(t, "USD", cfg.Wallet.Currency)
	assert.True(t, cfg.Wallet.StartingBalances["BASIC"].Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, 4, cfg.Relay.Partitions)
	assert.Equal(t, 256, cfg.Relay.Capacity)
	assert.Empty(t, cfg.Postgres.Host)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"order": {"commissionRate": "0.002", "maxQuantity": 500},
		"wallet": {"currency": "EUR", "startingBalances": {"basic": "2500.00"}},
		"relay": {"partitions": 8, "capacity": 1024},
		"market": {"seeds": [{"symbol": "AAPL", "name": "Apple Inc.", "price": "189.50"}]},
		"postgres": {"host": "db.local", "port": 5432, "database": "settlement"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Order.CommissionRate.Equal(decimal.RequireFromString("0.002")))
	assert.Equal(t, int64(1), cfg.Order.MinQuantity, "unset fields keep their defaults")
	assert.Equal(t, int64(500), cfg.Order.MaxQuantity)
	assert.Equal(t, "EUR", cfg.Wallet.Currency)
	assert.True(t, cfg.Wallet.StartingBalances["BASIC"].Equal(decimal.RequireFromString("2500.00")),
		"role keys are upper-cased")
	assert.Equal(t, 8, cfg.Relay.Partitions)
	assert.Equal(t, 1024, cfg.Relay.Capacity)
	require.Len(t, cfg.Seeds, 1)
	assert.Equal(t, "AAPL", cfg.Seeds[0].Symbol)
	assert.True(t, cfg.Seeds[0].Price.Equal(decimal.RequireFromString("189.50")))
	assert.Equal(t, "db.local", cfg.Postgres.Host)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		desc    string
		content string
	}{
		{"malformed json", `{`},
		{"bad commission rate", `{"order": {"commissionRate": "abc"}}`},
		{"negative commission rate", `{"order": {"commissionRate": "-0.001"}}`},
		{"min above max", `{"order": {"minQuantity": 100, "maxQuantity": 10}}`},
		{"bad starting balance", `{"wallet": {"startingBalances": {"BASIC": "lots"}}}`},
		{"seed without symbol", `{"market": {"seeds": [{"price": "1.00"}]}}`},
		{"seed with bad price", `{"market": {"seeds": [{"symbol": "AAPL", "price": "cheap"}]}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
