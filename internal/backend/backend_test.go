package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxledger/internal/config"
	"fxledger/internal/rates"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "/tmp/x.db"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "/tmp/x.db", cfg.SQLiteDBPath)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: PostgresBackend}.Validate())
	assert.Error(t, Config{Type: "redis"}.Validate())
	assert.Len(t, GetBackendTypes(), 3)
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"memory", Config{Type: MemoryBackend}},
		{"memory with snapshot", Config{Type: MemoryBackend, LedgerFile: filepath.Join(dir, "ledger.json")}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "fx.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(ctx, tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, res.Store)
			assert.NoError(t, res.Store.Ping(ctx))
			assert.NoError(t, res.Cleanup())
		})
	}

	_, err := f.CreateBackend(ctx, Config{Type: PostgresBackend})
	assert.Error(t, err)
}

func TestNewRatesStatic(t *testing.T) {
	r, err := NewRates(&config.Config{RateProvider: "static", StaticRates: "EUR:USD=1.10", RateTimeout: time.Second})
	require.NoError(t, err)
	require.NotNil(t, r.Crypto)

	res := r.Provider.Rate(context.Background(), "EUR", "USD")
	rate, ok := res.Value()
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.RequireFromString("1.10")))

	res = r.Provider.Rate(context.Background(), "GBP", "USD")
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Reason(), rates.ErrNoRate)
}

func TestNewRatesErrors(t *testing.T) {
	_, err := NewRates(&config.Config{RateProvider: "static", StaticRates: "bogus"})
	assert.Error(t, err)

	_, err = NewRates(&config.Config{RateProvider: "carrier-pigeon"})
	assert.Error(t, err)
}
