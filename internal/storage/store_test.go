package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxledger/internal/core"
)

func newTx(owner, category, amount string, day int) core.Transaction {
	a := decimal.RequireFromString(amount)
	return core.Transaction{
		ID:               uuid.NewString(),
		OwnerKey:         owner,
		OccurredOn:       core.NewDate(2024, time.March, day),
		Kind:             core.KindExpense,
		Category:         category,
		OriginalAmount:   a,
		OriginalCurrency: "EUR",
		BaseAmount:       a.Mul(decimal.RequireFromString("1.08")),
		RecordedAt:       time.Date(2024, time.March, day, 12, 30, 0, 123000, time.UTC),
	}
}

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("append and list in insertion order", func(t *testing.T) {
		s := open(t)
		owner := "owner-" + uuid.NewString()
		rows := []core.Transaction{
			newTx(owner, "food", "50", 15),
			newTx(owner, "rent", "900.5", 1),
			newTx(owner, "food", "0.1234567890123", 20),
		}
		for _, tx := range rows {
			require.NoError(t, s.AppendTransaction(ctx, tx))
		}
		require.NoError(t, s.AppendTransaction(ctx, newTx("other-"+owner, "food", "1", 2)))

		got, err := s.ListTransactions(ctx, owner)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i, tx := range rows {
			assert.Equal(t, tx.ID, got[i].ID)
			assert.Equal(t, tx.OccurredOn.String(), got[i].OccurredOn.String())
			assert.Equal(t, tx.Kind, got[i].Kind)
			assert.True(t, tx.OriginalAmount.Equal(got[i].OriginalAmount), "original %s vs %s", tx.OriginalAmount, got[i].OriginalAmount)
			assert.True(t, tx.BaseAmount.Equal(got[i].BaseAmount), "base %s vs %s", tx.BaseAmount, got[i].BaseAmount)
			assert.True(t, tx.RecordedAt.Equal(got[i].RecordedAt))
		}

		n, err := s.CountTransactions(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		s := open(t)
		owner := "owner-" + uuid.NewString()
		tx := newTx(owner, "food", "10", 3)
		require.NoError(t, s.AppendTransaction(ctx, tx))
		assert.ErrorIs(t, s.AppendTransaction(ctx, tx), ErrDuplicateID)

		n, err := s.CountTransactions(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("unknown owner is empty", func(t *testing.T) {
		s := open(t)
		got, err := s.ListTransactions(ctx, "nobody-"+uuid.NewString())
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("budget upsert", func(t *testing.T) {
		s := open(t)
		owner := "owner-" + uuid.NewString()
		b := core.Budget{
			OwnerKey:         owner,
			Category:         "food",
			Period:           core.Monthly,
			Limit:            decimal.RequireFromString("216"),
			OriginalLimit:    decimal.RequireFromString("200"),
			OriginalCurrency: "EUR",
			UpdatedAt:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, s.UpsertBudget(ctx, b))

		b.Limit = decimal.RequireFromString("300")
		b.OriginalLimit = decimal.RequireFromString("300")
		b.OriginalCurrency = "USD"
		require.NoError(t, s.UpsertBudget(ctx, b))

		yearly := b
		yearly.Period = core.Yearly
		require.NoError(t, s.UpsertBudget(ctx, yearly))

		got, err := s.ListBudgets(ctx, owner)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, core.Monthly, got[0].Period)
		assert.True(t, got[0].Limit.Equal(decimal.NewFromInt(300)))
		assert.Equal(t, "USD", got[0].OriginalCurrency)
		assert.Equal(t, core.Yearly, got[1].Period)
	})
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStoreSnapshotContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, err := OpenMemoryStore(filepath.Join(t.TempDir(), "ledger.json"))
		require.NoError(t, err)
		return s
	})
}

func TestSQLiteStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "fxledger.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestPostgresStoreContract(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewPostgresStore(context.Background(), dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestMemoryStoreReloadsSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")

	s, err := OpenMemoryStore(path)
	require.NoError(t, err)
	first := newTx("u1", "food", "50", 15)
	second := newTx("u1", "books", "12.30", 16)
	require.NoError(t, s.AppendTransaction(ctx, first))
	require.NoError(t, s.AppendTransaction(ctx, second))
	require.NoError(t, s.UpsertBudget(ctx, core.Budget{OwnerKey: "u1", Category: "food", Period: core.Monthly,
		Limit: decimal.NewFromInt(100), OriginalLimit: decimal.NewFromInt(100), OriginalCurrency: "USD"}))

	reopened, err := OpenMemoryStore(path)
	require.NoError(t, err)
	got, err := reopened.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.True(t, got[1].OriginalAmount.Equal(decimal.RequireFromString("12.3")))

	budgets, err := reopened.ListBudgets(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, budgets, 1)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestMemoryStoreCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := OpenMemoryStore(path)
	assert.Error(t, err)
}

func TestMemoryStoreRollsBackOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	// The snapshot directory is a regular file, so every write fails.
	s := NewMemoryStore()
	s.path = filepath.Join(blocker, "ledger.json")

	assert.Error(t, s.AppendTransaction(ctx, newTx("u1", "food", "5", 1)))
	n, err := s.CountTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Error(t, s.UpsertBudget(ctx, core.Budget{OwnerKey: "u1", Category: "food", Period: core.Monthly}))
	budgets, err := s.ListBudgets(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, budgets)
}
