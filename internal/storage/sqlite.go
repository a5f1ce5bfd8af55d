package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
	"fxledger/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps amounts as decimal TEXT and dates as YYYY-MM-DD.
// Insertion order is rowid order.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer connection; parallel bulk rows queue here instead of
	// failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, owner_key, occurred_on, kind, category, original_amount, original_currency, base_amount, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.OwnerKey, tx.OccurredOn.String(), string(tx.Kind), tx.Category,
		tx.OriginalAmount.String(), tx.OriginalCurrency, tx.BaseAmount.String(),
		tx.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateID, tx.ID)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldTxID, tx.ID,
		log.FieldOwner, tx.OwnerKey)
	return nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_key, occurred_on, kind, category, original_amount, original_currency, base_amount, recorded_at
		FROM transactions
		WHERE owner_key = ?
		ORDER BY rowid`, owner)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			tx                    core.Transaction
			day, kind, recordedAt string
			original, base        string
		)
		if err := rows.Scan(&tx.ID, &tx.OwnerKey, &day, &kind, &tx.Category,
			&original, &tx.OriginalCurrency, &base, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.OccurredOn, err = core.ParseDate(day); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		tx.Kind = core.Kind(kind)
		if tx.OriginalAmount, err = decimal.NewFromString(original); err != nil {
			return nil, fmt.Errorf("transaction %s original_amount: %w", tx.ID, err)
		}
		if tx.BaseAmount, err = decimal.NewFromString(base); err != nil {
			return nil, fmt.Errorf("transaction %s base_amount: %w", tx.ID, err)
		}
		if tx.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("transaction %s recorded_at: %w", tx.ID, err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) CountTransactions(ctx context.Context, owner string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE owner_key = ?`, owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (owner_key, category, period, limit_amount, original_limit, original_currency, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_key, category, period) DO UPDATE SET
			limit_amount = excluded.limit_amount,
			original_limit = excluded.original_limit,
			original_currency = excluded.original_currency,
			updated_at = excluded.updated_at`,
		b.OwnerKey, b.Category, string(b.Period), b.Limit.String(), b.OriginalLimit.String(),
		b.OriginalCurrency, b.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListBudgets(ctx context.Context, owner string) ([]core.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_key, category, period, limit_amount, original_limit, original_currency, updated_at
		FROM budgets
		WHERE owner_key = ?
		ORDER BY rowid`, owner)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		var (
			b                               core.Budget
			period, limit, original, update string
		)
		if err := rows.Scan(&b.OwnerKey, &b.Category, &period, &limit, &original, &b.OriginalCurrency, &update); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Period = core.BudgetPeriod(period)
		if b.Limit, err = decimal.NewFromString(limit); err != nil {
			return nil, fmt.Errorf("budget %s/%s limit: %w", b.OwnerKey, b.Category, err)
		}
		if b.OriginalLimit, err = decimal.NewFromString(original); err != nil {
			return nil, fmt.Errorf("budget %s/%s original_limit: %w", b.OwnerKey, b.Category, err)
		}
		if b.UpdatedAt, err = time.Parse(time.RFC3339Nano, update); err != nil {
			return nil, fmt.Errorf("budget %s/%s updated_at: %w", b.OwnerKey, b.Category, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}
