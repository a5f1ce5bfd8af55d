package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fxledger/internal/core"
	"fxledger/internal/log"
)

const pgUniqueViolation = "23505"

// PostgresStore keeps amounts as NUMERIC. Decimals cross the wire as text so
// no precision is lost; insertion order is the seq column.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects, pings and migrates.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunPostgresMigrations(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.InfoContext(ctx, "Database connected",
		log.FieldComponent, log.ComponentStorage)
	return &PostgresStore{db: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transactions
			(id, owner_key, occurred_on, kind, category, original_amount, original_currency, base_amount, recorded_at)
		VALUES ($1, $2, $3, $4, $5, ($6::text)::numeric, $7, ($8::text)::numeric, $9)
	`, tx.ID, tx.OwnerKey, tx.OccurredOn.Time, string(tx.Kind), tx.Category,
		tx.OriginalAmount.String(), tx.OriginalCurrency, tx.BaseAmount.String(), tx.RecordedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateID, tx.ID)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_key, occurred_on, kind, category,
		       original_amount::text, original_currency, base_amount::text, recorded_at
		FROM transactions
		WHERE owner_key = $1
		ORDER BY seq
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			tx             core.Transaction
			day, recorded  time.Time
			kind           string
			original, base string
		)
		if err := rows.Scan(&tx.ID, &tx.OwnerKey, &day, &kind, &tx.Category,
			&original, &tx.OriginalCurrency, &base, &recorded); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.OccurredOn = core.DateOf(day)
		tx.Kind = core.Kind(kind)
		tx.RecordedAt = recorded.UTC()

		var err error
		if tx.OriginalAmount, err = decimal.NewFromString(original); err != nil {
			return nil, fmt.Errorf("transaction %s original_amount: %w", tx.ID, err)
		}
		if tx.BaseAmount, err = decimal.NewFromString(base); err != nil {
			return nil, fmt.Errorf("transaction %s base_amount: %w", tx.ID, err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountTransactions(ctx context.Context, owner string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE owner_key = $1`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO budgets (owner_key, category, period, limit_amount, original_limit, original_currency, updated_at)
		VALUES ($1, $2, $3, ($4::text)::numeric, ($5::text)::numeric, $6, $7)
		ON CONFLICT (owner_key, category, period) DO UPDATE SET
			limit_amount = EXCLUDED.limit_amount,
			original_limit = EXCLUDED.original_limit,
			original_currency = EXCLUDED.original_currency,
			updated_at = EXCLUDED.updated_at
	`, b.OwnerKey, b.Category, string(b.Period), b.Limit.String(), b.OriginalLimit.String(),
		b.OriginalCurrency, b.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBudgets(ctx context.Context, owner string) ([]core.Budget, error) {
	rows, err := s.db.Query(ctx, `
		SELECT owner_key, category, period, limit_amount::text, original_limit::text, original_currency, updated_at
		FROM budgets
		WHERE owner_key = $1
		ORDER BY category, period
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		var (
			b               core.Budget
			period          string
			limit, original string
			updated         time.Time
		)
		if err := rows.Scan(&b.OwnerKey, &b.Category, &period, &limit, &original, &b.OriginalCurrency, &updated); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Period = core.BudgetPeriod(period)
		b.UpdatedAt = updated.UTC()

		var err error
		if b.Limit, err = decimal.NewFromString(limit); err != nil {
			return nil, fmt.Errorf("budget %s/%s limit: %w", b.OwnerKey, b.Category, err)
		}
		if b.OriginalLimit, err = decimal.NewFromString(original); err != nil {
			return nil, fmt.Errorf("budget %s/%s original_limit: %w", b.OwnerKey, b.Category, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}
