// Package ledger is the write and read path of the transaction ledger.
// Amounts are normalized to the base currency once, when a row is written.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fxledger/internal/core"
	"fxledger/internal/log"
	"fxledger/internal/metrics"
	"fxledger/internal/rates"
	"fxledger/internal/storage"
)

// Publisher announces rows after they are persisted.
type Publisher interface {
	PublishTransactionRecorded(ctx context.Context, tx core.Transaction) error
}

type Option func(*Service)

// WithPublisher sets the event sink. Publish failures never fail a write.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithClock overrides the source of the default occurred_on date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithConcurrency bounds how many bulk rows are priced and written at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

type Service struct {
	store       storage.Store
	rates       rates.Provider
	base        string
	pub         Publisher
	now         func() time.Time
	newID       func() string
	concurrency int
}

func NewService(store storage.Store, provider rates.Provider, baseCurrency string, opts ...Option) (*Service, error) {
	if baseCurrency == "" {
		baseCurrency = core.DefaultBaseCurrency
	}
	base, err := core.NormalizeCurrency(baseCurrency)
	if err != nil {
		return nil, fmt.Errorf("base currency: %w", err)
	}

	s := &Service{
		store:       store,
		rates:       provider,
		base:        base,
		now:         time.Now,
		newID:       uuid.NewString,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) BaseCurrency() string { return s.base }

// Rates exposes the provider the service prices with.
func (s *Service) Rates() rates.Provider { return s.rates }

// Record validates, prices and appends one row. A foreign currency costs
// exactly one rate lookup; if none is available nothing is stored.
func (s *Service) Record(ctx context.Context, e core.Entry) (core.Transaction, error) {
	entry, err := e.Normalize(s.base)
	if err != nil {
		metrics.LedgerWrites.WithLabelValues(log.OpRecord, metrics.OutcomeRejected).Inc()
		return core.Transaction{}, err
	}

	baseAmount, err := s.toBase(ctx, entry.Amount, entry.Currency)
	if err != nil {
		metrics.LedgerWrites.WithLabelValues(log.OpRecord, metrics.OutcomeUnavailable).Inc()
		return core.Transaction{}, err
	}

	tx, err := s.persist(ctx, entry, baseAmount)
	if err != nil {
		metrics.LedgerWrites.WithLabelValues(log.OpRecord, metrics.OutcomeError).Inc()
		return core.Transaction{}, err
	}
	metrics.LedgerWrites.WithLabelValues(log.OpRecord, metrics.OutcomeOK).Inc()
	return tx, nil
}

func (s *Service) toBase(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	if currency == s.base {
		return amount, nil
	}
	res := s.rates.Rate(ctx, currency, s.base)
	rate, ok := res.Value()
	if !ok {
		return decimal.Zero, res.Err(currency, s.base)
	}
	return amount.Mul(rate), nil
}

func (s *Service) persist(ctx context.Context, e core.Entry, baseAmount decimal.Decimal) (core.Transaction, error) {
	now := s.now()
	occurred := e.OccurredOn
	if occurred.IsZero() {
		occurred = core.DateOf(now)
	}

	tx := core.Transaction{
		ID:               s.newID(),
		OwnerKey:         e.OwnerKey,
		OccurredOn:       occurred,
		Kind:             e.Kind,
		Category:         e.Category,
		OriginalAmount:   e.Amount,
		OriginalCurrency: e.Currency,
		BaseAmount:       baseAmount,
		RecordedAt:       now.UTC(),
	}
	if err := s.store.AppendTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		log.NewFields().
			WithComponent(log.ComponentLedger).
			WithOperation(log.OpRecord).
			WithTransaction(tx.ID, tx.OwnerKey, string(tx.Kind), tx.Category).
			ToSlice()...)

	if s.pub != nil {
		// The row is committed; a caller that goes away must not drop its event.
		if err := s.pub.PublishTransactionRecorded(context.WithoutCancel(ctx), tx); err != nil {
			slog.WarnContext(ctx, "Failed to publish transaction event",
				log.FieldComponent, log.ComponentLedger,
				log.FieldOperation, log.OpPublish,
				log.FieldTxID, tx.ID,
				log.FieldError, err)
		}
	}
	return tx, nil
}

// RowFailure reports a skipped bulk row. Index is the row's position in
// the input; Reason is a *core.ImportRowError.
type RowFailure struct {
	Index  int
	Row    RawRow
	Reason error
}

// BulkResult lists written ids and failures, both in input order.
type BulkResult struct {
	Written int
	IDs     []string
	Failed  []RowFailure
}

// BulkRecord writes every row it can. A row that fails validation or
// pricing is reported and skipped; the others still commit.
func (s *Service) BulkRecord(ctx context.Context, owner string, rows []RawRow) (BulkResult, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return BulkResult{}, core.NewValidationError("owner_key", "must not be empty")
	}

	type outcome struct {
		id  string
		err error
	}
	outcomes := make([]outcome, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, row := range rows {
		g.Go(func() error {
			tx, err := s.recordRow(gctx, owner, row)
			outcomes[i] = outcome{id: tx.ID, err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := BulkResult{IDs: make([]string, 0, len(rows)), Failed: make([]RowFailure, 0)}
	for i, o := range outcomes {
		if o.err != nil {
			result.Failed = append(result.Failed, RowFailure{
				Index:  i,
				Row:    rows[i],
				Reason: &core.ImportRowError{Err: o.err},
			})
			continue
		}
		result.IDs = append(result.IDs, o.id)
	}
	result.Written = len(result.IDs)

	metrics.LedgerWrites.WithLabelValues(log.OpBulk, metrics.OutcomeOK).Add(float64(result.Written))
	metrics.LedgerWrites.WithLabelValues(log.OpBulk, metrics.OutcomeRejected).Add(float64(len(result.Failed)))
	slog.InfoContext(ctx, "Bulk record finished",
		log.FieldComponent, log.ComponentLedger,
		log.FieldOperation, log.OpBulk,
		log.FieldOwner, owner,
		log.FieldRows, len(rows),
		log.FieldWritten, result.Written,
		log.FieldFailed, len(result.Failed))
	return result, nil
}

func (s *Service) recordRow(ctx context.Context, owner string, row RawRow) (core.Transaction, error) {
	entry, baseAmount, err := s.resolve(ctx, owner, row)
	if err != nil {
		return core.Transaction{}, err
	}
	return s.persist(ctx, entry, baseAmount)
}

// resolve turns either row shape into a normalized entry and its base amount.
func (s *Service) resolve(ctx context.Context, owner string, row RawRow) (core.Entry, decimal.Decimal, error) {
	switch r := row.(type) {
	case LegacyRow:
		entry, err := core.Entry{
			OwnerKey:   owner,
			Amount:     r.Amount,
			Currency:   s.base,
			Category:   r.Category,
			Kind:       core.Kind(r.Kind),
			OccurredOn: r.Date,
		}.Normalize(s.base)
		if err != nil {
			return core.Entry{}, decimal.Zero, err
		}
		return entry, entry.Amount, nil

	case NormalizedRow:
		entry, err := core.Entry{
			OwnerKey:   owner,
			Amount:     r.OriginalAmount,
			Currency:   r.OriginalCurrency,
			Category:   r.Category,
			Kind:       core.Kind(r.Kind),
			OccurredOn: r.Date,
		}.Normalize(s.base)
		if err != nil {
			return core.Entry{}, decimal.Zero, err
		}

		if entry.Currency == s.base {
			if r.BaseAmount.Valid && !r.BaseAmount.Decimal.Equal(entry.Amount) {
				return core.Entry{}, decimal.Zero, core.NewValidationError("base_amount",
					"must equal original_amount when original_currency is the base currency")
			}
			return entry, entry.Amount, nil
		}
		if r.BaseAmount.Valid {
			if !r.BaseAmount.Decimal.IsPositive() {
				return core.Entry{}, decimal.Zero, core.NewValidationError("base_amount", "must be positive")
			}
			// ISO codes are known; anything else must be priced by the
			// provider before its stored base amount is accepted.
			if !core.IsISOCurrency(entry.Currency) {
				if _, err := s.toBase(ctx, entry.Amount, entry.Currency); err != nil {
					return core.Entry{}, decimal.Zero, err
				}
			}
			return entry, r.BaseAmount.Decimal, nil
		}
		baseAmount, err := s.toBase(ctx, entry.Amount, entry.Currency)
		if err != nil {
			return core.Entry{}, decimal.Zero, err
		}
		return entry, baseAmount, nil

	default:
		return core.Entry{}, decimal.Zero, core.NewValidationError("row", fmt.Sprintf("unrecognized row shape %T", row))
	}
}

type listOptions struct {
	sortByDate bool
}

type ListOption func(*listOptions)

// SortByDate orders rows by occurred_on; rows on the same date keep
// insertion order.
func SortByDate() ListOption {
	return func(o *listOptions) { o.sortByDate = true }
}

// ListByOwner returns every row of owner, in insertion order unless a sort
// is requested. The whole result is materialized; there is no paging. An
// unknown owner yields an empty slice.
func (s *Service) ListByOwner(ctx context.Context, owner string, opts ...ListOption) ([]core.Transaction, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, core.NewValidationError("owner_key", "must not be empty")
	}
	var o listOptions
	for _, opt := range opts {
		opt(&o)
	}

	rows, err := s.store.ListTransactions(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if o.sortByDate {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].OccurredOn.Before(rows[j].OccurredOn.Time)
		})
	}
	return rows, nil
}

// MonthlySummary reduces owner's rows for one calendar month.
func (s *Service) MonthlySummary(ctx context.Context, owner string, period core.Period) (core.MonthlySummary, error) {
	rows, err := s.ListByOwner(ctx, owner)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	return core.Summarize(rows, period), nil
}

// SpendingByCategory is owner's all-time expense total in category, in
// base currency.
func (s *Service) SpendingByCategory(ctx context.Context, owner, category string) (decimal.Decimal, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return decimal.Zero, core.NewValidationError("category", "must not be empty")
	}
	rows, err := s.ListByOwner(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return core.CategoryTotal(rows, core.KindExpense, category), nil
}
