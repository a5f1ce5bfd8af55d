// Package budget keeps per-category spending limits and reports how much
// of each limit the current window has used.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
	"fxledger/internal/ledger"
	"fxledger/internal/log"
	"fxledger/internal/rates"
)

// State of a budget relative to its limit.
type State string

const (
	StateOK          State = "ok"
	StateApproaching State = "approaching"
	StateOver        State = "over"
)

var (
	approachingAt = decimal.NewFromInt(80)
	overAt        = decimal.NewFromInt(100)
	hundred       = decimal.NewFromInt(100)
)

// Store is the budget half of storage.Store.
type Store interface {
	UpsertBudget(ctx context.Context, b core.Budget) error
	ListBudgets(ctx context.Context, owner string) ([]core.Budget, error)
}

// Ledger is what budgets read from the ledger service.
type Ledger interface {
	BaseCurrency() string
	Rates() rates.Provider
	ListByOwner(ctx context.Context, owner string, opts ...ledger.ListOption) ([]core.Transaction, error)
}

type Service struct {
	store  Store
	ledger Ledger
	now    func() time.Time
}

func NewService(store Store, l Ledger) *Service {
	return &Service{store: store, ledger: l, now: time.Now}
}

// SetRequest describes a budget limit as entered by the user.
type SetRequest struct {
	OwnerKey string          `json:"owner_key"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Period   string          `json:"period"`
}

// Set stores the limit converted to base currency. A foreign limit costs
// one rate lookup; if none is available the budget is not saved.
func (s *Service) Set(ctx context.Context, req SetRequest) (core.Budget, error) {
	owner := strings.TrimSpace(req.OwnerKey)
	if owner == "" {
		return core.Budget{}, core.NewValidationError("owner_key", "must not be empty")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return core.Budget{}, core.NewValidationError("category", "must not be empty")
	}
	if !req.Amount.IsPositive() {
		return core.Budget{}, core.NewValidationError("amount", "must be positive")
	}
	period, err := core.ParseBudgetPeriod(req.Period)
	if err != nil {
		return core.Budget{}, err
	}

	base := s.ledger.BaseCurrency()
	currency := req.Currency
	if strings.TrimSpace(currency) == "" {
		currency = base
	}
	currency, err = core.NormalizeCurrency(currency)
	if err != nil {
		return core.Budget{}, err
	}

	limit := req.Amount
	if currency != base {
		res := s.ledger.Rates().Rate(ctx, currency, base)
		rate, ok := res.Value()
		if !ok {
			return core.Budget{}, res.Err(currency, base)
		}
		limit = req.Amount.Mul(rate)
	}

	b := core.Budget{
		OwnerKey:         owner,
		Category:         category,
		Period:           period,
		Limit:            limit,
		OriginalLimit:    req.Amount,
		OriginalCurrency: currency,
		UpdatedAt:        s.now().UTC(),
	}
	if err := s.store.UpsertBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget set",
		log.FieldComponent, log.ComponentBudget,
		log.FieldOwner, owner,
		log.FieldCategory, category,
		"period", string(period),
		log.FieldAmount, limit.String())
	return b, nil
}

// Status is one budget measured over the window containing the as-of date.
type Status struct {
	Budget      core.Budget     `json:"budget"`
	WindowStart core.Date       `json:"window_start"`
	WindowEnd   core.Date       `json:"window_end"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	Percent     decimal.Decimal `json:"percent"`
	State       State           `json:"state"`
}

// Status evaluates every budget of owner. A zero asOf means today.
func (s *Service) Status(ctx context.Context, owner string, asOf core.Date) ([]Status, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, core.NewValidationError("owner_key", "must not be empty")
	}
	if asOf.IsZero() {
		asOf = core.DateOf(s.now().UTC())
	}

	budgets, err := s.store.ListBudgets(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]Status, 0, len(budgets))
	if len(budgets) == 0 {
		return out, nil
	}

	rows, err := s.ledger.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, b := range budgets {
		out = append(out, evaluate(b, rows, asOf))
	}
	return out, nil
}

// Alerts is Status restricted to budgets that are approaching or over.
func (s *Service) Alerts(ctx context.Context, owner string, asOf core.Date) ([]Status, error) {
	all, err := s.Status(ctx, owner, asOf)
	if err != nil {
		return nil, err
	}
	alerts := make([]Status, 0)
	for _, st := range all {
		if st.State != StateOK {
			alerts = append(alerts, st)
		}
	}
	return alerts, nil
}

func evaluate(b core.Budget, rows []core.Transaction, asOf core.Date) Status {
	start, end := b.Period.Window(asOf)

	spent := decimal.Zero
	for _, tx := range rows {
		if tx.Kind != core.KindExpense || tx.Category != b.Category {
			continue
		}
		if tx.OccurredOn.Before(start.Time) || !tx.OccurredOn.Before(end.Time) {
			continue
		}
		spent = spent.Add(tx.BaseAmount)
	}

	percent := decimal.Zero
	if b.Limit.IsPositive() {
		percent = spent.Div(b.Limit).Mul(hundred)
	}

	// Thresholds apply to the unrounded share.
	state := StateOK
	switch {
	case percent.GreaterThanOrEqual(overAt):
		state = StateOver
	case percent.GreaterThanOrEqual(approachingAt):
		state = StateApproaching
	}

	return Status{
		Budget:      b,
		WindowStart: start,
		WindowEnd:   end,
		Spent:       spent,
		Remaining:   b.Limit.Sub(spent),
		Percent:     percent.Round(2),
		State:       state,
	}
}
