package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Period is a calendar month used as the aggregation window.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod validates month (1-12) and returns the period.
func NewPeriod(month, year int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, NewValidationError("month", fmt.Sprintf("must be between 1 and 12, got %d", month))
	}
	if year < 1 {
		return Period{}, NewValidationError("year", fmt.Sprintf("must be positive, got %d", year))
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// PeriodOf returns the month containing d.
func PeriodOf(d Date) Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

// Start is the first day of the month, inclusive.
func (p Period) Start() Date {
	return NewDate(p.Year, p.Month, 1)
}

// End is the first day of the next month, exclusive.
func (p Period) End() Date {
	return Date{Time: p.Start().AddDate(0, 1, 0)}
}

// Contains applies the half-open interval [Start, End).
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start().Time) && d.Before(p.End().Time)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthlySummary is a compact summary for a specific year+month, in base currency.
type MonthlySummary struct {
	Period             Period           `json:"-"`
	Year               int              `json:"year"`
	Month              int              `json:"month"`
	TotalIncome        decimal.Decimal  `json:"total_income"`
	TotalExpenses      decimal.Decimal  `json:"total_expenses"`
	Net                decimal.Decimal  `json:"net"`
	IncomeByCategory   []CategoryAmount `json:"income_by_category"`
	ExpensesByCategory []CategoryAmount `json:"expenses_by_category"`
	// CurrenciesUsed is a set; its order carries no meaning.
	CurrenciesUsed   []string `json:"currencies_used"`
	TransactionCount int      `json:"transaction_count"`
}

// Summarize reduces rows to the summary of period. It is pure: the caller
// supplies rows already scoped to one owner.
func Summarize(rows []Transaction, period Period) MonthlySummary {
	s := MonthlySummary{
		Period:             period,
		Year:               period.Year,
		Month:              int(period.Month),
		TotalIncome:        decimal.Zero,
		TotalExpenses:      decimal.Zero,
		IncomeByCategory:   []CategoryAmount{},
		ExpensesByCategory: []CategoryAmount{},
		CurrenciesUsed:     []string{},
	}

	income := newCategoryTally()
	expenses := newCategoryTally()
	seenCurrency := make(map[string]struct{})

	for _, t := range rows {
		if !period.Contains(t.OccurredOn) {
			continue
		}
		s.TransactionCount++

		switch t.Kind {
		case KindIncome:
			s.TotalIncome = s.TotalIncome.Add(t.BaseAmount)
			income.add(t.Category, t.BaseAmount)
		case KindExpense:
			s.TotalExpenses = s.TotalExpenses.Add(t.BaseAmount)
			expenses.add(t.Category, t.BaseAmount)
		}

		if _, ok := seenCurrency[t.OriginalCurrency]; !ok {
			seenCurrency[t.OriginalCurrency] = struct{}{}
			s.CurrenciesUsed = append(s.CurrenciesUsed, t.OriginalCurrency)
		}
	}

	s.Net = s.TotalIncome.Sub(s.TotalExpenses)
	s.IncomeByCategory = income.sorted()
	s.ExpensesByCategory = expenses.sorted()
	return s
}

// CategoryTotal sums base amounts of kind in category across all rows.
func CategoryTotal(rows []Transaction, kind Kind, category string) decimal.Decimal {
	total := decimal.Zero
	for _, t := range rows {
		if t.Kind == kind && t.Category == category {
			total = total.Add(t.BaseAmount)
		}
	}
	return total
}

// categoryTally accumulates per-category sums and remembers first-seen order.
type categoryTally struct {
	order []string
	sums  map[string]decimal.Decimal
}

func newCategoryTally() *categoryTally {
	return &categoryTally{sums: make(map[string]decimal.Decimal)}
}

func (c *categoryTally) add(category string, amount decimal.Decimal) {
	sum, ok := c.sums[category]
	if !ok {
		c.order = append(c.order, category)
		sum = decimal.Zero
	}
	c.sums[category] = sum.Add(amount)
}

// sorted returns descending by amount; ties keep first-seen order.
func (c *categoryTally) sorted() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, CategoryAmount{Name: name, Amount: c.sums[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}
