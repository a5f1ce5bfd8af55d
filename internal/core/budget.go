package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Monthly BudgetPeriod = "monthly"
	Yearly  BudgetPeriod = "yearly"
)

// BudgetPeriod is the window a budget limit applies to.
type BudgetPeriod string

// ParseBudgetPeriod defaults an empty value to monthly.
func ParseBudgetPeriod(s string) (BudgetPeriod, error) {
	p := BudgetPeriod(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return Monthly, nil
	case Monthly, Yearly:
		return p, nil
	default:
		return "", NewValidationError("period", fmt.Sprintf("must be %q or %q, got %q", Monthly, Yearly, s))
	}
}

// Window returns the half-open date range of the period that contains asOf.
func (p BudgetPeriod) Window(asOf Date) (start, end Date) {
	if p == Yearly {
		start = NewDate(asOf.Year(), time.January, 1)
		return start, Date{Time: start.AddDate(1, 0, 0)}
	}
	pm := PeriodOf(asOf)
	return pm.Start(), pm.End()
}

// Budget caps spending in one category. Limit is in base currency, converted
// once when the budget was set.
type Budget struct {
	OwnerKey         string          `json:"owner_key"`
	Category         string          `json:"category"`
	Period           BudgetPeriod    `json:"period"`
	Limit            decimal.Decimal `json:"limit"`
	OriginalLimit    decimal.Decimal `json:"original_limit"`
	OriginalCurrency string          `json:"original_currency"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
