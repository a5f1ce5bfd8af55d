package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const dateLayout = "2006-01-02"

type (
	// Kind is the direction of a transaction. The set is closed.
	Kind string

	// Date is a calendar date at UTC midnight. Time of day is never significant.
	Date struct {
		time.Time
	}

	// Transaction is an immutable ledger row. BaseAmount is fixed at write time
	// and is never re-priced when rates move.
	Transaction struct {
		ID               string          `json:"id"`
		OwnerKey         string          `json:"owner_key"`
		OccurredOn       Date            `json:"occurred_on"`
		Kind             Kind            `json:"kind"`
		Category         string          `json:"category"`
		OriginalAmount   decimal.Decimal `json:"original_amount"`
		OriginalCurrency string          `json:"original_currency"`
		BaseAmount       decimal.Decimal `json:"base_amount"`
		RecordedAt       time.Time       `json:"recorded_at"`
	}

	// Entry is a transaction as submitted by a caller, before pricing.
	Entry struct {
		OwnerKey   string
		Amount     decimal.Decimal
		Currency   string
		Category   string
		Kind       Kind
		OccurredOn Date
	}
)

// ParseKind accepts "income" or "expense" in any letter case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", NewValidationError("kind", fmt.Sprintf("must be %q or %q, got %q", KindIncome, KindExpense, s))
	}
	return k, nil
}

func (k Kind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

func (k Kind) String() string {
	return string(k)
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, NewValidationError("date", fmt.Sprintf("expected YYYY-MM-DD, got %q", s))
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Normalize validates the entry and returns its canonical form: kind lowercased,
// category and owner trimmed, currency uppercased and defaulted to base.
// It performs no I/O.
func (e Entry) Normalize(baseCurrency string) (Entry, error) {
	out := e
	out.OwnerKey = strings.TrimSpace(e.OwnerKey)
	if out.OwnerKey == "" {
		return Entry{}, NewValidationError("owner_key", "must not be empty")
	}

	kind, err := ParseKind(string(e.Kind))
	if err != nil {
		return Entry{}, err
	}
	out.Kind = kind

	out.Category = strings.TrimSpace(e.Category)
	if out.Category == "" {
		return Entry{}, NewValidationError("category", "must not be empty")
	}
	if len(out.Category) > 100 {
		return Entry{}, NewValidationError("category", "too long (max 100 characters)")
	}

	if !e.Amount.IsPositive() {
		return Entry{}, NewValidationError("amount", fmt.Sprintf("must be a positive magnitude, got %s", e.Amount))
	}

	currency := e.Currency
	if strings.TrimSpace(currency) == "" {
		currency = baseCurrency
	}
	out.Currency, err = NormalizeCurrency(currency)
	if err != nil {
		return Entry{}, err
	}
	return out, nil
}
