package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(kind Kind, category string, base float64, currency string, d Date) Transaction {
	return Transaction{
		OwnerKey:         "u1",
		OccurredOn:       d,
		Kind:             kind,
		Category:         category,
		OriginalAmount:   decimal.NewFromFloat(base),
		OriginalCurrency: currency,
		BaseAmount:       decimal.NewFromFloat(base),
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, Period{Year: 2024, Month: time.March})

	assert.True(t, s.TotalIncome.IsZero())
	assert.True(t, s.TotalExpenses.IsZero())
	assert.True(t, s.Net.IsZero())
	assert.Empty(t, s.IncomeByCategory)
	assert.Empty(t, s.ExpensesByCategory)
	assert.Empty(t, s.CurrenciesUsed)
	assert.Equal(t, 0, s.TransactionCount)
}

func TestSummarizeHalfOpenInterval(t *testing.T) {
	march := Period{Year: 2024, Month: time.March}
	rows := []Transaction{
		tx(KindExpense, "rent", 10, "USD", NewDate(2024, time.March, 1)),
		tx(KindExpense, "rent", 20, "USD", NewDate(2024, time.April, 1)),
		tx(KindExpense, "rent", 40, "USD", NewDate(2024, time.February, 29)),
		tx(KindExpense, "rent", 80, "USD", NewDate(2024, time.March, 31)),
	}

	s := Summarize(rows, march)
	assert.Equal(t, 2, s.TransactionCount)
	assert.True(t, s.TotalExpenses.Equal(decimal.NewFromInt(90)), s.TotalExpenses.String())

	april := Summarize(rows, Period{Year: 2024, Month: time.April})
	assert.Equal(t, 1, april.TransactionCount)
}

func TestSummarizeDecemberRollsIntoNextYear(t *testing.T) {
	dec := Period{Year: 2023, Month: time.December}
	assert.True(t, dec.End().Equal(NewDate(2024, time.January, 1).Time))

	rows := []Transaction{
		tx(KindIncome, "salary", 100, "USD", NewDate(2023, time.December, 31)),
		tx(KindIncome, "salary", 100, "USD", NewDate(2024, time.January, 1)),
	}
	assert.Equal(t, 1, Summarize(rows, dec).TransactionCount)
}

func TestSummarizeTotalsAndOrdering(t *testing.T) {
	d := NewDate(2024, time.May, 10)
	rows := []Transaction{
		tx(KindExpense, "food", 30, "EUR", d),
		tx(KindExpense, "transport", 80, "USD", d),
		tx(KindIncome, "salary", 1000, "USD", d),
		tx(KindIncome, "bonus", 50, "GBP", d),
		tx(KindExpense, "books", 30, "USD", d),
	}

	s := Summarize(rows, PeriodOf(d))
	require.Equal(t, 5, s.TransactionCount)
	assert.True(t, s.TotalIncome.Equal(decimal.NewFromInt(1050)))
	assert.True(t, s.TotalExpenses.Equal(decimal.NewFromInt(140)))
	assert.True(t, s.Net.Equal(decimal.NewFromInt(910)))

	require.Len(t, s.ExpensesByCategory, 3)
	assert.Equal(t, "transport", s.ExpensesByCategory[0].Name)
	// food and books tie at 30; food was seen first.
	assert.Equal(t, "food", s.ExpensesByCategory[1].Name)
	assert.Equal(t, "books", s.ExpensesByCategory[2].Name)

	require.Len(t, s.IncomeByCategory, 2)
	assert.Equal(t, "salary", s.IncomeByCategory[0].Name)

	assert.ElementsMatch(t, []string{"EUR", "USD", "GBP"}, s.CurrenciesUsed)
}

func TestSummarizeCategoriesSplitByKind(t *testing.T) {
	d := NewDate(2024, time.June, 2)
	rows := []Transaction{
		tx(KindExpense, "gifts", 25, "USD", d),
		tx(KindIncome, "gifts", 40, "USD", d),
	}
	s := Summarize(rows, PeriodOf(d))
	require.Len(t, s.ExpensesByCategory, 1)
	require.Len(t, s.IncomeByCategory, 1)
	assert.True(t, s.ExpensesByCategory[0].Amount.Equal(decimal.NewFromInt(25)))
	assert.True(t, s.IncomeByCategory[0].Amount.Equal(decimal.NewFromInt(40)))
}

func TestNewPeriod(t *testing.T) {
	p, err := NewPeriod(3, 2024)
	require.NoError(t, err)
	assert.Equal(t, "2024-03", p.String())

	_, err = NewPeriod(13, 2024)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = NewPeriod(0, 2024)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCategoryTotal(t *testing.T) {
	rows := []Transaction{
		tx(KindExpense, "food", 12, "USD", NewDate(2024, time.January, 3)),
		tx(KindExpense, "food", 8, "USD", NewDate(2024, time.July, 3)),
		tx(KindIncome, "food", 100, "USD", NewDate(2024, time.July, 3)),
	}
	assert.True(t, CategoryTotal(rows, KindExpense, "food").Equal(decimal.NewFromInt(20)))
	assert.True(t, CategoryTotal(rows, KindExpense, "rent").IsZero())
}

func TestBudgetPeriodWindow(t *testing.T) {
	asOf := NewDate(2024, time.August, 20)

	start, end := Monthly.Window(asOf)
	assert.Equal(t, "2024-08-01", start.String())
	assert.Equal(t, "2024-09-01", end.String())

	start, end = Yearly.Window(asOf)
	assert.Equal(t, "2024-01-01", start.String())
	assert.Equal(t, "2025-01-01", end.String())

	p, err := ParseBudgetPeriod("")
	require.NoError(t, err)
	assert.Equal(t, Monthly, p)
	_, err = ParseBudgetPeriod("weekly")
	assert.ErrorIs(t, err, ErrValidation)
}
