package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"income", KindIncome, true},
		{"EXPENSE", KindExpense, true},
		{" Income ", KindIncome, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			require.Error(t, err, tc.in)
			assert.True(t, errors.Is(err, ErrValidation))
		}
	}
}

func TestEntryNormalize(t *testing.T) {
	good := Entry{
		OwnerKey: " u1 ",
		Amount:   decimal.NewFromInt(50),
		Currency: "eur",
		Category: " food ",
		Kind:     "Expense",
	}
	got, err := good.Normalize("USD")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerKey)
	assert.Equal(t, "EUR", got.Currency)
	assert.Equal(t, "food", got.Category)
	assert.Equal(t, KindExpense, got.Kind)

	t.Run("currency defaults to base", func(t *testing.T) {
		e := good
		e.Currency = ""
		got, err := e.Normalize("USD")
		require.NoError(t, err)
		assert.Equal(t, "USD", got.Currency)
	})

	bads := []struct {
		name  string
		mut   func(*Entry)
		field string
	}{
		{"empty owner", func(e *Entry) { e.OwnerKey = "  " }, "owner_key"},
		{"bad kind", func(e *Entry) { e.Kind = "gift" }, "kind"},
		{"empty category", func(e *Entry) { e.Category = "" }, "category"},
		{"zero amount", func(e *Entry) { e.Amount = decimal.Zero }, "amount"},
		{"negative amount", func(e *Entry) { e.Amount = decimal.NewFromInt(-3) }, "amount"},
		{"bad currency", func(e *Entry) { e.Currency = "€" }, "currency"},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			e := good
			tc.mut(&e)
			_, err := e.Normalize("USD")
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, time.March, 15)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-15"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(d.Time))

	require.Error(t, json.Unmarshal([]byte(`"15/03/2024"`), &back))
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := &ImportRowError{Line: 4, Err: &ConversionError{From: "EUR", To: "USD", Reason: cause}}

	assert.True(t, errors.Is(err, ErrImportRow))
	assert.True(t, errors.Is(err, ErrConversionUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "line 4")
}
