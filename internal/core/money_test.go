package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{" 2.50 ", "2.5", true},
		{"0.0001", "0.0001", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.out, got.String(), tc.in)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}

func TestAmountFromFloat(t *testing.T) {
	d, err := AmountFromFloat(12.5)
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())

	_, err = AmountFromFloat(math.NaN())
	assert.ErrorIs(t, err, ErrValidation)
	_, err = AmountFromFloat(math.Inf(1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNormalizeCurrency(t *testing.T) {
	got, err := NormalizeCurrency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, "USD", got)

	got, err = NormalizeCurrency("usdt")
	require.NoError(t, err)
	assert.Equal(t, "USDT", got)

	for _, bad := range []string{"", "US", "US-D", "TOOLONGCODE"} {
		_, err := NormalizeCurrency(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestIsISOCurrency(t *testing.T) {
	assert.True(t, IsISOCurrency("EUR"))
	assert.True(t, IsISOCurrency("JPY"))
	assert.False(t, IsISOCurrency("BTC"))
	assert.False(t, IsISOCurrency("USDT"))
}
