package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFiat(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		currency string
		locale   string
		contains []string
	}{
		{"usd english", "1234.5", "USD", "en", []string{"$", "1,234.5"}},
		{"lower case code", "1234.5", "usd", "en", []string{"$", "1,234.5"}},
		{"rounds to two digits", "1234.5678", "USD", "en", []string{"1,234.57"}},
		{"euro german", "1234.5", "EUR", "de", []string{"€", "1.234,5"}},
		{"unknown symbol uses code", "10", "CHF", "en", []string{"CHF 10"}},
		{"empty total is zero", "", "USD", "en", []string{"$0"}},
		{"negative", "-5", "USD", "en", []string{"-$5"}},
		{"yen japanese symbol", "1234", "JPY", "ja", []string{"￥1,234"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFiat(tt.total, tt.currency, tt.locale)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestFormatFiat_Invalid(t *testing.T) {
	_, err := FormatFiat("not-a-number", "USD", "en")
	assert.Error(t, err)
}

func TestFormatFiat_CurrencyChangesOnlySymbol(t *testing.T) {
	usd, err := FormatFiat("1234.5", "USD", "en")
	require.NoError(t, err)
	gbp, err := FormatFiat("1234.5", "GBP", "en")
	require.NoError(t, err)

	assert.NotEqual(t, usd, gbp)
	assert.Equal(t, strings.TrimPrefix(usd, "$"), strings.TrimPrefix(gbp, "£"))
}

func TestFiatFormatter_Memo(t *testing.T) {
	f := NewFiatFormatter("en", 2)

	first, err := f.Format("1234.5", "USD")
	require.NoError(t, err)
	second, err := f.Format("1234.5", "USD")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.Cached())

	_, err = f.Format("1", "USD")
	require.NoError(t, err)
	_, err = f.Format("2", "USD")
	require.NoError(t, err)
	assert.Equal(t, 2, f.Cached())

	_, err = f.Format("bogus", "USD")
	assert.Error(t, err)
	assert.Equal(t, 2, f.Cached())
}

func TestFiatFormatter_MemoDoesNotChangeOutput(t *testing.T) {
	f := NewFiatFormatter("en", 0)
	for _, total := range []string{"0", "1234.5", "99.999", "-3"} {
		direct, err := FormatFiat(total, "EUR", "en")
		require.NoError(t, err)
		memoized, err := f.Format(total, "EUR")
		require.NoError(t, err)
		again, err := f.Format(total, "EUR")
		require.NoError(t, err)
		assert.Equal(t, direct, memoized)
		assert.Equal(t, direct, again)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	code, err := NormalizeCurrency(" eur ")
	require.NoError(t, err)
	assert.Equal(t, "EUR", code)

	_, err = NormalizeCurrency("XYZQ")
	assert.Error(t, err)
}

func TestFormatFiat_KeepsPrecision(t *testing.T) {
	got, err := FormatFiat("12345678901234567.89", "USD", "en")
	require.NoError(t, err)
	assert.Equal(t, "$12,345,678,901,234,567.89", got)

	got, err = FormatFiat("12345678901234567.891", "EUR", "de")
	require.NoError(t, err)
	assert.Equal(t, "12.345.678.901.234.567,89 €", got)
}

func TestFormatFiat_EmptyCurrency(t *testing.T) {
	got, err := FormatFiat("1234.5", "", "en")
	require.NoError(t, err)
	assert.Equal(t, "1,234.5", got)
}

func TestSymbol(t *testing.T) {
	en := ParseLocale("en")
	assert.Equal(t, "$", Symbol("USD", en))
	assert.Equal(t, "£", Symbol("GBP", en))
	assert.Equal(t, "￥", Symbol("JPY", ParseLocale("ja")))
	assert.Equal(t, "XYZQ", Symbol("XYZQ", en))
}

func TestNewFiatFormatter_DefaultLocale(t *testing.T) {
	assert.Equal(t, DefaultLocale, NewFiatFormatter("", 0).Locale())
	assert.Equal(t, "de", NewFiatFormatter("de", 0).Locale())
}
