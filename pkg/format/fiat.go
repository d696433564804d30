package format

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"safehdr/pkg/metrics"
)

const (
	DefaultMaxFractionDigits = 2
	DefaultMemoSize          = 256
	DefaultLocale            = "en"
)

// Languages that write the currency symbol after the amount.
var symbolAfter = map[string]bool{
	"de": true, "fr": true, "es": true, "it": true, "pl": true, "cs": true,
	"sv": true, "fi": true, "nb": true, "da": true, "ru": true, "uk": true,
}

// ParseLocale returns the language tag for locale, falling back to English.
func ParseLocale(locale string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return language.English
	}
	return tag
}

// Symbol returns the CLDR symbol of an ISO currency code in the given
// language, or the code itself when it has none.
func Symbol(code string, tag language.Tag) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code
	}
	return message.NewPrinter(tag).Sprint(currency.Symbol(unit))
}

// NormalizeCurrency upper-cases code and validates it against ISO 4217.
func NormalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("unknown currency %q: %w", code, err)
	}
	return unit.String(), nil
}

// FormatFiat renders total (a decimal string) in the given currency and locale
// with at most DefaultMaxFractionDigits fractional digits. An empty total is
// rendered as zero and an empty currency renders the bare number.
func FormatFiat(total, code, locale string) (string, error) {
	amount := decimal.Zero
	if s := strings.TrimSpace(total); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return "", fmt.Errorf("parse fiat total %q: %w", total, err)
		}
		amount = d
	}

	if norm, err := NormalizeCurrency(code); err == nil {
		code = norm
	} else {
		code = strings.ToUpper(strings.TrimSpace(code))
	}

	rounded := amount.Round(DefaultMaxFractionDigits)
	tag := ParseLocale(locale)
	p := message.NewPrinter(tag)
	num := formatNumber(p, rounded.Abs())

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	if code == "" {
		return sign + num, nil
	}

	// x/text has no currency pattern support, so placement is by language.
	sym := Symbol(code, tag)
	base, _ := tag.Base()
	switch {
	case symbolAfter[base.String()]:
		return sign + num + " " + sym, nil
	case sym == code:
		return sign + sym + " " + num, nil
	default:
		return sign + sym + num, nil
	}
}

// maxExactDigits is how many significant digits survive a float64 round trip.
const maxExactDigits = 15

// formatNumber prints a non-negative amount with the locale's separators.
// x/text only formats Go numeric types, so amounts too long for a float64
// are grouped from their decimal string instead.
func formatNumber(p *message.Printer, d decimal.Decimal) string {
	if d.NumDigits() <= maxExactDigits {
		f, _ := d.Float64()
		return p.Sprint(number.Decimal(f, number.MaxFractionDigits(DefaultMaxFractionDigits)))
	}

	group, point := separators(p)
	intPart, frac, _ := strings.Cut(d.String(), ".")

	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteString(group)
		}
		sb.WriteRune(r)
	}
	if frac != "" {
		sb.WriteString(point)
		sb.WriteString(frac)
	}
	return sb.String()
}

// separators reads the grouping and decimal separators off a sample number
// printed in the printer's locale. Locales that do not group in threes or
// use non-Latin digits fall back to "," and ".".
func separators(p *message.Printer) (group, point string) {
	sample := p.Sprint(number.Decimal(1234567.5, number.MaxFractionDigits(1)))
	rest, ok := strings.CutPrefix(sample, "1")
	if !ok {
		return ",", "."
	}
	rest, ok = strings.CutSuffix(rest, "5")
	if !ok {
		return ",", "."
	}
	i := strings.Index(rest, "234")
	j := strings.LastIndex(rest, "567")
	if i <= 0 || j < i+3 {
		return ",", "."
	}
	if rest[:i] != rest[i+3:j] {
		return ",", "."
	}
	return rest[:i], rest[j+3:]
}

type memoKey struct {
	currency string
	total    string
}

// FiatFormatter formats fiat totals for one locale and remembers recent results.
// It is safe for concurrent use.
type FiatFormatter struct {
	locale string
	memo   *lru.Cache[memoKey, string]
}

func NewFiatFormatter(locale string, memoSize int) *FiatFormatter {
	if locale == "" {
		locale = DefaultLocale
	}
	if memoSize <= 0 {
		memoSize = DefaultMemoSize
	}
	memo, err := lru.New[memoKey, string](memoSize)
	if err != nil {
		memo = nil
	}
	return &FiatFormatter{locale: locale, memo: memo}
}

// Locale is the locale every result of f is formatted in.
func (f *FiatFormatter) Locale() string {
	return f.locale
}

// Format is FormatFiat with memoization on (currency, total). Failed
// formats are not remembered.
func (f *FiatFormatter) Format(total, code string) (string, error) {
	key := memoKey{currency: code, total: total}
	if f.memo != nil {
		if s, ok := f.memo.Get(key); ok {
			metrics.FiatMemoLookups.WithLabelValues("hit").Inc()
			return s, nil
		}
	}
	metrics.FiatMemoLookups.WithLabelValues("miss").Inc()

	s, err := FormatFiat(total, code, f.locale)
	if err != nil {
		return "", err
	}
	if f.memo != nil {
		f.memo.Add(key, s)
	}
	return s, nil
}

// Cached reports how many results are memoized.
func (f *FiatFormatter) Cached() int {
	if f.memo == nil {
		return 0
	}
	return f.memo.Len()
}
