// Package format renders amounts for display using a business's decimal
// settings. Output is for humans only and is never parsed back.
package format

import (
	"strings"

	"github.com/shopspring/decimal"

	"hitunghpp/backend/internal/domain"
)

type Options struct {
	OmitSymbol bool
	// DecimalPlaces overrides settings.DecimalPlaces when set.
	DecimalPlaces *int
}

func FormatPrice(amount decimal.Decimal, settings domain.DecimalSettings, opts Options) string {
	places := settings.DecimalPlaces
	if opts.DecimalPlaces != nil {
		places = *opts.DecimalPlaces
	}
	if places < 0 {
		places = 0
	}

	rounded := Round(amount, places, settings.RoundingMethod)
	text := rounded.Abs().StringFixed(int32(places))

	intPart, fracPart, _ := strings.Cut(text, ".")
	if !settings.ShowTrailingZeros {
		fracPart = strings.TrimRight(fracPart, "0")
	}

	var b strings.Builder
	if rounded.IsNegative() {
		b.WriteByte('-')
	}
	symbol := settings.CurrencySymbol
	if opts.OmitSymbol {
		symbol = ""
	}
	if symbol != "" && settings.CurrencyPosition != domain.CurrencyAfter {
		b.WriteString(symbol)
	}

	b.WriteString(group(intPart, settings.ThousandSeparator))
	if fracPart != "" {
		b.WriteString(settings.DecimalSeparator)
		b.WriteString(fracPart)
	}

	if symbol != "" && settings.CurrencyPosition == domain.CurrencyAfter {
		b.WriteByte(' ')
		b.WriteString(symbol)
	}
	return b.String()
}

var half = decimal.New(5, -1)

// Round applies the rounding method at the given number of places. The
// round method sends halves toward positive infinity (-10.125 -> -10.12).
func Round(amount decimal.Decimal, places int, method string) decimal.Decimal {
	switch method {
	case domain.RoundingFloor:
		return amount.RoundFloor(int32(places))
	case domain.RoundingCeil:
		return amount.RoundCeil(int32(places))
	default:
		p := int32(places)
		return amount.Shift(p).Add(half).Floor().Shift(-p)
	}
}

func group(digits string, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
