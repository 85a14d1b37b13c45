package costing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"hitunghpp/backend/internal/domain"
)

// FinalPrice is the consumer-facing price: price × (1 + taxRate/100).
func FinalPrice(price, taxRate decimal.Decimal) decimal.Decimal {
	return price.Mul(one.Add(taxRate.Div(hundred)))
}

// NetPrice is what remains after the channel takes its commission.
func NetPrice(price, commission decimal.Decimal) decimal.Decimal {
	return price.Mul(one.Sub(commission.Div(hundred)))
}

func MarkupPrice(basePrice, markupPercentage decimal.Decimal) decimal.Decimal {
	return basePrice.Mul(one.Add(markupPercentage.Div(hundred)))
}

// TargetProfitPrice finds the price whose net after commission covers
// cogsPerServing plus targetProfit.
func TargetProfitPrice(cogsPerServing, targetProfit, commission decimal.Decimal) (decimal.Decimal, error) {
	if commission.GreaterThanOrEqual(hundred) {
		return decimal.Zero, fmt.Errorf("%w: commission must be below 100%% for profit pricing", domain.ErrValidation)
	}
	if targetProfit.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: target profit must not be negative", domain.ErrValidation)
	}
	return cogsPerServing.Add(targetProfit).Div(one.Sub(commission.Div(hundred))), nil
}

// ApplyRounding rounds to the policy's increment with halves going toward
// positive infinity, so -12.5 becomes -12 and 12.5 becomes 13.
// An empty policy behaves like none.
func ApplyRounding(x decimal.Decimal, policy domain.RoundingPolicy, increment decimal.Decimal) (decimal.Decimal, error) {
	switch policy {
	case domain.RoundNone, "":
		return roundHalfUp(x, 0), nil
	case domain.RoundHundred:
		return roundHalfUp(x, 2), nil
	case domain.RoundThousand:
		return roundHalfUp(x, 3), nil
	case domain.RoundCustom:
		if !increment.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: rounding increment must be greater than zero", domain.ErrValidation)
		}
		return x.Div(increment).Add(half).Floor().Mul(increment), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown rounding policy %q", domain.ErrValidation, policy)
	}
}

// roundHalfUp rounds x to a multiple of 10^exp, halves toward +inf.
func roundHalfUp(x decimal.Decimal, exp int32) decimal.Decimal {
	return x.Shift(-exp).Add(half).Floor().Shift(exp)
}

func ValidateChannelPrice(price, commission, taxRate decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: channel price must not be negative", domain.ErrValidation)
	}
	if commission.IsNegative() || commission.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("%w: commission must be between 0 and 100", domain.ErrValidation)
	}
	if taxRate.IsNegative() {
		return fmt.Errorf("%w: tax rate must not be negative", domain.ErrValidation)
	}
	return nil
}

// FormatSku renders prefix + separator + number zero-padded to padding.
func FormatSku(prefix string, separator string, padding int, number int64) string {
	digits := strconv.FormatInt(number, 10)
	if pad := padding - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	return prefix + separator + digits
}

// ChannelEconomics derives what the business keeps from a channel price:
// the net after commission, the profit over cogsPerServing, and that
// profit as a percentage of price.
func ChannelEconomics(price, commission, cogsPerServing decimal.Decimal) (net, profit, margin decimal.Decimal) {
	net = NetPrice(price, commission)
	profit = net.Sub(cogsPerServing)
	margin = Share(profit, price)
	return net, profit, margin
}
