// Package costing holds the deterministic numeric rules of the engine:
// ingredient unit cost, recipe COGS rollup, margins, channel prices and
// rounding. Nothing here touches storage.
package costing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"hitunghpp/backend/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
	half    = decimal.New(5, -1)
)

// percentPlaces is the precision kept for stored percentages.
const percentPlaces = 2

// CostPerUnit returns purchasePrice / (packageSize × conversionFactor).
func CostPerUnit(purchasePrice, packageSize, conversionFactor decimal.Decimal) (decimal.Decimal, error) {
	if purchasePrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: purchase price must not be negative", domain.ErrValidation)
	}
	if !packageSize.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: package size must be greater than zero", domain.ErrValidation)
	}
	if !conversionFactor.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: conversion factor must be greater than zero", domain.ErrValidation)
	}
	return purchasePrice.Div(packageSize.Mul(conversionFactor)), nil
}

// NewPriceChange builds the shared history payload. PriceChange and
// PercentageChange are absolute; ChangeType keeps the direction.
func NewPriceChange(oldPrice, newPrice decimal.Decimal, at time.Time) domain.PriceChangeEvent {
	delta := newPrice.Sub(oldPrice)
	percentage := decimal.Zero
	if oldPrice.IsPositive() {
		percentage = delta.Div(oldPrice).Mul(hundred).Round(percentPlaces)
	}

	changeType := domain.ChangeNone
	switch delta.Sign() {
	case 1:
		changeType = domain.ChangeIncrease
	case -1:
		changeType = domain.ChangeDecrease
	}

	return domain.PriceChangeEvent{
		OldPrice:         oldPrice,
		NewPrice:         newPrice,
		PriceChange:      delta.Abs(),
		PercentageChange: percentage.Abs(),
		ChangeType:       changeType,
		ChangeDate:       at.UTC(),
	}
}

// ProfitMargin is (price − cogs) / price × 100 when cogs is known, else 0.
func ProfitMargin(price, cogsPerServing decimal.Decimal) decimal.Decimal {
	if !cogsPerServing.IsPositive() || !price.IsPositive() {
		return decimal.Zero
	}
	return price.Sub(cogsPerServing).Div(price).Mul(hundred).Round(percentPlaces)
}

// Share is part as a percentage of total, 0 when total is zero.
func Share(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred).Round(percentPlaces)
}

// AdjustPrice applies a bulk base-price mode. The result is rounded
// half-up to an integer and never negative.
func AdjustPrice(current decimal.Decimal, mode string, value decimal.Decimal) (decimal.Decimal, error) {
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: adjustment value must not be negative", domain.ErrValidation)
	}

	var next decimal.Decimal
	switch mode {
	case domain.AdjustSet:
		next = value
	case domain.AdjustIncreasePercent:
		next = current.Mul(one.Add(value.Div(hundred)))
	case domain.AdjustDecreasePercent:
		next = current.Mul(one.Sub(value.Div(hundred)))
	case domain.AdjustIncreaseAmount:
		next = current.Add(value)
	case domain.AdjustDecreaseAmount:
		next = current.Sub(value)
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown adjustment mode %q", domain.ErrValidation, mode)
	}

	next = RoundPrice(next)
	if next.IsNegative() {
		next = decimal.Zero
	}
	return next, nil
}

// RoundPrice rounds a base price to a whole amount, halves toward +inf.
func RoundPrice(price decimal.Decimal) decimal.Decimal {
	return roundHalfUp(price, 0)
}
