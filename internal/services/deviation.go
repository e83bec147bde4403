package services

import (
	"github.com/shopspring/decimal"
)

// DeviationInput describes a trip as planned and as re-routed.
type DeviationInput struct {
	OriginalKm decimal.Decimal
	NewKm      decimal.Decimal
	OriginalKg decimal.Decimal
	NewKg      decimal.Decimal
	CostPerKm  decimal.Decimal
}

type DeviationResult struct {
	OriginalCostPerKg decimal.Decimal
	NewCostPerKg      decimal.Decimal
	// Worthwhile is true when the re-routed trip costs no more per kg.
	Worthwhile bool
}

// EvaluateDeviation compares the freight cost per kilogram of two trips
// priced at the same cost per kilometer.
func EvaluateDeviation(in DeviationInput) (DeviationResult, error) {
	if in.OriginalKg.Sign() <= 0 || in.NewKg.Sign() <= 0 {
		return DeviationResult{}, validationError("kg_original and kg_new must be positive")
	}
	if in.OriginalKm.IsNegative() || in.NewKm.IsNegative() || in.CostPerKm.IsNegative() {
		return DeviationResult{}, validationError("distances and cost per km must not be negative")
	}

	original := in.OriginalKm.Mul(in.CostPerKm).Div(in.OriginalKg)
	next := in.NewKm.Mul(in.CostPerKm).Div(in.NewKg)

	return DeviationResult{
		OriginalCostPerKg: original,
		NewCostPerKg:      next,
		Worthwhile:        next.LessThanOrEqual(original),
	}, nil
}
