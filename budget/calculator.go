// Package budget provides currency conversion and budget arithmetic on
// fixed-point decimals, keeping money out of float64 territory so totals
// survive canonical serialization unchanged.
package budget

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the target currency when callers do not specify one.
const DefaultCurrency = "USD"

// rates are static exchange rates relative to USD. A production deployment
// would source these from a rate API with a cached TTL.
var rates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("0.85"),
	"GBP": decimal.RequireFromString("0.73"),
	"JPY": decimal.RequireFromString("110.0"),
	"CAD": decimal.RequireFromString("1.25"),
	"AUD": decimal.RequireFromString("1.35"),
	"CHF": decimal.RequireFromString("0.92"),
	"CNY": decimal.RequireFromString("6.45"),
	"INR": decimal.RequireFromString("74.5"),
}

// ConversionResult reports one currency conversion.
type ConversionResult struct {
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency string          `json:"original_currency"`
	ConvertedAmount  decimal.Decimal `json:"converted_amount"`
	TargetCurrency   string          `json:"target_currency"`
	Rate             decimal.Decimal `json:"rate"`
}

// Calculator performs currency and budget computations.
type Calculator struct {
	defaultCurrency string
}

// NewCalculator constructs a Calculator targeting DefaultCurrency.
func NewCalculator() *Calculator {
	return &Calculator{defaultCurrency: DefaultCurrency}
}

// Rate returns the exchange rate from one currency to another. Unknown
// currencies are an error rather than a silent 1:1 conversion.
func (c *Calculator) Rate(from, to string) (decimal.Decimal, error) {
	fromRate, ok := rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown currency %q", from)
	}
	toRate, ok := rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown currency %q", to)
	}
	return toRate.Div(fromRate), nil
}

// Convert converts an amount between currencies, rounded to 2 places.
func (c *Calculator) Convert(amount decimal.Decimal, from, to string) (ConversionResult, error) {
	if from == to {
		return ConversionResult{
			OriginalAmount:   amount,
			OriginalCurrency: from,
			ConvertedAmount:  amount,
			TargetCurrency:   to,
			Rate:             decimal.NewFromInt(1),
		}, nil
	}
	rate, err := c.Rate(from, to)
	if err != nil {
		return ConversionResult{}, err
	}
	return ConversionResult{
		OriginalAmount:   amount,
		OriginalCurrency: from,
		ConvertedAmount:  amount.Mul(rate).Round(2),
		TargetCurrency:   to,
		Rate:             rate,
	}, nil
}

// Total sums amounts held in multiple currencies into the target currency
// (the calculator default when target is empty).
func (c *Calculator) Total(amounts map[string]decimal.Decimal, target string) (decimal.Decimal, error) {
	if target == "" {
		target = c.defaultCurrency
	}
	total := decimal.Zero
	for currency, amount := range amounts {
		if currency == target {
			total = total.Add(amount)
			continue
		}
		rate, err := c.Rate(currency, target)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amount.Mul(rate))
	}
	return total.Round(2), nil
}

// WithinBudget reports whether cost fits the budget and the utilization
// fraction (cost/budget; 0 when the budget is zero).
func (c *Calculator) WithinBudget(cost, budget decimal.Decimal) (bool, float64) {
	utilization := 0.0
	if budget.IsPositive() {
		utilization, _ = cost.Div(budget).Float64()
	}
	return cost.LessThanOrEqual(budget), utilization
}
