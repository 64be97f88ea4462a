package workflow

import (
	"github.com/planmesh/planmesh/core"
	"github.com/shopspring/decimal"
)

// Payload accessors for the loosely typed plan maps flowing over the bus.

func listAny(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func stringValueDefault(v any, def string) string {
	if s := stringValue(v); s != "" {
		return s
	}
	return def
}

func intValue(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func toDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case string:
		if d, err := decimal.NewFromString(n); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// splitPricing decomposes a total into the conventional 85% base, 10%
// taxes, 5% fees breakdown used when only an aggregate figure is known.
func splitPricing(total decimal.Decimal, currency string) core.PricingBreakdown {
	base := total.Mul(decimal.RequireFromString("0.85")).Round(2)
	taxes := total.Mul(decimal.RequireFromString("0.10")).Round(2)
	fees := total.Sub(base).Sub(taxes)
	return core.PricingBreakdown{
		BasePrice: base,
		Taxes:     taxes,
		Fees:      fees,
		Total:     total,
		Currency:  currency,
	}
}
