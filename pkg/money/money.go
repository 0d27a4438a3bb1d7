package money

import "github.com/shopspring/decimal"

// All monetary amounts in the system are naira with 2 decimal places.
// Rounding is half-up and happens exactly once, at computation time;
// stored amounts are never re-rounded.

var kgPerTon = decimal.NewFromInt(1000)

// Round rounds an amount to 2 decimal places, half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// KgToTons converts a weight in kilograms to tons (1000 kg per ton).
func KgToTons(kg decimal.Decimal) decimal.Decimal {
	return kg.Div(kgPerTon)
}

// MustDecimal parses s into a decimal and panics on failure.
// For constants and test fixtures only.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
