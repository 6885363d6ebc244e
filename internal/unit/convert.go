// Package unit converts quantities between units of the same measurement
// category using a fixed base-unit factor table.
package unit

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	CategoryWeight = "Weight"
	CategoryVolume = "Volume"
)

// Factors express how many of a unit make one base unit: kg and l are the
// base units of their categories.
var factors = map[string]map[string]decimal.Decimal{
	CategoryWeight: {
		"kg": decimal.NewFromInt(1),
		"g":  decimal.NewFromInt(1000),
		"mg": decimal.NewFromInt(1000000),
	},
	CategoryVolume: {
		"l":  decimal.NewFromInt(1),
		"ml": decimal.NewFromInt(1000),
	},
}

// Convert translates value from one unit to another within a category.
// Unknown categories or units are errors, never a silent passthrough.
func Convert(value decimal.Decimal, fromUnit, toUnit, category string) (decimal.Decimal, error) {
	table, ok := factors[category]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("unsupported category %q", category)
	}
	from, ok := table[fromUnit]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("unsupported unit %q for category %q", fromUnit, category)
	}
	to, ok := table[toUnit]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("unsupported unit %q for category %q", toUnit, category)
	}
	return value.Div(from).Mul(to), nil
}

// CategoryOf reports which category a unit belongs to. Units outside the
// factor tables (pc, pack, and other counted units) have no category and
// convert only to themselves.
func CategoryOf(u string) (string, bool) {
	for cat, table := range factors {
		if _, ok := table[u]; ok {
			return cat, true
		}
	}
	return "", false
}

// ConvertAuto converts between two units when both share a category, and
// returns the value unchanged when the units are equal. Mixing units across
// categories, or pairing a counted unit with a measured one, is an error.
func ConvertAuto(value decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, error) {
	if fromUnit == toUnit {
		return value, nil
	}
	fromCat, fromOK := CategoryOf(fromUnit)
	toCat, toOK := CategoryOf(toUnit)
	if !fromOK || !toOK || fromCat != toCat {
		return decimal.Decimal{}, fmt.Errorf("cannot convert %q to %q", fromUnit, toUnit)
	}
	return Convert(value, fromUnit, toUnit, fromCat)
}
