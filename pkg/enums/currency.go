package enums

import (
	"fmt"
	"strings"
)

// Currency is the ISO 4217 code a charge is made in.
type Currency string

const (
	CurrencyINR Currency = "INR"
)

// exponents maps each accepted currency to its minor-unit exponent.
var exponents = map[Currency]int32{
	CurrencyINR: 2,
}

func (c Currency) String() string {
	return string(c)
}

func (c Currency) IsValid() bool {
	_, ok := exponents[c]
	return ok
}

// Exponent is the number of decimal places in one major unit, 2 for paise.
// Unknown currencies report 2.
func (c Currency) Exponent() int32 {
	if exp, ok := exponents[c]; ok {
		return exp
	}
	return 2
}

// ParseCurrency accepts a code in any case with surrounding whitespace.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", value)
	}
	return c, nil
}
