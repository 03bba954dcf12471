package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ErrAmountOutOfRange reports an amount whose minor units overflow int64.
var ErrAmountOutOfRange = errors.New("amount out of range")

// ToMinorUnits converts a decimal amount to gateway minor units
// (×100, rounded half away from zero).
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Mul(hundred).Round(0)
	if !minor.BigInt().IsInt64() {
		return 0, ErrAmountOutOfRange
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts gateway minor units back to a decimal amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FormatMoney renders an amount with thousand separators and the currency code,
// e.g. "COP 300.000".
func FormatMoney(amount decimal.Decimal, currency string) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	whole := amount.Truncate(0)
	cents := amount.Sub(whole).Mul(hundred).Round(0).IntPart()
	out := formatThousand(whole.String())
	if cents > 0 {
		out += fmt.Sprintf(",%02d", cents)
	}
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if cur == "" {
		return sign + out
	}
	return cur + " " + sign + out
}

func formatThousand(digits string) string {
	if digits == "" {
		return "0"
	}
	var out strings.Builder
	for i, c := range digits {
		if i != 0 && (len(digits)-i)%3 == 0 {
			out.WriteByte('.')
		}
		out.WriteRune(c)
	}
	return out.String()
}
