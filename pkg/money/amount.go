package money

import (
	"fmt"
	"math/big"
	"strings"
)

// ToBaseUnits converts a decimal amount string to base units for a token with the given
// number of decimals. Extra fractional digits are truncated, never rounded.
// "1.5" with 6 decimals → 1500000
func ToBaseUnits(amountStr string, decimals int) (*big.Int, error) {
	if amountStr == "" {
		return nil, fmt.Errorf("amount is required")
	}

	intPart, decPart, _ := strings.Cut(amountStr, ".")
	if intPart == "" {
		intPart = "0"
	}

	if len(decPart) < decimals {
		decPart += strings.Repeat("0", decimals-len(decPart))
	} else if len(decPart) > decimals {
		decPart = decPart[:decimals]
	}

	combined := strings.TrimLeft(intPart+decPart, "0")
	if combined == "" {
		combined = "0"
	}

	result := new(big.Int)
	if _, ok := result.SetString(combined, 10); !ok {
		return nil, fmt.Errorf("invalid amount format")
	}

	return result, nil
}

// FromBaseUnits renders base units as a plain decimal string without grouping.
// 1500000 with 6 decimals → "1.5"
func FromBaseUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}

	str := amount.String()
	if decimals == 0 {
		return str
	}

	negative := strings.HasPrefix(str, "-")
	str = strings.TrimPrefix(str, "-")
	for len(str) <= decimals {
		str = "0" + str
	}

	pos := len(str) - decimals
	result := str[:pos] + "." + str[pos:]
	result = strings.TrimRight(result, "0")
	result = strings.TrimRight(result, ".")

	if result == "" || result == "0" {
		return "0"
	}
	if negative {
		return "-" + result
	}
	return result
}
