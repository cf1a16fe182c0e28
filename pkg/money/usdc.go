package money

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// USDCDecimals is the number of implicit fractional digits of the stake token.
const USDCDecimals = 6

var (
	usdcUnit      = big.NewInt(1_000_000)
	decimalAmount = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)
)

// Format renders a base-unit amount as a display string: the integer part is grouped in
// thousands and up to six fractional digits are kept with trailing zeros stripped.
// raw may be any representation accepted by ToBigInt; unparsable input renders as "0".
func Format(raw any) string {
	value := ToBigInt(raw, 0)
	if value.Sign() == 0 {
		return "0"
	}

	sign := ""
	if value.Sign() < 0 {
		sign = "-"
		value = new(big.Int).Neg(value)
	}

	plain := FromBaseUnits(value, USDCDecimals)
	whole, frac, _ := strings.Cut(plain, ".")
	if frac == "" {
		return sign + groupThousands(whole)
	}
	return sign + groupThousands(whole) + "." + frac
}

// Parse converts a display string to base units. Digits past the sixth fractional place
// are truncated. Thousands separators are accepted; negative or non-numeric input yields 0.
func Parse(display string) *big.Int {
	s := strings.ReplaceAll(strings.TrimSpace(display), ",", "")
	if s == "" || !decimalAmount.MatchString(s) {
		return big.NewInt(0)
	}

	amount, err := ToBaseUnits(s, USDCDecimals)
	if err != nil {
		return big.NewInt(0)
	}
	return amount
}

// FormatCompact renders balances of a thousand units or more as "1.50K" / "2.25M".
// Smaller amounts use Format.
func FormatCompact(raw any) string {
	value := ToBigInt(raw, 0)
	whole := new(big.Int).Quo(value, usdcUnit)

	switch {
	case whole.Cmp(big.NewInt(1_000_000)) >= 0:
		return scaled(whole, 1_000_000) + "M"
	case whole.Cmp(big.NewInt(1_000)) >= 0:
		return scaled(whole, 1_000) + "K"
	default:
		return Format(value)
	}
}

// scaled divides whole by unit and renders the quotient with two truncated decimals.
func scaled(whole *big.Int, unit int64) string {
	hundredths := new(big.Int).Mul(whole, big.NewInt(100))
	hundredths.Quo(hundredths, big.NewInt(unit))
	q, r := new(big.Int).QuoRem(hundredths, big.NewInt(100), new(big.Int))
	return fmt.Sprintf("%s.%02d", q.String(), r.Int64())
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Increment returns how much more than existing must be authorized to reach target.
// Decreases and unchanged amounts need nothing.
func Increment(existing, target *big.Int) *big.Int {
	if target == nil {
		return big.NewInt(0)
	}
	if existing == nil {
		existing = big.NewInt(0)
	}
	if target.Cmp(existing) <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(target, existing)
}
