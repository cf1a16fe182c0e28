package money

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"
)

// ToBigInt coerces an integer-like value into a fresh *big.Int. It never panics:
// anything it cannot interpret yields fallback. Accepted inputs are *big.Int, big.Int,
// every Go integer kind, floats (truncated toward zero), json.Number and decimal or
// 0x-prefixed hex strings.
func ToBigInt(v any, fallback int64) *big.Int {
	if n, ok := coerce(v); ok {
		return n
	}
	return big.NewInt(fallback)
}

// ToInt64 is ToBigInt narrowed to int64; values that do not fit yield fallback.
func ToInt64(v any, fallback int64) int64 {
	n, ok := coerce(v)
	if !ok || !n.IsInt64() {
		return fallback
	}
	return n.Int64()
}

func coerce(v any) (*big.Int, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case *big.Int:
		if x == nil {
			return nil, false
		}
		return new(big.Int).Set(x), true
	case big.Int:
		return new(big.Int).Set(&x), true
	case int:
		return big.NewInt(int64(x)), true
	case int8:
		return big.NewInt(int64(x)), true
	case int16:
		return big.NewInt(int64(x)), true
	case int32:
		return big.NewInt(int64(x)), true
	case int64:
		return big.NewInt(x), true
	case uint:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint64:
		return new(big.Int).SetUint64(x), true
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case json.Number:
		return fromString(x.String())
	case string:
		return fromString(x)
	default:
		return nil, false
	}
}

func fromFloat(f float64) (*big.Int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	n, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	return n, true
}

func fromString(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	n := new(big.Int)
	if hex, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		if hex == "" {
			return big.NewInt(0), true
		}
		if _, ok := n.SetString(hex, 16); !ok {
			return nil, false
		}
		return n, true
	}

	if _, ok := n.SetString(s, 10); !ok {
		return nil, false
	}
	return n, true
}
