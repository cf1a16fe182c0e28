package money

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToBigInt_Representations(t *testing.T) {
	inputs := []any{
		42, int8(42), int16(42), int32(42), int64(42),
		uint(42), uint8(42), uint16(42), uint32(42), uint64(42),
		float64(42.9), float32(42),
		"42", " 42 ", "0x2a", json.Number("42"),
		big.NewInt(42), *big.NewInt(42),
	}

	for _, in := range inputs {
		assertBaseUnits(t, 42, ToBigInt(in, -1), "input %T(%v)", in, in)
	}
}

func TestToBigInt_Fallback(t *testing.T) {
	inputs := []any{nil, "", "undefined", "12.5", math.NaN(), math.Inf(1), true, struct{}{}, (*big.Int)(nil), "0xzz"}

	for _, in := range inputs {
		assertBaseUnits(t, 7, ToBigInt(in, 7), "input %T(%v)", in, in)
	}
}

func TestToBigInt_ReturnsCopy(t *testing.T) {
	src := big.NewInt(5)
	got := ToBigInt(src, 0)
	got.SetInt64(6)
	assert.Equal(t, int64(5), src.Int64())
}

func TestToInt64(t *testing.T) {
	assert.Equal(t, int64(3), ToInt64(uint8(3), 0))
	assert.Equal(t, int64(0), ToInt64("oops", 0))

	huge, _ := new(big.Int).SetString("1000000000000000000000", 10)
	assert.Equal(t, int64(-1), ToInt64(huge, -1))
}
