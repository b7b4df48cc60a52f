package value

import (
	"cmp"
	"math"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Compare orders two values.
//
// Absent sorts before everything. Numbers sort before non-numbers and
// compare numerically across kinds. Everything else compares by its
// string form.
func Compare(a, b Value) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	an, bn := IsNumber(a), IsNumber(b)
	switch {
	case an && bn:
		return compareNumbers(a, b)
	case an:
		return -1
	case bn:
		return 1
	default:
		return strings.Compare(a.String(), b.String())
	}
}

// Equal reports whether a and b compare equal.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

func compareNumbers(a, b Value) int {
	if ai, ok := a.(Int); ok {
		if bi, ok := b.(Int); ok {
			return cmp.Compare(ai, bi)
		}
	}

	// Infinities and NaN have no exact decimal form
	if nonFinite(a) || nonFinite(b) {
		return cmp.Compare(toFloat(a), toFloat(b))
	}

	return toDecimal(a).Cmp(toDecimal(b))
}

func nonFinite(v Value) bool {
	d, ok := v.(Double)
	if !ok {
		return false
	}
	f := float64(d)
	return math.IsInf(f, 0) || math.IsNaN(f)
}

func toFloat(v Value) float64 {
	switch n := v.(type) {
	case Int:
		return float64(n)
	case Double:
		return float64(n)
	case BigInt:
		f, _ := new(big.Float).SetInt(n.big()).Float64()
		return f
	case Decimal:
		f, err := n.apd().Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// toDecimal converts a finite numeric value to an exact decimal.
func toDecimal(v Value) *apd.Decimal {
	switch n := v.(type) {
	case Int:
		return apd.New(int64(n), 0)
	case Double:
		d, err := new(apd.Decimal).SetFloat64(float64(n))
		if err != nil {
			return apd.New(0, 0)
		}
		return d
	case BigInt:
		return apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(n.big()), 0)
	case Decimal:
		return n.apd()
	default:
		return apd.New(0, 0)
	}
}
