package value

import (
	"math"
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// Of converts a Go value into a Value.
//
// nil maps to absent (nil, nil). Strings become Text, signed and unsigned
// integers become Int (or BigInt when a uint64 overflows int64), floats
// become Double, *big.Int becomes BigInt and *apd.Decimal becomes Decimal.
// Anything else, and text that is not valid UTF-8, is rejected with an
// InvalidValueError.
func Of(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return nil, nil
	case Value:
		if err := Validate(v); err != nil {
			return nil, err
		}
		return v, nil
	case string:
		return Of(Text(v))
	case int:
		return Int(v), nil
	case int8:
		return Int(v), nil
	case int16:
		return Int(v), nil
	case int32:
		return Int(v), nil
	case int64:
		return Int(v), nil
	case uint:
		return ofUint64(uint64(v)), nil
	case uint8:
		return Int(v), nil
	case uint16:
		return Int(v), nil
	case uint32:
		return Int(v), nil
	case uint64:
		return ofUint64(v), nil
	case float32:
		return Double(v), nil
	case float64:
		return Double(v), nil
	case *big.Int:
		if v == nil {
			return nil, &InvalidValueError{Value: x, Reason: "nil big.Int"}
		}
		return NewBigInt(v), nil
	case big.Int:
		return NewBigInt(&v), nil
	case *apd.Decimal:
		if v == nil {
			return nil, &InvalidValueError{Value: x, Reason: "nil decimal"}
		}
		return NewDecimalFromAPD(v)
	default:
		return nil, &InvalidValueError{Value: x, Reason: "unsupported type"}
	}
}

func ofUint64(u uint64) Value {
	if u > math.MaxInt64 {
		return BigInt{n: new(big.Int).SetUint64(u)}
	}
	return Int(int64(u))
}
