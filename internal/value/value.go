package value

import (
	"fmt"
	"math/big"
	"strconv"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
)

// Value is a sealed interface over the scalar kinds a cell can hold.
// Only Text, Int, Double, BigInt, Decimal, and Web implement it.
// A nil Value means the cell is absent.
type Value interface {
	cellValue() // Sealed - only these types implement it
	Kind() Kind
	String() string
}

// Kind identifies the concrete type behind a Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindText
	KindInt
	KindDouble
	KindBigInt
	KindDecimal
	KindWeb
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindBigInt:
		return "bigint"
	case KindDecimal:
		return "decimal"
	case KindWeb:
		return "web"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a kind name as printed by Kind.String back to a Kind.
func ParseKind(s string) (Kind, error) {
	for k := KindAbsent; k <= KindWeb; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return KindAbsent, &InvalidValueError{Value: s, Reason: "unknown kind"}
}

// KindOf returns the kind of v, treating nil as KindAbsent.
func KindOf(v Value) Kind {
	if v == nil {
		return KindAbsent
	}
	return v.Kind()
}

// IsNumber reports whether v is one of the numeric kinds.
func IsNumber(v Value) bool {
	switch v.(type) {
	case Int, Double, BigInt, Decimal:
		return true
	default:
		return false
	}
}

// Validate reports whether v can be stored and encoded. Text and Web
// must hold valid UTF-8.
func Validate(v Value) error {
	var s string
	switch val := v.(type) {
	case Text:
		s = string(val)
	case Web:
		s = string(val)
	default:
		return nil
	}
	if !utf8.ValidString(s) {
		return &InvalidValueError{Value: strconv.Quote(s), Reason: v.Kind().String() + " is not valid utf-8"}
	}
	return nil
}

// Text is a plain string value.
type Text string

func (Text) cellValue()       {}
func (Text) Kind() Kind       { return KindText }
func (t Text) String() string { return string(t) }

// Int is a 64-bit signed integer value.
type Int int64

func (Int) cellValue()       {}
func (Int) Kind() Kind       { return KindInt }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Double is an IEEE 754 double precision value.
type Double float64

func (Double) cellValue() {}
func (Double) Kind() Kind { return KindDouble }
func (d Double) String() string {
	return strconv.FormatFloat(float64(d), 'g', -1, 64)
}

// BigInt is an arbitrary-precision integer. The wrapped big.Int is never
// exposed or mutated after construction.
type BigInt struct {
	n *big.Int
}

// NewBigInt copies n into a BigInt value.
func NewBigInt(n *big.Int) BigInt {
	return BigInt{n: new(big.Int).Set(n)}
}

// ParseBigInt parses a base 10 integer of any size.
func ParseBigInt(s string) (BigInt, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return BigInt{}, &InvalidValueError{Value: s, Reason: "not a base 10 integer"}
	}
	return BigInt{n: n}, nil
}

func (BigInt) cellValue() {}
func (BigInt) Kind() Kind { return KindBigInt }

func (b BigInt) String() string {
	return b.big().String()
}

// Big returns a copy of the underlying integer.
func (b BigInt) Big() *big.Int {
	return new(big.Int).Set(b.big())
}

func (b BigInt) big() *big.Int {
	if b.n == nil {
		return new(big.Int)
	}
	return b.n
}

// Decimal is an arbitrary-precision decimal number. Only finite values
// are representable.
type Decimal struct {
	d *apd.Decimal
}

// NewDecimal builds coeff × 10^exponent.
func NewDecimal(coeff int64, exponent int32) Decimal {
	return Decimal{d: apd.New(coeff, exponent)}
}

// NewDecimalFromAPD copies d, rejecting NaN and infinities.
func NewDecimalFromAPD(d *apd.Decimal) (Decimal, error) {
	if d.Form != apd.Finite {
		return Decimal{}, &InvalidValueError{Value: d.String(), Reason: "decimal must be finite"}
	}
	return Decimal{d: new(apd.Decimal).Set(d)}, nil
}

// ParseDecimal parses a decimal literal such as "12.50" or "-1e-3".
func ParseDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, &InvalidValueError{Value: s, Reason: err.Error()}
	}
	return NewDecimalFromAPD(d)
}

func (Decimal) cellValue() {}
func (Decimal) Kind() Kind { return KindDecimal }

func (d Decimal) String() string {
	return d.apd().Text('f')
}

// APD returns a copy of the underlying decimal.
func (d Decimal) APD() *apd.Decimal {
	return new(apd.Decimal).Set(d.apd())
}

// Unscaled returns the unscaled integer and scale such that the value
// equals unscaled × 10^-scale.
func (d Decimal) Unscaled() (*big.Int, int32) {
	dd := d.apd()
	n := dd.Coeff.MathBigInt()
	if dd.Negative {
		n.Neg(n)
	}
	return n, -dd.Exponent
}

func (d Decimal) apd() *apd.Decimal {
	if d.d == nil {
		return apd.New(0, 0)
	}
	return d.d
}

// Web is rich markup content rendered by a browser.
type Web string

func (Web) cellValue()       {}
func (Web) Kind() Kind       { return KindWeb }
func (w Web) String() string { return string(w) }
