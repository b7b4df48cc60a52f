package value

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
)

// Wire tags. Each encoded value starts with exactly one of these bytes.
const (
	TagText    byte = 1
	TagDouble  byte = 2
	TagInt     byte = 3
	TagBigInt  byte = 4
	TagDecimal byte = 5
	TagWeb     byte = 6
)

// maxLength caps length prefixes on decode so corrupt input cannot force
// huge allocations.
const maxLength = 1 << 28

// Tag returns the wire tag for v. Absent values have no tag.
func Tag(v Value) (byte, error) {
	switch v.(type) {
	case Text:
		return TagText, nil
	case Double:
		return TagDouble, nil
	case Int:
		return TagInt, nil
	case BigInt:
		return TagBigInt, nil
	case Decimal:
		return TagDecimal, nil
	case Web:
		return TagWeb, nil
	case nil:
		return 0, &InvalidValueError{Reason: "absent value has no encoding"}
	default:
		return 0, &InvalidValueError{Value: v, Reason: "unknown value type"}
	}
}

// Encode writes the tagged binary form of v to w.
//
// Layout (all integers big-endian):
//
//	text, web:  tag | len:u32 | utf-8 bytes
//	double:     tag | ieee754 bits:u64
//	int:        tag | i64
//	bigint:     tag | len:u32 | two's complement bytes
//	decimal:    tag | len:u32 | two's complement unscaled | scale:i32
func Encode(w io.Writer, v Value) error {
	tag, err := Tag(v)
	if err != nil {
		return err
	}
	if err := Validate(v); err != nil {
		return err
	}

	buf := []byte{tag}
	switch val := v.(type) {
	case Text:
		buf = appendBytes(buf, []byte(val))
	case Web:
		buf = appendBytes(buf, []byte(val))
	case Double:
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(float64(val)))
	case Int:
		buf = binary.BigEndian.AppendUint64(buf, uint64(int64(val)))
	case BigInt:
		buf = appendBytes(buf, twosComplement(val.big()))
	case Decimal:
		unscaled, scale := val.Unscaled()
		buf = appendBytes(buf, twosComplement(unscaled))
		buf = binary.BigEndian.AppendUint32(buf, uint32(scale))
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("encode %s: %w", v.Kind(), err)
	}
	return nil
}

// Decode reads one tagged value from r.
func Decode(r io.Reader) (Value, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, fmt.Errorf("decode tag: %w", err)
	}

	switch tag[0] {
	case TagText, TagWeb:
		b, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, &InvalidValueError{Reason: "text is not valid utf-8"}
		}
		if tag[0] == TagWeb {
			return Web(b), nil
		}
		return Text(b), nil

	case TagDouble:
		u, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return Double(math.Float64frombits(u)), nil

	case TagInt:
		u, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return Int(int64(u)), nil

	case TagBigInt:
		b, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		return BigInt{n: fromTwosComplement(b)}, nil

	case TagDecimal:
		b, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		var scale [4]byte
		if _, err := io.ReadFull(r, scale[:]); err != nil {
			return nil, fmt.Errorf("decode decimal scale: %w", err)
		}
		unscaled := fromTwosComplement(b)
		d := apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(unscaled), -int32(binary.BigEndian.Uint32(scale[:])))
		return Decimal{d: d}, nil

	default:
		return nil, &InvalidValueError{Value: tag[0], Reason: "unknown wire tag"}
	}
}

// Marshal returns the encoded bytes of v.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes exactly one value from data. Trailing bytes are an error.
func Unmarshal(data []byte) (Value, error) {
	r := bytes.NewReader(data)
	v, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, &InvalidValueError{Reason: fmt.Sprintf("%d trailing bytes", r.Len())}
	}
	return v, nil
}

// DecodeAll reads values until r is exhausted.
func DecodeAll(r io.Reader) ([]Value, error) {
	br := bufio.NewReader(r)
	var out []Value
	for {
		if _, err := br.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, err
		}
		v, err := Decode(br)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func appendBytes(buf, b []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func readBytes(r io.Reader) ([]byte, error) {
	var l [4]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return nil, fmt.Errorf("decode length: %w", err)
	}
	n := binary.BigEndian.Uint32(l[:])
	if n > maxLength {
		return nil, &InvalidValueError{Value: n, Reason: "length prefix too large"}
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return b, nil
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("decode fixed width: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// twosComplement returns the minimal big-endian two's complement bytes of n,
// always at least one byte.
func twosComplement(n *big.Int) []byte {
	if n.Sign() >= 0 {
		b := n.Bytes()
		if len(b) == 0 || b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}

	// -n-1 has the same bit length as the magnitude bits of n's encoding
	m := new(big.Int).Neg(n)
	m.Sub(m, big.NewInt(1))
	size := m.BitLen()/8 + 1

	mod := new(big.Int).Lsh(big.NewInt(1), uint(size*8))
	t := mod.Add(mod, n)
	return t.FillBytes(make([]byte, size))
}

func fromTwosComplement(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		n.Sub(n, mod)
	}
	return n
}
