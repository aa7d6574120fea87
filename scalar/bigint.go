package scalar

import (
	"fmt"
	"math/big"

	"github.com/wasmflow/substate/errors"
)

// BigInt is an arbitrary-precision signed integer. The zero value is not
// usable; construct values through the NewBigInt* functions. All arithmetic
// methods return new values and never mutate their receivers.
type BigInt struct {
	i big.Int
}

// NewBigInt returns a BigInt holding v.
func NewBigInt(v int64) *BigInt {
	b := new(BigInt)
	b.i.SetInt64(v)
	return b
}

// NewBigIntFromUint64 returns a BigInt holding v.
func NewBigIntFromUint64(v uint64) *BigInt {
	b := new(BigInt)
	b.i.SetUint64(v)
	return b
}

// BigIntZero returns a BigInt holding 0.
func BigIntZero() *BigInt { return NewBigInt(0) }

// BigIntOne returns a BigInt holding 1.
func BigIntOne() *BigInt { return NewBigInt(1) }

// NewBigIntFromString parses a base-10 integer.
func NewBigIntFromString(s string) (*BigInt, error) {
	b := new(BigInt)
	if _, ok := b.i.SetString(s, 10); !ok {
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).
			Detail("value %q is not a valid base-10 integer", s).
			Value(s).
			Build()
	}
	return b, nil
}

// MustBigIntFromString parses a base-10 integer and panics on failure.
// Intended for constants in handler code.
func MustBigIntFromString(s string) *BigInt {
	b, err := NewBigIntFromString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// NewBigIntFromSignedBytesBE interprets bytes as a big-endian two's
// complement signed integer.
func NewBigIntFromSignedBytesBE(data []byte) *BigInt {
	b := new(BigInt)
	if len(data) == 0 {
		return b
	}
	b.i.SetBytes(data)
	// Negative when the sign bit of the most significant byte is set.
	if data[0]&0x80 != 0 {
		max := new(big.Int).Lsh(big.NewInt(1), uint(len(data))*8)
		b.i.Sub(&b.i, max)
	}
	return b
}

// NewBigIntFromSignedBytesLE interprets bytes as a little-endian two's
// complement signed integer.
func NewBigIntFromSignedBytesLE(data []byte) *BigInt {
	return NewBigIntFromSignedBytesBE(reverseBytes(data))
}

// NewBigIntFromUnsignedBytesBE interprets bytes as a big-endian unsigned
// integer.
func NewBigIntFromUnsignedBytesBE(data []byte) *BigInt {
	b := new(BigInt)
	b.i.SetBytes(data)
	return b
}

// NewBigIntFromUnsignedBytesLE interprets bytes as a little-endian unsigned
// integer.
func NewBigIntFromUnsignedBytesLE(data []byte) *BigInt {
	return NewBigIntFromUnsignedBytesBE(reverseBytes(data))
}

// BigIntFromStoreBytes decodes the store encoding of a big integer: a UTF-8
// base-10 string. Empty bytes decode to zero.
func BigIntFromStoreBytes(data []byte) (*BigInt, error) {
	if len(data) == 0 {
		return BigIntZero(), nil
	}
	b, err := NewBigIntFromString(string(data))
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("value %q is not a valid representation of a big integer", string(data)).
			Cause(err).
			Build()
	}
	return b, nil
}

// StoreBytes returns the store encoding: the base-10 string as bytes.
func (b *BigInt) StoreBytes() []byte {
	return []byte(b.i.String())
}

// UnsignedBytesBE returns the big-endian magnitude. The sign is discarded.
func (b *BigInt) UnsignedBytesBE() []byte {
	return b.i.Bytes()
}

// UnsignedBytesLE returns the little-endian magnitude. The sign is discarded.
func (b *BigInt) UnsignedBytesLE() []byte {
	return reverseBytes(b.i.Bytes())
}

// SignedBytesBE returns the minimal big-endian two's complement encoding.
func (b *BigInt) SignedBytesBE() []byte {
	if b.i.Sign() >= 0 {
		data := b.i.Bytes()
		if len(data) == 0 {
			return []byte{0}
		}
		// Prepend a zero byte when the sign bit would read as negative.
		if data[0]&0x80 != 0 {
			return append([]byte{0}, data...)
		}
		return data
	}

	// Two's complement: a negative v needs BitLen(v+1)+1 bits, so exact
	// powers of two like -128 still fit their single byte.
	width := (new(big.Int).Add(&b.i, big.NewInt(1)).BitLen() + 8) / 8
	max := new(big.Int).Lsh(big.NewInt(1), uint(width)*8)
	tc := new(big.Int).Add(&b.i, max)
	data := tc.Bytes()
	for len(data) < width {
		data = append([]byte{0}, data...)
	}
	return data
}

// SignedBytesLE returns the minimal little-endian two's complement encoding.
func (b *BigInt) SignedBytesLE() []byte {
	return reverseBytes(b.SignedBytesBE())
}

// Add returns b + other.
func (b *BigInt) Add(other *BigInt) *BigInt {
	out := new(BigInt)
	out.i.Add(&b.i, &other.i)
	return out
}

// Sub returns b - other.
func (b *BigInt) Sub(other *BigInt) *BigInt {
	out := new(BigInt)
	out.i.Sub(&b.i, &other.i)
	return out
}

// Mul returns b * other.
func (b *BigInt) Mul(other *BigInt) *BigInt {
	out := new(BigInt)
	out.i.Mul(&b.i, &other.i)
	return out
}

// Div returns b / other, truncated toward zero. It panics when other is
// zero.
func (b *BigInt) Div(other *BigInt) *BigInt {
	if other.IsZero() {
		panic("scalar: division of BigInt by zero")
	}
	out := new(BigInt)
	out.i.Quo(&b.i, &other.i)
	return out
}

// Pow returns b raised to exponent.
func (b *BigInt) Pow(exponent uint32) *BigInt {
	out := new(BigInt)
	out.i.Exp(&b.i, big.NewInt(int64(exponent)), nil)
	return out
}

// Neg returns -b.
func (b *BigInt) Neg() *BigInt {
	out := new(BigInt)
	out.i.Neg(&b.i)
	return out
}

// Cmp compares b and other and returns -1, 0 or +1.
func (b *BigInt) Cmp(other *BigInt) int {
	return b.i.Cmp(&other.i)
}

// Sign returns -1, 0 or +1 depending on the sign of b.
func (b *BigInt) Sign() int { return b.i.Sign() }

// IsZero reports whether b == 0.
func (b *BigInt) IsZero() bool { return b.i.Sign() == 0 }

// IsOne reports whether b == 1.
func (b *BigInt) IsOne() bool { return b.i.Sign() > 0 && b.i.Cmp(big.NewInt(1)) == 0 }

// BitLen returns the length of the absolute value in bits.
func (b *BigInt) BitLen() int { return b.i.BitLen() }

// Uint64 converts to uint64. It fails on negative or oversized values.
func (b *BigInt) Uint64() (uint64, error) {
	if b.i.Sign() < 0 {
		return 0, errors.New(errors.PhaseScalar, errors.KindOverflow).
			Detail("cannot convert negative big integer %s to uint64", b.String()).
			Build()
	}
	if !b.i.IsUint64() {
		return 0, errors.Overflow(errors.PhaseScalar, b.String(), "uint64")
	}
	return b.i.Uint64(), nil
}

// Int64 converts to int64. It fails when the value does not fit.
func (b *BigInt) Int64() (int64, error) {
	if !b.i.IsInt64() {
		return 0, errors.Overflow(errors.PhaseScalar, b.String(), "int64")
	}
	return b.i.Int64(), nil
}

// Int returns a copy of the underlying math/big value.
func (b *BigInt) Int() *big.Int {
	return new(big.Int).Set(&b.i)
}

// String renders the value in base 10.
func (b *BigInt) String() string { return b.i.String() }

// Format implements fmt.Formatter by delegating to the underlying value.
func (b *BigInt) Format(s fmt.State, ch rune) { b.i.Format(s, ch) }

// MarshalText implements encoding.TextMarshaler.
func (b *BigInt) MarshalText() ([]byte, error) {
	return []byte(b.i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BigInt) UnmarshalText(text []byte) error {
	parsed, err := NewBigIntFromString(string(text))
	if err != nil {
		return err
	}
	b.i.Set(&parsed.i)
	return nil
}

func reverseBytes(data []byte) []byte {
	out := make([]byte, len(data))
	for i, v := range data {
		out[len(data)-1-i] = v
	}
	return out
}
