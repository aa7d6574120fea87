package scalar

import (
	"math"
	"math/big"
	"strconv"

	"github.com/cockroachdb/apd/v3"

	"github.com/wasmflow/substate/errors"
)

// Decimal context mirroring IEEE 754 decimal128: 34 significant digits with
// half-even rounding. Exponents outside the range are rounded or flushed.
var decimalCtx = apd.Context{
	Precision:   34,
	MaxExponent: 6144,
	MinExponent: -6143,
	Rounding:    apd.RoundHalfEven,
	Traps:       apd.DefaultTraps,
}

// BigDecimal is an arbitrary-precision decimal number kept normalized to at
// most 34 significant digits with no trailing fractional zeros. All
// arithmetic methods return new values and never mutate their receivers.
type BigDecimal struct {
	d apd.Decimal
}

// NewBigDecimal returns a BigDecimal holding coefficient * 10^exponent.
func NewBigDecimal(coefficient *BigInt, exponent int32) *BigDecimal {
	var coeff apd.BigInt
	coeff.SetMathBigInt(&coefficient.i)
	out := new(BigDecimal)
	out.d.Set(apd.NewWithBigInt(&coeff, exponent))
	return out.normalize()
}

// BigDecimalZero returns a BigDecimal holding 0.
func BigDecimalZero() *BigDecimal { return new(BigDecimal) }

// BigDecimalOne returns a BigDecimal holding 1.
func BigDecimalOne() *BigDecimal {
	out := new(BigDecimal)
	out.d.SetInt64(1)
	return out
}

// NewBigDecimalFromString parses a decimal number in plain or scientific
// notation and rounds it to 34 significant digits.
func NewBigDecimalFromString(s string) (*BigDecimal, error) {
	out := new(BigDecimal)
	if _, _, err := decimalCtx.SetString(&out.d, s); err != nil {
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).
			Detail("value %q is not a valid decimal number", s).
			Value(s).
			Cause(err).
			Build()
	}
	return out.normalize(), nil
}

// MustBigDecimalFromString parses a decimal number and panics on failure.
// Intended for constants in handler code.
func MustBigDecimalFromString(s string) *BigDecimal {
	d, err := NewBigDecimalFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewBigDecimalFromInt64 returns a BigDecimal holding v.
func NewBigDecimalFromInt64(v int64) *BigDecimal {
	out := new(BigDecimal)
	out.d.SetInt64(v)
	return out.normalize()
}

// NewBigDecimalFromUint64 returns a BigDecimal holding v.
func NewBigDecimalFromUint64(v uint64) *BigDecimal {
	var coeff apd.BigInt
	coeff.SetMathBigInt(new(big.Int).SetUint64(v))
	out := new(BigDecimal)
	out.d.Set(apd.NewWithBigInt(&coeff, 0))
	return out.normalize()
}

// NewBigDecimalFromInt32 returns a BigDecimal holding v.
func NewBigDecimalFromInt32(v int32) *BigDecimal {
	return NewBigDecimalFromInt64(int64(v))
}

// NewBigDecimalFromUint32 returns a BigDecimal holding v.
func NewBigDecimalFromUint32(v uint32) *BigDecimal {
	return NewBigDecimalFromUint64(uint64(v))
}

// NewBigDecimalFromBigInt returns a BigDecimal holding v.
func NewBigDecimalFromBigInt(v *BigInt) *BigDecimal {
	return NewBigDecimal(v, 0)
}

// NewBigDecimalFromFloat64 converts a float through its shortest decimal
// representation. NaN and infinities are rejected.
func NewBigDecimalFromFloat64(v float64) (*BigDecimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, errors.New(errors.PhaseScalar, errors.KindInvalidData).
			Detail("cannot represent %v as a decimal", v).
			Build()
	}
	return NewBigDecimalFromString(strconv.FormatFloat(v, 'g', -1, 64))
}

// BigDecimalFromStoreBytes decodes the store encoding of a decimal: a UTF-8
// decimal string. Empty bytes decode to zero.
func BigDecimalFromStoreBytes(data []byte) (*BigDecimal, error) {
	if len(data) == 0 {
		return BigDecimalZero(), nil
	}
	d, err := NewBigDecimalFromString(string(data))
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("value %q is not a valid representation of a big decimal", string(data)).
			Cause(err).
			Build()
	}
	return d, nil
}

// StoreBytes returns the store encoding: the decimal string as bytes.
func (d *BigDecimal) StoreBytes() []byte {
	return []byte(d.String())
}

// Add returns d + other.
func (d *BigDecimal) Add(other *BigDecimal) *BigDecimal {
	out := new(BigDecimal)
	decimalCtx.Add(&out.d, &d.d, &other.d)
	return out.normalize()
}

// Sub returns d - other.
func (d *BigDecimal) Sub(other *BigDecimal) *BigDecimal {
	out := new(BigDecimal)
	decimalCtx.Sub(&out.d, &d.d, &other.d)
	return out.normalize()
}

// Mul returns d * other.
func (d *BigDecimal) Mul(other *BigDecimal) *BigDecimal {
	out := new(BigDecimal)
	decimalCtx.Mul(&out.d, &d.d, &other.d)
	return out.normalize()
}

// Div returns d / other rounded to 34 significant digits. It panics when
// other is zero.
func (d *BigDecimal) Div(other *BigDecimal) *BigDecimal {
	if other.IsZero() {
		panic("scalar: division of BigDecimal by zero")
	}
	out := new(BigDecimal)
	if _, err := decimalCtx.Quo(&out.d, &d.d, &other.d); err != nil {
		panic(err)
	}
	return out.normalize()
}

// Neg returns -d.
func (d *BigDecimal) Neg() *BigDecimal {
	out := new(BigDecimal)
	out.d.Neg(&d.d)
	return out
}

// Cmp compares d and other and returns -1, 0 or +1.
func (d *BigDecimal) Cmp(other *BigDecimal) int {
	return d.d.Cmp(&other.d)
}

// Sign returns -1, 0 or +1 depending on the sign of d.
func (d *BigDecimal) Sign() int { return d.d.Sign() }

// IsZero reports whether d == 0.
func (d *BigDecimal) IsZero() bool { return d.d.IsZero() }

// WithPrec returns d rounded to at most prec significant digits.
func (d *BigDecimal) WithPrec(prec uint32) *BigDecimal {
	ctx := decimalCtx
	ctx.Precision = prec
	out := new(BigDecimal)
	ctx.Round(&out.d, &d.d)
	return out.normalize()
}

// Float64 converts to the nearest float64.
func (d *BigDecimal) Float64() (float64, error) {
	f, err := d.d.Float64()
	if err != nil {
		return 0, errors.Overflow(errors.PhaseScalar, d.String(), "float64")
	}
	return f, nil
}

// Int64 converts to int64, truncating any fraction. It fails when the
// integral part does not fit.
func (d *BigDecimal) Int64() (int64, error) {
	var trunc apd.Decimal
	ctx := decimalCtx
	ctx.Rounding = apd.RoundDown
	if _, err := ctx.RoundToIntegralValue(&trunc, &d.d); err != nil {
		return 0, errors.Overflow(errors.PhaseScalar, d.String(), "int64")
	}
	v, err := trunc.Int64()
	if err != nil {
		return 0, errors.Overflow(errors.PhaseScalar, d.String(), "int64")
	}
	return v, nil
}

// BigInt converts to a BigInt, truncating any fraction toward zero.
func (d *BigDecimal) BigInt() *BigInt {
	coeff := d.d.Coeff.MathBigInt()
	out := new(BigInt)
	switch exp := int(d.d.Exponent); {
	case exp >= 0:
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
		out.i.Mul(coeff, scale)
	default:
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-exp)), nil)
		out.i.Quo(coeff, scale)
	}
	if d.d.Negative {
		out.i.Neg(&out.i)
	}
	return out
}

// String renders the value in plain decimal notation.
func (d *BigDecimal) String() string {
	return d.d.Text('f')
}

// MarshalText implements encoding.TextMarshaler.
func (d *BigDecimal) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *BigDecimal) UnmarshalText(text []byte) error {
	parsed, err := NewBigDecimalFromString(string(text))
	if err != nil {
		return err
	}
	d.d.Set(&parsed.d)
	return nil
}

// normalize rounds to the context precision and strips trailing zeros so
// equal values share one representation.
func (d *BigDecimal) normalize() *BigDecimal {
	if d.d.IsZero() {
		d.d.SetInt64(0)
		return d
	}
	decimalCtx.Round(&d.d, &d.d)
	d.d.Reduce(&d.d)
	return d
}
