// Package canonical defines the engine-neutral value and table types that
// both sides of a comparison are normalized into. Keeping the type set small
// (integer, decimal, text, boolean, date/time, null) is what makes comparing
// results from two different SQL engines type-safe.
package canonical

import (
	"fmt"
	"math/big"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
)

// Kind identifies the canonical type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindDecimal
	KindText
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindText:
		return "text"
	case KindBool:
		return "boolean"
	case KindTime:
		return "datetime"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Granularity is the declared precision of a date/time value. Two datetime
// values of differing granularity are never considered equal; the mismatch is
// surfaced to the caller instead of silently truncating one side.
type Granularity int

const (
	GranularityNone Granularity = iota
	GranularityDay
	GranularitySecond
)

func (g Granularity) String() string {
	switch g {
	case GranularityDay:
		return "day"
	case GranularitySecond:
		return "second"
	}
	return "none"
}

// DecimalPrecision is the number of significant digits all canonical decimals
// are rounded to. A fixed internal precision avoids engine-specific float
// representation surprises leaking into comparisons.
const DecimalPrecision = 15

// DecimalContext is the apd context used for all canonical decimal arithmetic.
var DecimalContext = apd.BaseContext.WithPrecision(DecimalPrecision)

// Value is a single canonical value. The zero Value is canonical null.
type Value struct {
	kind Kind

	i    int64
	dec  *apd.Decimal
	s    string
	b    bool
	t    time.Time
	gran Granularity
}

// Null is the canonical null value. Null is a distinct third state in every
// comparison; it is never coerced into zero, the empty string or NaN.
var Null = Value{kind: KindNull}

func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

func Text(s string) Value {
	return Value{kind: KindText, s: s}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Decimal wraps d as a canonical decimal, rounding to DecimalPrecision.
func Decimal(d *apd.Decimal) Value {
	rounded := new(apd.Decimal)
	if _, err := DecimalContext.Round(rounded, d); err != nil {
		// Rounding a finite decimal to a wider-or-equal precision cannot fail;
		// keep the original on the impossible path.
		rounded.Set(d)
	}
	return Value{kind: KindDecimal, dec: rounded}
}

// DecimalFromString parses s as a canonical decimal.
func DecimalFromString(s string) (Value, error) {
	d, _, err := DecimalContext.NewFromString(s)
	if err != nil {
		return Null, errors.Wrapf(err, "cannot parse %q as decimal", s)
	}
	return Value{kind: KindDecimal, dec: d}, nil
}

// DecimalFromFloat converts a driver float into a canonical decimal.
func DecimalFromFloat(f float64) (Value, error) {
	d := new(apd.Decimal)
	if _, err := d.SetFloat64(f); err != nil {
		return Null, errors.Wrapf(err, "cannot represent %v as decimal", f)
	}
	return Decimal(d), nil
}

// DecimalFromBigInt converts a coefficient/exponent pair (the shape numeric
// wire values arrive in) into a canonical decimal.
func DecimalFromBigInt(coeff *big.Int, exp int32) Value {
	var c apd.BigInt
	c.SetMathBigInt(coeff)
	return Decimal(apd.NewWithBigInt(&c, exp))
}

// Time returns a canonical date/time value truncated to the given
// granularity. All canonical times are timezone-naive (UTC).
func Time(t time.Time, gran Granularity) Value {
	t = t.UTC()
	switch gran {
	case GranularityDay:
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case GranularitySecond:
		t = t.Truncate(time.Second)
	}
	return Value{kind: KindTime, t: t, gran: gran}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsNumeric reports whether the value participates in tolerance-based
// comparison.
func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindDecimal
}

// Numeric returns the value as a decimal for tolerance arithmetic.
func (v Value) Numeric() (*apd.Decimal, bool) {
	switch v.kind {
	case KindInt:
		return apd.New(v.i, 0), true
	case KindDecimal:
		return v.dec, true
	}
	return nil, false
}

// Int64 returns the value as an int64 when it is an integral numeric.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindDecimal:
		i, err := v.dec.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

func (v Value) Granularity() Granularity {
	return v.gran
}

// Equal reports exact canonical equality. Integers and decimals compare
// numerically across kinds so that a bigint column on one engine matches a
// numeric column on the other.
func (v Value) Equal(o Value) bool {
	if v.kind == KindNull || o.kind == KindNull {
		return v.kind == o.kind
	}
	if v.IsNumeric() && o.IsNumeric() {
		a, _ := v.Numeric()
		b, _ := o.Numeric()
		return a.Cmp(b) == 0
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.gran == o.gran && v.t.Equal(o.t)
	}
	return false
}

// String renders the value for reports and explain records.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindDecimal:
		return v.dec.Text('f')
	case KindText:
		return v.s
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindTime:
		if v.gran == GranularityDay {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprintf("<%s>", v.kind)
}
