package compare

import (
	"github.com/cockroachdb/apd/v3"
	"github.com/qvet/qvet/canonical"
)

// epsilon is the absolute fallback denominator for relative tolerance when
// both values are at or near zero.
var epsilon = apd.New(1, -9)

// WithinTolerance reports whether target is an acceptable rendition of
// source. Non-numeric canonical values require exact equality. Numerics pass
// when |source - target| / max(|source|, |target|, epsilon) <= tolerance;
// the boundary is inclusive, so a relative difference of exactly tolerance
// still passes, and the decision is symmetric in its arguments. Null is a
// distinct third state: null only ever matches null, regardless of
// tolerance.
func WithinTolerance(source, target canonical.Value, tolerance float64) bool {
	if source.IsNull() || target.IsNull() {
		return source.IsNull() && target.IsNull()
	}
	if !source.IsNumeric() || !target.IsNumeric() {
		return source.Equal(target)
	}

	s, _ := source.Numeric()
	t, _ := target.Numeric()
	if s.Cmp(t) == 0 {
		return true
	}
	if tolerance <= 0 {
		return false
	}

	ctx := canonical.DecimalContext
	var diff, denom, absT, ratio, tol apd.Decimal
	if _, err := ctx.Sub(&diff, s, t); err != nil {
		return false
	}
	if _, err := ctx.Abs(&diff, &diff); err != nil {
		return false
	}
	if _, err := ctx.Abs(&denom, s); err != nil {
		return false
	}
	if _, err := ctx.Abs(&absT, t); err != nil {
		return false
	}
	if denom.Cmp(&absT) < 0 {
		denom.Set(&absT)
	}
	if denom.Cmp(epsilon) < 0 {
		denom.Set(epsilon)
	}
	if _, err := ctx.Quo(&ratio, &diff, &denom); err != nil {
		return false
	}
	if _, err := tol.SetFloat64(tolerance); err != nil {
		return false
	}
	return ratio.Cmp(&tol) <= 0
}

// Delta renders the absolute numeric difference between two values,
// reporting false when either side is not numeric.
func Delta(source, target canonical.Value) (string, bool) {
	s, ok := source.Numeric()
	if !ok {
		return "", false
	}
	t, ok := target.Numeric()
	if !ok {
		return "", false
	}
	var diff apd.Decimal
	if _, err := canonical.DecimalContext.Sub(&diff, s, t); err != nil {
		return "", false
	}
	if _, err := canonical.DecimalContext.Abs(&diff, &diff); err != nil {
		return "", false
	}
	return diff.Text('f'), true
}
