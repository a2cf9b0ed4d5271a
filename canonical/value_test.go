package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) Value {
	t.Helper()
	v, err := DecimalFromString(s)
	require.NoError(t, err)
	return v
}

func TestValueEqual(t *testing.T) {
	ts := time.Date(2023, 6, 1, 12, 30, 45, 0, time.UTC)

	for _, tc := range []struct {
		desc     string
		a        Value
		b        Value
		expected bool
	}{
		{desc: "null equals null", a: Null, b: Null, expected: true},
		{desc: "null never equals zero", a: Null, b: Int(0), expected: false},
		{desc: "null never equals empty string", a: Null, b: Text(""), expected: false},
		{desc: "integers", a: Int(42), b: Int(42), expected: true},
		{desc: "number never equals its text form", a: Int(100), b: Text("100"), expected: false},
		{desc: "text case sensitive", a: Text("abc"), b: Text("ABC"), expected: false},
		{desc: "bools", a: Bool(true), b: Bool(true), expected: true},
		{
			desc:     "same instant same granularity",
			a:        Time(ts, GranularitySecond),
			b:        Time(ts, GranularitySecond),
			expected: true,
		},
		{
			desc:     "same instant different granularity",
			a:        Time(ts, GranularitySecond),
			b:        Time(ts, GranularityDay),
			expected: false,
		},
		{
			desc:     "day granularity drops time of day",
			a:        Time(ts, GranularityDay),
			b:        Time(ts.Add(3*time.Hour), GranularityDay),
			expected: true,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.a.Equal(tc.b))
			require.Equal(t, tc.expected, tc.b.Equal(tc.a))
		})
	}
}

func TestValueEqualCrossNumeric(t *testing.T) {
	require.True(t, Int(100).Equal(mustDecimal(t, "100.00")))
	require.True(t, mustDecimal(t, "100.00").Equal(Int(100)))
	require.False(t, Int(100).Equal(mustDecimal(t, "100.01")))
}

func TestDecimalPrecisionRounding(t *testing.T) {
	a := mustDecimal(t, "1.234567890123456789")
	b := mustDecimal(t, "1.23456789012346")
	require.True(t, a.Equal(b), "expected %s to round to %s", a, b)
}

func TestValueString(t *testing.T) {
	ts := time.Date(2023, 6, 1, 12, 30, 45, 123456789, time.UTC)

	require.Equal(t, "NULL", Null.String())
	require.Equal(t, "42", Int(42).String())
	require.Equal(t, "50.50", mustDecimal(t, "50.50").String())
	require.Equal(t, "true", Bool(true).String())
	require.Equal(t, "2023-06-01 12:30:45", Time(ts, GranularitySecond).String())
	require.Equal(t, "2023-06-01", Time(ts, GranularityDay).String())
}
