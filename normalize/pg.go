package normalize

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/oid"
	"github.com/qvet/qvet/canonical"
)

// convertPGValue coerces a pgx-decoded value. The OID disambiguates values
// that arrive as the same Go type, e.g. DATE and TIMESTAMP both decode to
// time.Time but carry different canonical granularity.
func convertPGValue(val any, typ oid.Oid) (canonical.Value, error) {
	if val == nil {
		return canonical.Null, nil
	}
	switch v := val.(type) {
	case bool:
		return canonical.Bool(v), nil
	case string:
		return canonical.Text(v), nil
	case int16:
		return canonical.Int(int64(v)), nil
	case int32:
		return canonical.Int(int64(v)), nil
	case int64:
		return canonical.Int(v), nil
	case float32:
		return canonical.DecimalFromFloat(float64(v))
	case float64:
		return canonical.DecimalFromFloat(v)
	case pgtype.Numeric:
		if !v.Valid {
			return canonical.Null, nil
		}
		if v.NaN || v.InfinityModifier != pgtype.Finite {
			return canonical.Null, normalizationErrorf("non-finite numeric value")
		}
		return canonical.DecimalFromBigInt(v.Int, v.Exp), nil
	case time.Time:
		if typ == oid.T_date {
			return canonical.Time(v, canonical.GranularityDay), nil
		}
		return canonical.Time(v, canonical.GranularitySecond), nil
	case [16]byte:
		// UUID.
		return canonical.Text(fmt.Sprintf(
			"%x-%x-%x-%x-%x", v[0:4], v[4:6], v[6:8], v[8:10], v[10:16],
		)), nil
	case []byte:
		if typ == oid.T_bytea {
			return canonical.Text(fmt.Sprintf("\\x%x", v)), nil
		}
		return canonical.Text(string(v)), nil
	}
	return canonical.Null, normalizationErrorf(
		"unsupported postgres value type %T (OID %d)", val, typ,
	)
}
