package normalize

import (
	"strconv"
	"time"

	"github.com/qvet/qvet/canonical"
)

// convertMySQLValue coerces a database/sql-scanned mysql value. The driver
// hands most non-integer values over as []byte, so the column's reported type
// name drives the coercion.
func convertMySQLValue(val any, typeName string) (canonical.Value, error) {
	if val == nil {
		return canonical.Null, nil
	}
	switch v := val.(type) {
	case bool:
		return canonical.Bool(v), nil
	case int64:
		return canonical.Int(v), nil
	case float32:
		return canonical.DecimalFromFloat(float64(v))
	case float64:
		return canonical.DecimalFromFloat(v)
	case time.Time:
		if typeName == "DATE" {
			return canonical.Time(v, canonical.GranularityDay), nil
		}
		return canonical.Time(v, canonical.GranularitySecond), nil
	case string:
		return convertMySQLText(v, typeName)
	case []byte:
		return convertMySQLText(string(v), typeName)
	}
	return canonical.Null, normalizationErrorf(
		"unsupported mysql value type %T (%s)", val, typeName,
	)
}

func convertMySQLText(s string, typeName string) (canonical.Value, error) {
	switch typeName {
	case "DECIMAL", "NEWDECIMAL":
		return canonical.DecimalFromString(s)
	case "DOUBLE", "FLOAT":
		return canonical.DecimalFromString(s)
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT", "YEAR":
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return canonical.Null, normalizationErrorf("cannot parse %q as %s", s, typeName)
		}
		return canonical.Int(i), nil
	case "DATE":
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return canonical.Null, normalizationErrorf("cannot parse %q as DATE", s)
		}
		return canonical.Time(t, canonical.GranularityDay), nil
	case "DATETIME", "TIMESTAMP":
		t, err := time.Parse("2006-01-02 15:04:05.999999", s)
		if err != nil {
			return canonical.Null, normalizationErrorf("cannot parse %q as %s", s, typeName)
		}
		return canonical.Time(t, canonical.GranularitySecond), nil
	}
	return canonical.Text(s), nil
}
