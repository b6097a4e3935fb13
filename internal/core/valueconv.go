package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SentinelEpoch is the value NormalizeTimestamp substitutes for a
// PostgreSQL timestamp that cannot be represented on the target, per
// spec.md §4.1 rule 5 and §8 property 5.
var SentinelEpoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// sentinelMinYear and sentinelMaxYear bound the year range a timestamp
// must fall within to pass through unchanged; anything outside is treated
// as corrupt rather than a genuine historical or far-future date
// (spec.md §4.1 rule 4).
const (
	sentinelMinYear = 1900
	sentinelMaxYear = 2100
)

// NormalizeTimestamp implements the normalization C2 applies to every
// timestamp/timestamptz value read from PostgreSQL (spec.md §4.1 rule 5):
//
//  1. A NULL source value (nil) stays NULL (zero time, isNull=true).
//  2. The value is converted to UTC.
//  3. A value whose year falls outside [1900, 2100] folds to the
//     sentinel.
//  4. Fractional seconds are truncated to microsecond precision, which is
//     both dialects' maximum.
//
// PostgreSQL's "infinity"/"-infinity" values have no case of their own.
func NormalizeTimestamp(v *time.Time) (result time.Time, isNull bool) {
	if v == nil {
		return time.Time{}, true
	}
	t := v.UTC()
	if year := t.Year(); year < sentinelMinYear || year > sentinelMaxYear {
		return SentinelEpoch, false
	}
	return t.Truncate(time.Microsecond), false
}

// ConvertValue converts a single raw value read from PostgreSQL into the
// form the Bulk Writer (C7) should bind as a query parameter for the
// target driver, dispatching on the column's precomputed Kind so no
// per-row type string matching is needed (spec.md §9).
//
// v is nil for a SQL NULL; ConvertValue returns (nil, nil) unchanged in
// that case regardless of kind.
func ConvertValue(kind ColumnKind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch kind {
	case ColumnKindBoolean:
		return convertBoolean(v)
	case ColumnKindUUID:
		return convertUUID(v)
	case ColumnKindBytea:
		return convertBytea(v)
	case ColumnKindTimestamp:
		return convertTimestamp(v)
	case ColumnKindJSON, ColumnKindArray:
		return convertJSONish(v)
	default:
		return v, nil
	}
}

func convertBoolean(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		switch val {
		case "t", "true", "1":
			return int64(1), nil
		case "f", "false", "0":
			return int64(0), nil
		}
		return nil, fmt.Errorf("core: unrecognized boolean literal %q", val)
	default:
		return nil, fmt.Errorf("core: unsupported boolean source type %T", v)
	}
}

// convertUUID renders a UUID value as its canonical lower-case 36-byte
// string form, matching the CHAR(36) target type MapType assigns.
func convertUUID(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return strings.ToLower(val), nil
	case [16]byte:
		return formatUUIDBytes(val[:]), nil
	case []byte:
		if len(val) == 16 {
			return formatUUIDBytes(val), nil
		}
		return string(val), nil
	case fmt.Stringer:
		return strings.ToLower(val.String()), nil
	default:
		return nil, fmt.Errorf("core: unsupported uuid source type %T", v)
	}
}

func formatUUIDBytes(b []byte) string {
	hexStr := hex.EncodeToString(b)
	return fmt.Sprintf("%s-%s-%s-%s-%s", hexStr[0:8], hexStr[8:12], hexStr[12:16], hexStr[16:20], hexStr[20:32])
}

func convertBytea(v any) (any, error) {
	switch val := v.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	default:
		return nil, fmt.Errorf("core: unsupported bytea source type %T", v)
	}
}

func convertTimestamp(v any) (any, error) {
	switch val := v.(type) {
	case time.Time:
		normalized, isNull := NormalizeTimestamp(&val)
		if isNull {
			return nil, nil
		}
		return normalized, nil
	case *time.Time:
		normalized, isNull := NormalizeTimestamp(val)
		if isNull {
			return nil, nil
		}
		return normalized, nil
	default:
		return nil, fmt.Errorf("core: unsupported timestamp source type %T", v)
	}
}

// convertJSONish binds JSON/JSONB and array values as JSON text. A string
// or []byte value is passed through as text unchanged; any other value (a
// JSON document the driver decoded, or an array read as a Go slice) is
// encoded with encoding/json, so {1,2,NULL,4} becomes [1,2,null,4].
func convertJSONish(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("core: encoding json source type %T: %w", v, err)
		}
		return string(b), nil
	}
}
