package core

import (
	"regexp"
	"strconv"
	"strings"
)

// MapType translates a normalized PostgreSQL base type into the target
// MySQL/MariaDB type string, per spec.md §4.1. It is a total function:
// every input, including types outside the enumerated set, produces a
// valid target type string (falling back to LONGTEXT).
//
// charLen, precision and scale are the catalog-reported
// character_maximum_length / numeric_precision / numeric_scale for the
// column; they may be nil when not applicable to the source type.
func MapType(sourceType string, charLen, precision, scale *int) string {
	base, arg := splitTypeArg(sourceType)

	if strings.HasSuffix(base, "[]") {
		return "JSON"
	}

	switch base {
	case "smallint", "int2":
		return "SMALLINT"
	case "integer", "int", "int4":
		return "INT"
	case "bigint", "int8":
		return "BIGINT"
	case "smallserial", "serial2":
		return "SMALLINT AUTO_INCREMENT"
	case "serial", "serial4":
		return "INT AUTO_INCREMENT"
	case "bigserial", "serial8":
		return "BIGINT AUTO_INCREMENT"
	case "numeric", "decimal":
		// Source precision/scale is intentionally discarded: this corpus's
		// source systems are observed to declare NUMERIC with no explicit
		// scale (catalog scale=0) while actually storing fractional data.
		// A single wide fixed form is the documented, minimum-surprise
		// lossy bound (spec.md §4.1).
		return "DECIMAL(20,10)"
	case "real", "float4":
		return "FLOAT"
	case "double precision", "float8":
		return "DOUBLE"
	case "varchar", "character varying":
		return mapVarchar(charLen, arg)
	case "char", "character", "bpchar":
		return mapChar(charLen, arg)
	case "text":
		return "LONGTEXT"
	case "bytea":
		return "LONGBLOB"
	case "date":
		return "DATE"
	case "time", "time without time zone", "time with time zone", "timetz":
		return "TIME"
	case "timestamp", "timestamp without time zone", "timestamp with time zone", "timestamptz":
		return "DATETIME"
	case "interval":
		return "TIME"
	case "boolean", "bool":
		return "BOOLEAN"
	case "json", "jsonb":
		return "JSON"
	case "uuid":
		return "CHAR(36)"
	default:
		return "LONGTEXT"
	}
}

// mapVarchar implements the VARCHAR(n) -> VARCHAR(n)|LONGTEXT rule.
func mapVarchar(charLen *int, arg string) string {
	n := intArg(charLen, arg)
	if n <= 0 {
		return "LONGTEXT"
	}
	if n <= 65535 {
		return "VARCHAR(" + strconv.Itoa(n) + ")"
	}
	return "LONGTEXT"
}

// mapChar implements the CHAR(n) -> CHAR(n)|VARCHAR(min(n,65535)) rule.
func mapChar(charLen *int, arg string) string {
	n := intArg(charLen, arg)
	if n <= 0 {
		return "CHAR(1)"
	}
	if n <= 255 {
		return "CHAR(" + strconv.Itoa(n) + ")"
	}
	if n > 65535 {
		n = 65535
	}
	return "VARCHAR(" + strconv.Itoa(n) + ")"
}

func intArg(catalogVal *int, arg string) int {
	if catalogVal != nil {
		return *catalogVal
	}
	if arg == "" {
		return 0
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0
	}
	return n
}

var typeArgRe = regexp.MustCompile(`^([a-z ]+?)\s*\(\s*(\d+)\s*\)$`)

// splitTypeArg normalizes a raw PG type name (lower-cased, parenthesized
// length stripped) into its base keyword and, if present, the single
// numeric argument inside the parentheses.
func splitTypeArg(sourceType string) (base, arg string) {
	lower := strings.ToLower(strings.TrimSpace(sourceType))
	if m := typeArgRe.FindStringSubmatch(lower); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}
	return lower, ""
}

var (
	regclassSuffixRe = regexp.MustCompile(`::regclass\s*$`)
	nextvalRe        = regexp.MustCompile(`(?i)^nextval\(`)
	castLiteralRe    = regexp.MustCompile(`^'((?:[^']|'')*)'::[a-zA-Z_][a-zA-Z0-9_. ]*$`)
	bareLiteralRe    = regexp.MustCompile(`^'((?:[^']|'')*)'$`)
	signedNumberRe   = regexp.MustCompile(`^[-+]?\d+(\.\d+)?$`)
)

// TranslateDefault translates a PG-rendered DEFAULT expression into a
// target-acceptable default, or returns ("", false) when the default
// should be dropped entirely (spec.md §4.1, rules checked in order).
func TranslateDefault(raw string) (string, bool) {
	expr := strings.TrimSpace(raw)
	if expr == "" {
		return "", false
	}

	if regclassSuffixRe.MatchString(expr) {
		return "", false
	}
	if nextvalRe.MatchString(expr) {
		return "", false
	}
	if m := castLiteralRe.FindStringSubmatch(expr); m != nil {
		return "'" + strings.ReplaceAll(m[1], "''", "''") + "'", true
	}
	if m := bareLiteralRe.FindStringSubmatch(expr); m != nil {
		return "'" + m[1] + "'", true
	}

	lower := strings.ToLower(expr)
	if lower == "now()" || lower == "current_timestamp" {
		return "CURRENT_TIMESTAMP", true
	}
	if lower == "current_date" {
		return "CURRENT_DATE", true
	}
	if lower == "true" || lower == "false" {
		return strings.ToUpper(lower), true
	}
	if signedNumberRe.MatchString(expr) {
		return expr, true
	}

	return "", false
}

// ClassifyColumn computes the tagged ColumnKind used for closed per-row
// value dispatch (C2, spec.md §9 "dynamic per-row value dispatch").
func ClassifyColumn(sourceType string) ColumnKind {
	base, _ := splitTypeArg(sourceType)
	switch {
	case strings.HasSuffix(base, "[]"):
		return ColumnKindArray
	case base == "boolean" || base == "bool":
		return ColumnKindBoolean
	case base == "json" || base == "jsonb":
		return ColumnKindJSON
	case base == "uuid":
		return ColumnKindUUID
	case base == "bytea":
		return ColumnKindBytea
	case strings.HasPrefix(base, "timestamp"):
		return ColumnKindTimestamp
	case base == "date":
		return ColumnKindDate
	case strings.HasPrefix(base, "time"), base == "interval":
		return ColumnKindTime
	default:
		return ColumnKindOther
	}
}
