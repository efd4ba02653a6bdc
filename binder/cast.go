package binder

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/lotuserr"
)

var uuidHexLayout = [...]int{8, 4, 4, 4, 12}

// Cast converts a raw string value to the Go value passed to the driver as a bound
// parameter, per the type-casting rules in spec.md §4.4. elementType is only
// consulted when t == TypeArray.
func Cast(t VarType, raw string, dialectName config.Dialect, elementType VarType) (any, *lotuserr.Error) {
	switch t {
	case TypeUUID:
		return castUUID(raw)
	case TypeInteger:
		return castInteger(raw)
	case TypeNumber:
		return castNumber(raw)
	case TypeDate:
		return castDate(raw)
	case TypeTime:
		return castTime(raw)
	case TypeDateTime:
		return castDateTime(raw)
	case TypeBoolean:
		return castBoolean(raw, dialectName)
	case TypeJSON:
		return castJSON(raw)
	case TypeArray:
		if dialectName != config.DialectPostgres {
			return nil, lotuserr.InvalidValue("", "array", raw, "array variables are only supported on PostgreSQL")
		}
		return castArray(raw, elementType, dialectName)
	case TypeText:
		return raw, nil
	default:
		return raw, nil
	}
}

func castUUID(raw string) (any, *lotuserr.Error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !isCanonicalUUID(s) {
		return nil, lotuserr.InvalidValue("", "uuid", raw, "expected 8-4-4-4-12 hex form")
	}
	return s, nil
}

func isCanonicalUUID(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) != len(uuidHexLayout) {
		return false
	}
	for i, p := range parts {
		if len(p) != uuidHexLayout[i] {
			return false
		}
		if _, err := hex.DecodeString(p); err != nil {
			return false
		}
	}
	return true
}

func castInteger(raw string) (any, *lotuserr.Error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, lotuserr.InvalidValue("", "integer", raw, "not a valid integer")
	}
	return n, nil
}

func castNumber(raw string) (any, *lotuserr.Error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, lotuserr.InvalidValue("", "number", raw, "not a valid number")
	}
	return n, nil
}

func castDate(raw string) (any, *lotuserr.Error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return nil, lotuserr.InvalidValue("", "date", raw, "expected ISO-8601 date (YYYY-MM-DD)")
	}
	return t, nil
}

func castTime(raw string) (any, *lotuserr.Error) {
	s := strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, lotuserr.InvalidValue("", "time", raw, "expected ISO-8601 time (HH:MM:SS)")
}

func castDateTime(raw string) (any, *lotuserr.Error) {
	s := strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, lotuserr.InvalidValue("", "datetime", raw, "expected ISO-8601 datetime")
}

func castBoolean(raw string, dialectName config.Dialect) (any, *lotuserr.Error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1", "on":
		if dialectName == config.DialectSQLite {
			return int64(1), nil
		}
		return true, nil
	case "false", "no", "0", "off":
		if dialectName == config.DialectSQLite {
			return int64(0), nil
		}
		return false, nil
	default:
		return nil, lotuserr.InvalidValue("", "boolean", raw, "expected true/false/yes/no/1/0/on/off")
	}
}

func castJSON(raw string) (any, *lotuserr.Error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		// Not already JSON text (e.g. a bare scalar from a form field) — serialize it
		// as a JSON string instead of rejecting it outright.
		encoded, marshalErr := json.Marshal(raw)
		if marshalErr != nil {
			return nil, lotuserr.InvalidValue("", "json", raw, "could not serialize value as JSON")
		}
		return string(encoded), nil
	}
	return raw, nil
}

func castArray(raw string, elementType VarType, dialectName config.Dialect) (any, *lotuserr.Error) {
	var elems []string
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		var generic []any
		if err := json.Unmarshal([]byte(trimmed), &generic); err != nil {
			return nil, lotuserr.InvalidValue("", "array", raw, "not a valid JSON array")
		}
		for _, e := range generic {
			elems = append(elems, toRawString(e))
		}
	} else if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		// PostgreSQL native array text format: {a,b,c}
		elems = strings.Split(strings.Trim(trimmed, "{}"), ",")
	} else {
		return nil, lotuserr.InvalidValue("", "array", raw, "expected a JSON array or Postgres array literal")
	}

	out := make([]any, 0, len(elems))
	for _, e := range elems {
		v, err := Cast(elementType, strings.TrimSpace(e), dialectName, "")
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func toRawString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
