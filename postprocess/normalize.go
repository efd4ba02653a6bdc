package postprocess

import (
	"time"

	"github.com/google/uuid"
)

// Normalize converts a raw driver value into an export-ready form: times render as
// ISO-8601, and 16-byte values that look like binary UUIDs (not printable ASCII)
// render as canonical dashed strings via google/uuid. Generalized from the teacher's
// convertValue/formatUUID pair in internal/api/sql_handler.go, which handled this only
// for the pgx [16]byte UUID representation; here it also covers the plain []byte form
// some drivers use.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return formatTime(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case []byte:
		if len(val) == 16 && !looksPrintable(val) {
			return uuid.UUID(val).String()
		}
		return string(val)
	default:
		return v
	}
}

// formatTime renders a value at exactly midnight (including the zero time) as
// YYYY-MM-DD and anything with a time-of-day component as full RFC3339.
func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

func looksPrintable(b []byte) bool {
	for _, c := range b {
		if c < 32 || c > 126 {
			return false
		}
	}
	return true
}
