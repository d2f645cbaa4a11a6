package ledger

import (
	"time"
)

// Reference is the normalized shape of a relational field. The source
// returns these sometimes as a bare id, sometimes as an [id, label] pair;
// normalization happens here, at the boundary, so business logic never
// branches on the runtime shape.
type Reference struct {
	ID          int64
	DisplayName string
}

// Zero reports whether the reference points nowhere.
func (r Reference) Zero() bool { return r.ID == 0 }

// AsReference normalizes a relational field value.
func AsReference(v any) Reference {
	switch t := v.(type) {
	case nil:
		return Reference{}
	case Reference:
		return t
	case []any:
		ref := Reference{}
		if len(t) > 0 {
			ref.ID = AsInt64(t[0])
		}
		if len(t) > 1 {
			ref.DisplayName = AsString(t[1])
		}
		return ref
	default:
		return Reference{ID: AsInt64(v)}
	}
}

// AsInt64 decodes an integer field.
func AsInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

// AsFloat decodes a numeric field.
func AsFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return 0
	}
}

// AsString decodes a text field. The source encodes absent text as false.
func AsString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// AsDate decodes a date field; the zero time marks absence.
func AsDate(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if t == "" {
			return time.Time{}
		}
		parsed, err := time.Parse("2006-01-02", t)
		if err != nil {
			return time.Time{}
		}
		return parsed
	default:
		return time.Time{}
	}
}
