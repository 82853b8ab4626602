package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Entity is one materialized row of a domain's root table.
type Entity struct {
	Type   string
	ID     any
	Fields map[string]any
}

// Key identifies the entity across result sets.
func (e Entity) Key() string {
	return e.Type + ":" + fmt.Sprint(e.ID)
}

// Active reports whether the entity's active column holds a truthy value.
// Entities without the column are active.
func (e Entity) Active() bool {
	v, ok := e.Fields["active"]
	if !ok {
		return true
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case int32:
		return x != 0
	case int:
		return x != 0
	case float64:
		return x != 0
	case string:
		switch strings.ToLower(x) {
		case "1", "t", "true", "y", "yes":
			return true
		}
		return false
	default:
		return true
	}
}

// Plain returns the entity as a map of JSON and structpb friendly values:
// type, id and fields.
func (e Entity) Plain() map[string]any {
	fields := make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = plainValue(v)
	}
	return map[string]any{
		"type":   e.Type,
		"id":     plainValue(e.ID),
		"key":    e.Key(),
		"fields": fields,
	}
}

func plainValue(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
