package sqlite

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm/schema"
)

func init() {
	schema.RegisterSerializer("rfc3339", rfc3339Serializer{})
}

// rfc3339Serializer stores time.Time fields as RFC 3339 text including the
// UTC offset, so a stored instant is never ambiguous.
type rfc3339Serializer struct{}

// Scan implements schema.SerializerInterface.
func (rfc3339Serializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	var raw string
	switch v := dbValue.(type) {
	case nil:
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case time.Time:
		return field.Set(ctx, dst, v)
	default:
		return fmt.Errorf("unsupported type %T for %s", dbValue, field.Name)
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("parse %s %q: %w", field.Name, raw, err)
	}
	return field.Set(ctx, dst, t)
}

// Value implements schema.SerializerValuerInterface.
func (rfc3339Serializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	switch v := fieldValue.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.Format(time.RFC3339Nano), nil
	default:
		return nil, fmt.Errorf("unsupported type %T for %s", fieldValue, field.Name)
	}
}
