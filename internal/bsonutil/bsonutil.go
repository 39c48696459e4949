// Package bsonutil provides small helpers for working with raw BSON values.
package bsonutil

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ConvertToBool coerces a raw value into a bool the way drivers do for
// option fields: booleans pass through, numerics are true when non-zero.
// The second return reports whether the value was convertible.
func ConvertToBool(v bson.RawValue) (bool, bool) {
	switch v.Type {
	case bsontype.Boolean:
		b, ok := v.BooleanOK()
		return b, ok
	case bsontype.Int32:
		i, ok := v.Int32OK()
		return i != 0, ok
	case bsontype.Int64:
		i, ok := v.Int64OK()
		return i != 0, ok
	case bsontype.Double:
		f, ok := v.DoubleOK()
		return f != 0, ok
	default:
		return false, false
	}
}
