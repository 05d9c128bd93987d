package document

import "time"

// Type represents the BSON data type of a value
type Type byte

const (
	TypeFloat64   Type = 0x01
	TypeString    Type = 0x02
	TypeDocument  Type = 0x03
	TypeArray     Type = 0x04
	TypeBinary    Type = 0x05
	TypeObjectID  Type = 0x07
	TypeBoolean   Type = 0x08
	TypeDateTime  Type = 0x09
	TypeNull      Type = 0x0A
	TypeInt32     Type = 0x10
	TypeTimestamp Type = 0x11
	TypeInt64     Type = 0x12
)

// String returns the $type alias of the type
func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "bool"
	case TypeInt32:
		return "int"
	case TypeInt64:
		return "long"
	case TypeFloat64:
		return "double"
	case TypeString:
		return "string"
	case TypeBinary:
		return "binData"
	case TypeObjectID:
		return "objectId"
	case TypeArray:
		return "array"
	case TypeDocument:
		return "object"
	case TypeDateTime:
		return "date"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Timestamp is a logical BSON timestamp: seconds since epoch plus an
// ordinal increment within that second
type Timestamp struct {
	Seconds   uint32 `json:"t"`
	Increment uint32 `json:"i"`
}

// TypeOf returns the Type tag for a normalized value
func TypeOf(v interface{}) Type {
	switch v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case int32:
		return TypeInt32
	case int64:
		return TypeInt64
	case float64:
		return TypeFloat64
	case string:
		return TypeString
	case []byte:
		return TypeBinary
	case ObjectID:
		return TypeObjectID
	case time.Time:
		return TypeDateTime
	case Timestamp:
		return TypeTimestamp
	case []interface{}:
		return TypeArray
	case *Document:
		return TypeDocument
	default:
		return TypeNull
	}
}

// TypeByName resolves a $type alias ("string", "long", ...) to a Type
func TypeByName(name string) (Type, bool) {
	for _, t := range []Type{
		TypeFloat64, TypeString, TypeDocument, TypeArray, TypeBinary,
		TypeObjectID, TypeBoolean, TypeDateTime, TypeNull, TypeInt32,
		TypeTimestamp, TypeInt64,
	} {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// IsNumeric reports whether the value is one of the numeric kinds
func IsNumeric(v interface{}) bool {
	switch v.(type) {
	case int32, int64, float64:
		return true
	}
	return false
}

// Normalize converts arbitrary Go values into the canonical in-memory
// representation: int -> int64, float32 -> float64, maps -> *Document,
// array elements normalized recursively. Canonical values pass through.
func Normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, bool, int32, int64, float64, string, ObjectID, time.Time, Timestamp, []byte:
		return val
	case int:
		return int64(val)
	case int16:
		return int64(val)
	case uint:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	case []interface{}:
		arr := make([]interface{}, len(val))
		for i, item := range val {
			arr[i] = Normalize(item)
		}
		return arr
	case map[string]interface{}:
		return FromMap(val)
	case Document:
		d := val
		return &d
	case *Document:
		if val == nil {
			return nil
		}
		return val
	default:
		return nil
	}
}
