package document

import (
	"bytes"
	"time"
)

// typeRank returns the cross-type ordering rank used when values of
// different kinds are compared. Numeric kinds share a rank and compare by
// mathematical value; missing fields are treated as null.
func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case int32, int64, float64:
		return 1
	case string:
		return 2
	case *Document:
		return 3
	case []interface{}:
		return 4
	case []byte:
		return 5
	case ObjectID:
		return 6
	case bool:
		return 7
	case time.Time:
		return 8
	case Timestamp:
		return 9
	default:
		return 10
	}
}

func asFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}

// Compare defines a total order across all value kinds. It is used for
// $min/$max, distinct ordering, sort and the comparison query operators.
func Compare(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 0:
		return 0
	case 1:
		fa, _ := asFloat64(a)
		fb, _ := asFloat64(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case 2:
		sa, sb := a.(string), b.(string)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		default:
			return 0
		}
	case 3:
		return compareDocuments(a.(*Document), b.(*Document))
	case 4:
		return compareArrays(a.([]interface{}), b.([]interface{}))
	case 5:
		return bytes.Compare(a.([]byte), b.([]byte))
	case 6:
		ia, ib := a.(ObjectID), b.(ObjectID)
		return bytes.Compare(ia[:], ib[:])
	case 7:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	case 8:
		ta, tb := a.(time.Time), b.(time.Time)
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		default:
			return 0
		}
	case 9:
		ta, tb := a.(Timestamp), b.(Timestamp)
		if ta.Seconds != tb.Seconds {
			if ta.Seconds < tb.Seconds {
				return -1
			}
			return 1
		}
		if ta.Increment != tb.Increment {
			if ta.Increment < tb.Increment {
				return -1
			}
			return 1
		}
		return 0
	default:
		return 0
	}
}

// compareDocuments compares field by field in insertion order: first by key
// name, then by value. A shorter document that is a prefix of the other
// sorts first.
func compareDocuments(a, b *Document) int {
	ka, kb := a.Keys(), b.Keys()
	n := len(ka)
	if len(kb) < n {
		n = len(kb)
	}
	for i := 0; i < n; i++ {
		if ka[i] != kb[i] {
			if ka[i] < kb[i] {
				return -1
			}
			return 1
		}
		va, _ := a.Get(ka[i])
		vb, _ := b.Get(kb[i])
		if c := Compare(va, vb); c != 0 {
			return c
		}
	}
	switch {
	case len(ka) < len(kb):
		return -1
	case len(ka) > len(kb):
		return 1
	default:
		return 0
	}
}

func compareArrays(a, b []interface{}) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Equals reports deep structural equality. Numeric kinds compare by
// mathematical value, arrays are order-preserving, documents compare as
// key sets regardless of field order. Missing values are passed as nil and
// equal null.
func Equals(a, b interface{}) bool {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return false
	}

	switch ra {
	case 3:
		da, db := a.(*Document), b.(*Document)
		if da.Len() != db.Len() {
			return false
		}
		for _, key := range da.Keys() {
			vb, ok := db.Get(key)
			if !ok {
				return false
			}
			va, _ := da.Get(key)
			if !Equals(va, vb) {
				return false
			}
		}
		return true
	case 4:
		aa, ab := a.([]interface{}), b.([]interface{})
		if len(aa) != len(ab) {
			return false
		}
		for i := range aa {
			if !Equals(aa[i], ab[i]) {
				return false
			}
		}
		return true
	default:
		return Compare(a, b) == 0
	}
}
