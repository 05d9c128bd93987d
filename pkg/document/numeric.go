package document

import (
	"fmt"
	"math"
)

// AddNumbers adds two numeric values with type promotion: int32 widens to
// int64 on overflow, int64 overflows to float64, any float64 operand makes
// the result float64. Non-numeric operands are an error.
func AddNumbers(a, b interface{}) (interface{}, error) {
	return combineNumbers(a, b, "add",
		func(x, y int64) (int64, bool) {
			sum := x + y
			if (x > 0 && y > 0 && sum < 0) || (x < 0 && y < 0 && sum >= 0) {
				return 0, false
			}
			return sum, true
		},
		func(x, y float64) float64 { return x + y })
}

// MultiplyNumbers multiplies two numeric values with the same promotion
// rules as AddNumbers
func MultiplyNumbers(a, b interface{}) (interface{}, error) {
	return combineNumbers(a, b, "multiply",
		func(x, y int64) (int64, bool) {
			if x == 0 || y == 0 {
				return 0, true
			}
			product := x * y
			if product/y != x {
				return 0, false
			}
			return product, true
		},
		func(x, y float64) float64 { return x * y })
}

func combineNumbers(a, b interface{}, verb string,
	intOp func(x, y int64) (int64, bool),
	floatOp func(x, y float64) float64) (interface{}, error) {

	if !IsNumeric(a) {
		return nil, fmt.Errorf("cannot %s value '%v'", verb, a)
	}
	if !IsNumeric(b) {
		return nil, fmt.Errorf("cannot %s with non-numeric value: %v", verb, b)
	}

	_, aFloat := a.(float64)
	_, bFloat := b.(float64)
	if aFloat || bFloat {
		fa, _ := asFloat64(a)
		fb, _ := asFloat64(b)
		return floatOp(fa, fb), nil
	}

	ia := asInt64(a)
	ib := asInt64(b)
	result, ok := intOp(ia, ib)
	if !ok {
		// int64 overflow falls back to double
		fa, _ := asFloat64(a)
		fb, _ := asFloat64(b)
		return floatOp(fa, fb), nil
	}

	_, a32 := a.(int32)
	_, b32 := b.(int32)
	if a32 && b32 {
		if result >= math.MinInt32 && result <= math.MaxInt32 {
			return int32(result), nil
		}
		return result, nil
	}
	return result, nil
}

func asInt64(v interface{}) int64 {
	switch val := v.(type) {
	case int32:
		return int64(val)
	case int64:
		return val
	default:
		return 0
	}
}
