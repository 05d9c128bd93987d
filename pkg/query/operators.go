package query

// Operator represents a query operator
type Operator string

const (
	// Comparison operators
	OpEqual              Operator = "$eq"
	OpNotEqual           Operator = "$ne"
	OpGreaterThan        Operator = "$gt"
	OpGreaterThanOrEqual Operator = "$gte"
	OpLessThan           Operator = "$lt"
	OpLessThanOrEqual    Operator = "$lte"
	OpIn                 Operator = "$in"
	OpNotIn              Operator = "$nin"

	// Logical operators
	OpAnd Operator = "$and"
	OpOr  Operator = "$or"
	OpNor Operator = "$nor"
	OpNot Operator = "$not"

	// Element operators
	OpExists Operator = "$exists"
	OpType   Operator = "$type"

	// Evaluation operators
	OpRegex   Operator = "$regex"
	OpOptions Operator = "$options"
	OpMod     Operator = "$mod"

	// Array operators
	OpAll       Operator = "$all"
	OpElemMatch Operator = "$elemMatch"
	OpSize      Operator = "$size"
)
