package models

type Operator string

const (
	OperatorEqual          Operator = "="
	OperatorNotEqual       Operator = "!="
	OperatorGreaterThan    Operator = ">"
	OperatorLessThan       Operator = "<"
	OperatorGreaterOrEqual Operator = ">="
	OperatorLessOrEqual    Operator = "<="
	OperatorContains       Operator = "contains"
	OperatorStartsWith     Operator = "startsWith"
	OperatorIsEmpty        Operator = "isEmpty"
	OperatorIsNotEmpty     Operator = "isNotEmpty"
)

// Operators lists every operator a condition may use.
func Operators() []Operator {
	return []Operator{
		OperatorEqual,
		OperatorNotEqual,
		OperatorGreaterThan,
		OperatorLessThan,
		OperatorGreaterOrEqual,
		OperatorLessOrEqual,
		OperatorContains,
		OperatorStartsWith,
		OperatorIsEmpty,
		OperatorIsNotEmpty,
	}
}

func (o Operator) Valid() bool {
	for _, known := range Operators() {
		if o == known {
			return true
		}
	}

	return false
}

// Numeric reports whether the operator compares operands as numbers.
func (o Operator) Numeric() bool {
	switch o {
	case OperatorGreaterThan, OperatorLessThan, OperatorGreaterOrEqual, OperatorLessOrEqual:
		return true
	default:
		return false
	}
}

// Unary reports whether the operator ignores the condition value.
func (o Operator) Unary() bool {
	return o == OperatorIsEmpty || o == OperatorIsNotEmpty
}
