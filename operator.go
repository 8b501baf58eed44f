package dynafield

import "fmt"

// Operator is a comparison operator usable in dictionary filters.
type Operator int

const (
	Equal Operator = iota + 1
	NotEqual
	LessThan
	LessThanEqual
	GreaterThan
	GreaterThanEqual
)

var operatorSymbols = map[Operator]string{
	Equal:            "==",
	NotEqual:         "!=",
	LessThan:         "<",
	LessThanEqual:    "<=",
	GreaterThan:      ">",
	GreaterThanEqual: ">=",
}

func (op Operator) String() string {
	if s, ok := operatorSymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// ParseOperator parses a comparison symbol. Both "==" and "=" mean [Equal];
// both "!=" and "<>" mean [NotEqual].
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "==", "=":
		return Equal, nil
	case "!=", "<>":
		return NotEqual, nil
	case "<":
		return LessThan, nil
	case "<=":
		return LessThanEqual, nil
	case ">":
		return GreaterThan, nil
	case ">=":
		return GreaterThanEqual, nil
	}
	return 0, &BadFilterError{Op: s, Reason: "unknown operator"}
}
