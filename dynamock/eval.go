package dynamock

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// evaluator resolves operands against one item. Missing attributes and
// comparisons between different types evaluate to false, as they do in
// DynamoDB.
type evaluator struct {
	values map[string]types.AttributeValue
}

func (e *evaluator) eval(cond condition, item map[string]types.AttributeValue) (bool, error) {
	switch c := cond.(type) {
	case andCond:
		ok, err := e.eval(c.left, item)
		if err != nil || !ok {
			return false, err
		}
		return e.eval(c.right, item)

	case orCond:
		ok, err := e.eval(c.left, item)
		if err != nil || ok {
			return ok, err
		}
		return e.eval(c.right, item)

	case notCond:
		ok, err := e.eval(c.cond, item)
		return !ok, err

	case compareCond:
		left, lok, err := e.resolve(c.left, item)
		if err != nil {
			return false, err
		}
		right, rok, err := e.resolve(c.right, item)
		if err != nil || !lok || !rok {
			return false, err
		}
		return compareValues(c.op, left, right), nil

	case betweenCond:
		value, ok, err := e.resolve(c.value, item)
		if err != nil || !ok {
			return false, err
		}
		low, lok, err := e.resolve(c.low, item)
		if err != nil {
			return false, err
		}
		high, hok, err := e.resolve(c.high, item)
		if err != nil || !lok || !hok {
			return false, err
		}
		return compareValues(">=", value, low) && compareValues("<=", value, high), nil

	case inCond:
		value, ok, err := e.resolve(c.value, item)
		if err != nil || !ok {
			return false, err
		}
		for _, choice := range c.choices {
			candidate, ok, err := e.resolve(choice, item)
			if err != nil {
				return false, err
			}
			if ok && compareValues("=", value, candidate) {
				return true, nil
			}
		}
		return false, nil

	case funcCond:
		return e.function(c, item)
	}

	return false, fmt.Errorf("unknown condition %T", cond)
}

func (e *evaluator) function(c funcCond, item map[string]types.AttributeValue) (bool, error) {
	target, exists := lookupPath(item, c.args[0].(pathOperand).path)

	switch c.name {
	case "attribute_exists":
		return exists, nil
	case "attribute_not_exists":
		return !exists, nil
	}

	arg, ok, err := e.resolve(c.args[1], item)
	if err != nil || !ok || !exists {
		return false, err
	}

	switch c.name {
	case "attribute_type":
		name, ok := arg.(*types.AttributeValueMemberS)
		if !ok {
			return false, fmt.Errorf("attribute_type: type operand must be a string")
		}
		return typeName(target) == name.Value, nil

	case "begins_with":
		switch t := target.(type) {
		case *types.AttributeValueMemberS:
			prefix, ok := arg.(*types.AttributeValueMemberS)
			return ok && strings.HasPrefix(t.Value, prefix.Value), nil
		case *types.AttributeValueMemberB:
			prefix, ok := arg.(*types.AttributeValueMemberB)
			return ok && bytes.HasPrefix(t.Value, prefix.Value), nil
		}
		return false, nil

	case "contains":
		switch t := target.(type) {
		case *types.AttributeValueMemberS:
			sub, ok := arg.(*types.AttributeValueMemberS)
			return ok && strings.Contains(t.Value, sub.Value), nil
		case *types.AttributeValueMemberB:
			sub, ok := arg.(*types.AttributeValueMemberB)
			return ok && bytes.Contains(t.Value, sub.Value), nil
		case *types.AttributeValueMemberSS:
			for _, s := range t.Value {
				if compareValues("=", &types.AttributeValueMemberS{Value: s}, arg) {
					return true, nil
				}
			}
		case *types.AttributeValueMemberNS:
			for _, n := range t.Value {
				if compareValues("=", &types.AttributeValueMemberN{Value: n}, arg) {
					return true, nil
				}
			}
		case *types.AttributeValueMemberBS:
			for _, b := range t.Value {
				if compareValues("=", &types.AttributeValueMemberB{Value: b}, arg) {
					return true, nil
				}
			}
		case *types.AttributeValueMemberL:
			for _, v := range t.Value {
				if compareValues("=", v, arg) {
					return true, nil
				}
			}
		}
		return false, nil
	}

	return false, fmt.Errorf("unsupported function %s", c.name)
}

func (e *evaluator) resolve(op operand, item map[string]types.AttributeValue) (types.AttributeValue, bool, error) {
	switch o := op.(type) {
	case valueOperand:
		v, ok := e.values[o.alias]
		if !ok {
			return nil, false, fmt.Errorf("undefined expression attribute value %s", o.alias)
		}
		return v, true, nil

	case pathOperand:
		v, ok := lookupPath(item, o.path)
		return v, ok, nil

	case sizeOperand:
		v, ok := lookupPath(item, o.path)
		if !ok {
			return nil, false, nil
		}
		n, ok := sizeOf(v)
		if !ok {
			return nil, false, nil
		}
		return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}, true, nil
	}

	return nil, false, fmt.Errorf("unknown operand %T", op)
}

func lookupPath(item map[string]types.AttributeValue, path docPath) (types.AttributeValue, bool) {
	var current types.AttributeValue = &types.AttributeValueMemberM{Value: item}
	for _, elem := range path {
		switch c := current.(type) {
		case *types.AttributeValueMemberM:
			if elem.list {
				return nil, false
			}
			next, ok := c.Value[elem.name]
			if !ok {
				return nil, false
			}
			current = next
		case *types.AttributeValueMemberL:
			if !elem.list || elem.index >= len(c.Value) {
				return nil, false
			}
			current = c.Value[elem.index]
		default:
			return nil, false
		}
	}
	return current, current != nil
}

func sizeOf(v types.AttributeValue) (int, bool) {
	switch t := v.(type) {
	case *types.AttributeValueMemberS:
		return utf8.RuneCountInString(t.Value), true
	case *types.AttributeValueMemberB:
		return len(t.Value), true
	case *types.AttributeValueMemberSS:
		return len(t.Value), true
	case *types.AttributeValueMemberNS:
		return len(t.Value), true
	case *types.AttributeValueMemberBS:
		return len(t.Value), true
	case *types.AttributeValueMemberM:
		return len(t.Value), true
	case *types.AttributeValueMemberL:
		return len(t.Value), true
	}
	return 0, false
}

func typeName(v types.AttributeValue) string {
	switch v.(type) {
	case *types.AttributeValueMemberS:
		return "S"
	case *types.AttributeValueMemberN:
		return "N"
	case *types.AttributeValueMemberB:
		return "B"
	case *types.AttributeValueMemberBOOL:
		return "BOOL"
	case *types.AttributeValueMemberNULL:
		return "NULL"
	case *types.AttributeValueMemberM:
		return "M"
	case *types.AttributeValueMemberL:
		return "L"
	case *types.AttributeValueMemberSS:
		return "SS"
	case *types.AttributeValueMemberNS:
		return "NS"
	case *types.AttributeValueMemberBS:
		return "BS"
	}
	return ""
}

// compareValues applies a comparator. Ordering is defined for S, N and B;
// equality for every type.
func compareValues(op string, left, right types.AttributeValue) bool {
	if op == "=" || op == "<>" {
		eq := equalValues(left, right)
		if op == "=" {
			return eq
		}
		return !eq
	}

	cmp, ok := orderValues(left, right)
	if !ok {
		return false
	}
	switch op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

// orderValues compares two scalars of the same ordered type.
func orderValues(left, right types.AttributeValue) (int, bool) {
	switch l := left.(type) {
	case *types.AttributeValueMemberS:
		r, ok := right.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return strings.Compare(l.Value, r.Value), true
	case *types.AttributeValueMemberN:
		r, ok := right.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		return compareNumbers(l.Value, r.Value)
	case *types.AttributeValueMemberB:
		r, ok := right.(*types.AttributeValueMemberB)
		if !ok {
			return 0, false
		}
		return bytes.Compare(l.Value, r.Value), true
	}
	return 0, false
}

func compareNumbers(a, b string) (int, bool) {
	x, _, err := big.ParseFloat(a, 10, 128, big.ToNearestEven)
	if err != nil {
		return 0, false
	}
	y, _, err := big.ParseFloat(b, 10, 128, big.ToNearestEven)
	if err != nil {
		return 0, false
	}
	return x.Cmp(y), true
}

func equalValues(left, right types.AttributeValue) bool {
	if typeName(left) != typeName(right) {
		return false
	}

	switch l := left.(type) {
	case *types.AttributeValueMemberS, *types.AttributeValueMemberN, *types.AttributeValueMemberB:
		cmp, ok := orderValues(left, right)
		return ok && cmp == 0
	case *types.AttributeValueMemberBOOL:
		return l.Value == right.(*types.AttributeValueMemberBOOL).Value
	case *types.AttributeValueMemberNULL:
		return true
	case *types.AttributeValueMemberM:
		r := right.(*types.AttributeValueMemberM)
		if len(l.Value) != len(r.Value) {
			return false
		}
		for k, lv := range l.Value {
			rv, ok := r.Value[k]
			if !ok || !equalValues(lv, rv) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberL:
		r := right.(*types.AttributeValueMemberL)
		if len(l.Value) != len(r.Value) {
			return false
		}
		for i := range l.Value {
			if !equalValues(l.Value[i], r.Value[i]) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberSS:
		return sameElements(l.Value, right.(*types.AttributeValueMemberSS).Value, func(s string) string { return s })
	case *types.AttributeValueMemberNS:
		return sameElements(l.Value, right.(*types.AttributeValueMemberNS).Value, canonicalNumber)
	case *types.AttributeValueMemberBS:
		return sameElements(l.Value, right.(*types.AttributeValueMemberBS).Value, func(b []byte) string { return string(b) })
	}
	return false
}

func sameElements[T any](a, b []T, key func(T) string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[key(v)]++
	}
	for _, v := range b {
		k := key(v)
		if seen[k] == 0 {
			return false
		}
		seen[k]--
	}
	return true
}

func canonicalNumber(s string) string {
	f, _, err := big.ParseFloat(s, 10, 128, big.ToNearestEven)
	if err != nil {
		return s
	}
	return f.Text('g', -1)
}
