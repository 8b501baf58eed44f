package dynafield

import (
	"math/big"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// encodeValue converts a Go value into the attribute value stored for a
// dictionary entry. Anything attributevalue can marshal is accepted.
func encodeValue(v any) (types.AttributeValue, error) {
	if av, ok := v.(types.AttributeValue); ok {
		return av, nil
	}
	return attributevalue.Marshal(v)
}

// decodeValue converts a stored attribute value back into a plain Go value.
// Numbers decode to int64 when they are integral, so that counters written as
// ints read back as integers. See decodeNumber.
func decodeValue(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return decodeNumber(v.Value)
	case *types.AttributeValueMemberBOOL:
		return v.Value
	case *types.AttributeValueMemberB:
		return v.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberM:
		out := make(map[string]any, len(v.Value))
		for k, elem := range v.Value {
			out[k] = decodeValue(elem)
		}
		return out
	case *types.AttributeValueMemberL:
		out := make([]any, len(v.Value))
		for i, elem := range v.Value {
			out[i] = decodeValue(elem)
		}
		return out
	case *types.AttributeValueMemberSS:
		return append([]string(nil), v.Value...)
	case *types.AttributeValueMemberNS:
		out := make([]any, len(v.Value))
		for i, n := range v.Value {
			out[i] = decodeNumber(n)
		}
		return out
	case *types.AttributeValueMemberBS:
		return append([][]byte(nil), v.Value...)
	default:
		return nil
	}
}

// decodeNumber picks the first of int64, uint64 and float64 that holds s
// exactly. Numbers none of them can hold stay an attributevalue.Number.
func decodeNumber(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && exactFloat(s, f) {
		return f
	}
	return attributevalue.Number(s)
}

// exactFloat reports whether f prints back as the same decimal number as s.
func exactFloat(s string, f float64) bool {
	want, ok := new(big.Rat).SetString(s)
	if !ok {
		return false
	}
	got, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	return ok && want.Cmp(got) == 0
}
