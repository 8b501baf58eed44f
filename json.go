package dynafield

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EncodeJSON serializes v with no insignificant whitespace. HTML characters are
// not escaped, so the output is as small as the JSON grammar allows.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DecodeJSON parses data into a tree of map[string]any, []any, string, bool,
// nil and number values. Integral numbers decode as int64, or as uint64 above
// the int64 range; larger integers are kept as json.Number rather than
// rounded. Other numbers decode as float64.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after value", ErrMalformedJSON)
	}
	return normalizeJSON(v), nil
}

// DecodeJSONInto parses data into out.
func DecodeJSONInto(data []byte, out any) error {
	if !json.Valid(data) {
		return fmt.Errorf("%w: %q", ErrMalformedJSON, truncate(data, 64))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode json: %w", err)
	}
	return nil
}

func normalizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if strings.ContainsAny(t.String(), ".eE") {
			f, _ := t.Float64()
			return f
		}
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return u
		}
		return t
	case map[string]any:
		for k, elem := range t {
			t[k] = normalizeJSON(elem)
		}
		return t
	case []any:
		for i, elem := range t {
			t[i] = normalizeJSON(elem)
		}
		return t
	default:
		return v
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// JSON holds a value that is stored as an opaque compact JSON blob. The
// attribute is not indexable and cannot be filtered on beyond its presence.
//
//	type Settings struct {
//	    ID    string                           `dynamodbav:"id"`
//	    Prefs dynafield.JSON[map[string]any]   `dynamodbav:"prefs"`
//	}
type JSON[T any] struct {
	Value T
}

// NewJSON wraps v.
func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{Value: v}
}

var (
	_ attributevalue.Marshaler   = JSON[any]{}
	_ attributevalue.Unmarshaler = (*JSON[any])(nil)
)

// MarshalDynamoDBAttributeValue implements attributevalue.Marshaler.
func (j JSON[T]) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	data, err := EncodeJSON(j.Value)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberB{Value: data}, nil
}

// UnmarshalDynamoDBAttributeValue implements attributevalue.Unmarshaler. String
// attributes are accepted as well as binary ones.
func (j *JSON[T]) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	var data []byte
	switch v := av.(type) {
	case *types.AttributeValueMemberB:
		data = v.Value
	case *types.AttributeValueMemberS:
		data = []byte(v.Value)
	case *types.AttributeValueMemberNULL:
		var zero T
		j.Value = zero
		return nil
	default:
		return fmt.Errorf("json attribute must be binary or string, got %T", av)
	}

	var out T
	if generic, ok := any(&out).(*any); ok {
		v, err := DecodeJSON(data)
		if err != nil {
			return err
		}
		*generic = v
	} else if err := DecodeJSONInto(data, &out); err != nil {
		return err
	}
	j.Value = out
	return nil
}

// MarshalJSON exports the wrapped value as ordinary JSON.
func (j JSON[T]) MarshalJSON() ([]byte, error) {
	return EncodeJSON(j.Value)
}

// UnmarshalJSON reads the wrapped value from ordinary JSON.
func (j *JSON[T]) UnmarshalJSON(data []byte) error {
	return DecodeJSONInto(data, &j.Value)
}
