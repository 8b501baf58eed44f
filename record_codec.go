package dynafield

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	_ attributevalue.Marshaler   = (*Record)(nil)
	_ attributevalue.Unmarshaler = (*Record)(nil)
	_ json.Marshaler             = (*Record)(nil)
	_ json.Unmarshaler           = (*Record)(nil)
)

// MarshalDynamoDBAttributeValue implements attributevalue.Marshaler. The record
// is written as one map attribute; no wrapper is added around the entries.
func (r *Record) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	if r == nil {
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}
	entries := make(map[string]types.AttributeValue, len(r.entries))
	maps.Copy(entries, r.entries)
	return &types.AttributeValueMemberM{Value: entries}, nil
}

// UnmarshalDynamoDBAttributeValue implements attributevalue.Unmarshaler.
// Stored keys are taken as they are; they were validated when written.
func (r *Record) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberM:
		r.entries = make(map[string]types.AttributeValue, len(v.Value))
		maps.Copy(r.entries, v.Value)
		r.values = nil
		return nil
	case *types.AttributeValueMemberNULL:
		r.entries, r.values = nil, nil
		return nil
	default:
		return fmt.Errorf("dictionary attribute must be a map, got %T", av)
	}
}

// MarshalJSON exports the record as a plain JSON object.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return json.Marshal(jsonNumbers(r.ToMap()))
}

// jsonNumbers copies v, turning attributevalue.Number into json.Number so
// large numbers are exported as JSON numbers.
func jsonNumbers(v any) any {
	switch t := v.(type) {
	case attributevalue.Number:
		return json.Number(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[k] = jsonNumbers(elem)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = jsonNumbers(elem)
		}
		return out
	default:
		return v
	}
}

// UnmarshalJSON replaces the record's entries with the members of a JSON
// object, validating every key. On error the record is left unchanged.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	next := NewRecord()
	for k, v := range m {
		if err := next.Set(k, attributeNumbers(normalizeJSON(v))); err != nil {
			return err
		}
	}
	r.entries, r.values = next.entries, next.values
	return nil
}

// attributeNumbers replaces the json.Number values normalizeJSON keeps for
// integers too large for uint64, so they are stored as numbers, not strings.
func attributeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		return attributevalue.Number(t.String())
	case map[string]any:
		for k, elem := range t {
			t[k] = attributeNumbers(elem)
		}
		return t
	case []any:
		for i, elem := range t {
			t[i] = attributeNumbers(elem)
		}
		return t
	default:
		return v
	}
}

// setAll copies the entries of a plain mapping into r.
func (r *Record) setAll(m any) error {
	if m == nil {
		return nil
	}

	switch src := m.(type) {
	case map[string]any:
		for k, v := range src {
			if err := r.Set(k, v); err != nil {
				return err
			}
		}
		return nil
	case map[any]any:
		for k, v := range src {
			key, err := validateAnyKey(k)
			if err != nil {
				return err
			}
			if err := r.Set(key, v); err != nil {
				return err
			}
		}
		return nil
	}

	rv := reflect.ValueOf(m)
	if rv.Kind() != reflect.Map {
		return fmt.Errorf("dictionary value must be a mapping, got %T", m)
	}

	iter := rv.MapRange()
	for iter.Next() {
		var (
			key string
			err error
		)
		if k := iter.Key(); k.Kind() == reflect.String {
			key, err = k.String(), ValidateKey(k.String())
		} else {
			key, err = validateAnyKey(k.Interface())
		}
		if err != nil {
			return err
		}
		if err := r.Set(key, iter.Value().Interface()); err != nil {
			return err
		}
	}
	return nil
}
