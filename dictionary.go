package dynafield

import (
	"fmt"
	"maps"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

// DictionaryField describes a dictionary attribute of an entity type. The field
// value is a [Record]; the descriptor is what queries are built from:
//
//	var clients = dynafield.MustDictionaryField("clients")
//
//	us, _ := clients.AtKey("US")
//	filter := us.Equal(7810)  // clients.US = 7810
//	unset := clients.Unset()  // entities that never had clients assigned
//
// Each key of the dictionary is filtered on separately. Filters across keys,
// filters on the set of keys and ordering by a key are not provided.
//
// A DictionaryField is immutable and may be shared between goroutines.
type DictionaryField struct {
	name string
}

// NewDictionaryField returns a descriptor for the attribute called name. The
// name follows the same rules as dictionary keys.
func NewDictionaryField(name string) (*DictionaryField, error) {
	if err := ValidateKey(name); err != nil {
		return nil, fmt.Errorf("invalid dictionary field name: %w", err)
	}
	if !isPathSegment(name) {
		return nil, fmt.Errorf("invalid dictionary field name %q: not a document path segment", name)
	}
	return &DictionaryField{name: name}, nil
}

// MustDictionaryField is like NewDictionaryField but panics on error.
func MustDictionaryField(name string) *DictionaryField {
	f, err := NewDictionaryField(name)
	if err != nil {
		panic(err)
	}
	return f
}

// Name returns the attribute name of the field.
func (f *DictionaryField) Name() string {
	return f.name
}

// AtKey returns a filterable reference to one entry of the dictionary, at the
// document path "<name>.<key>". Keys containing '.', '[' or ']' pass
// [ValidateKey] and can be stored, but DynamoDB document paths cannot address
// them; AtKey reports those with a [BadFilterError].
func (f *DictionaryField) AtKey(key string) (KeyPath, error) {
	if err := ValidateKey(key); err != nil {
		return KeyPath{}, err
	}
	if !isPathSegment(key) {
		return KeyPath{}, &BadFilterError{
			Field:  f.name,
			Reason: fmt.Sprintf("key %q cannot be addressed as a document path segment", key),
		}
	}
	return KeyPath{field: f.name, key: key}, nil
}

// MustAtKey is like AtKey but panics on error.
func (f *DictionaryField) MustAtKey(key string) KeyPath {
	p, err := f.AtKey(key)
	if err != nil {
		panic(err)
	}
	return p
}

// Compare builds a filter on the field as a whole. The only supported filter is
// equality with nil, which matches items where the field is unset. Any other
// operator or operand fails with a [BadFilterError].
func (f *DictionaryField) Compare(op Operator, value any) (expression.ConditionBuilder, error) {
	if op == Equal && value == nil {
		return f.Unset(), nil
	}
	return expression.ConditionBuilder{}, &BadFilterError{
		Field:  f.name,
		Op:     op.String(),
		Reason: "dictionary fields can only be compared with == nil; filter on AtKey instead",
	}
}

// Unset returns the filter matching items where the field was never assigned:
// the attribute is either missing or NULL. Items holding an empty dictionary
// do not match.
func (f *DictionaryField) Unset() expression.ConditionBuilder {
	name := expression.Name(f.name)
	return expression.Or(
		name.AttributeNotExists(),
		name.AttributeType(expression.Null),
	)
}

// Assign converts v into the value to store in the field:
//   - nil leaves the field unset and returns a nil record,
//   - a *Record is adopted as is,
//   - a Record is copied,
//   - any map with string keys (or map[any]any with string keys) is converted
//     entry by entry, validating every key.
func (f *DictionaryField) Assign(v any) (*Record, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *Record:
		return t, nil
	case Record:
		return &Record{entries: maps.Clone(t.entries), values: maps.Clone(t.values)}, nil
	}
	r, err := RecordOf(v)
	if err != nil {
		return nil, fmt.Errorf("failed to assign %s: %w", f.name, err)
	}
	return r, nil
}

// Projection returns a projection of the given dictionary keys, for reading
// only those entries back. At least one key is required.
func (f *DictionaryField) Projection(keys ...string) (expression.ProjectionBuilder, error) {
	var proj expression.ProjectionBuilder
	if len(keys) == 0 {
		return proj, &BadFilterError{Field: f.name, Reason: "projection needs at least one key"}
	}
	for _, key := range keys {
		p, err := f.AtKey(key)
		if err != nil {
			return expression.ProjectionBuilder{}, err
		}
		proj = proj.AddNames(p.Name())
	}
	return proj, nil
}

// KeyPath references one entry of a dictionary field. It is a plain value and
// safe to copy and share.
type KeyPath struct {
	field string
	key   string
}

// Field returns the dictionary attribute name.
func (p KeyPath) Field() string { return p.field }

// Key returns the dictionary key.
func (p KeyPath) Key() string { return p.key }

// Path returns the document path "<field>.<key>".
func (p KeyPath) Path() string {
	return p.field + "." + p.key
}

// Name returns the expression name for the path, for use with any part of the
// expression package.
func (p KeyPath) Name() expression.NameBuilder {
	return expression.Name(p.Path())
}

// Compare builds a filter comparing the entry with value.
func (p KeyPath) Compare(op Operator, value any) (expression.ConditionBuilder, error) {
	v := expression.Value(value)
	switch op {
	case Equal:
		return p.Name().Equal(v), nil
	case NotEqual:
		return p.Name().NotEqual(v), nil
	case LessThan:
		return p.Name().LessThan(v), nil
	case LessThanEqual:
		return p.Name().LessThanEqual(v), nil
	case GreaterThan:
		return p.Name().GreaterThan(v), nil
	case GreaterThanEqual:
		return p.Name().GreaterThanEqual(v), nil
	}
	return expression.ConditionBuilder{}, &BadFilterError{Field: p.Path(), Op: op.String(), Reason: "unknown operator"}
}

func (p KeyPath) Equal(value any) expression.ConditionBuilder {
	return p.Name().Equal(expression.Value(value))
}

func (p KeyPath) NotEqual(value any) expression.ConditionBuilder {
	return p.Name().NotEqual(expression.Value(value))
}

func (p KeyPath) LessThan(value any) expression.ConditionBuilder {
	return p.Name().LessThan(expression.Value(value))
}

func (p KeyPath) LessThanEqual(value any) expression.ConditionBuilder {
	return p.Name().LessThanEqual(expression.Value(value))
}

func (p KeyPath) GreaterThan(value any) expression.ConditionBuilder {
	return p.Name().GreaterThan(expression.Value(value))
}

func (p KeyPath) GreaterThanEqual(value any) expression.ConditionBuilder {
	return p.Name().GreaterThanEqual(expression.Value(value))
}

func isPathSegment(s string) bool {
	return !strings.ContainsAny(s, ".[]")
}
