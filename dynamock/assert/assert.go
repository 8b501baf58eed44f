// Package assert provides fluent assertions for DynamoDB items written by
// dynafield tables, including the entries of dictionary fields.
//
// # Usage
//
//	import "github.com/nisimpson/dynafield/dynamock/assert"
//
//	assert.Items(t, result.Items).
//		HasCount(2).
//		ContainsEntity("brand_stats", "B1")
//
//	assert.Item(t, item).
//		IsKind("brand_stats").
//		HasAttribute("brand_name", "Google").
//		HasDictionaryEntry("clients", "US", 7810).
//		LacksDictionaryKey("clients", "DE")
//
//	assert.Entity(t, entity).
//		CanMarshal().
//		HasKind("brand_stats").
//		HasID("B1")
package assert

import (
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynafield"
	"github.com/nisimpson/dynafield/dynamock"
)

// ItemsAssertion provides fluent assertions for DynamoDB items.
type ItemsAssertion struct {
	t         testing.TB
	items     []dynafield.Item
	delimiter string
}

// Items creates a new ItemsAssertion for the given DynamoDB items.
func Items(t testing.TB, items []dynafield.Item) *ItemsAssertion {
	return &ItemsAssertion{t: t, items: items, delimiter: "#"}
}

// WithKeyDelimiter sets the delimiter the table joins kind and id with.
func (a *ItemsAssertion) WithKeyDelimiter(delimiter string) *ItemsAssertion {
	a.delimiter = delimiter
	return a
}

// HasCount asserts that the items collection has the expected count.
func (a *ItemsAssertion) HasCount(expected int) *ItemsAssertion {
	a.t.Helper()
	if len(a.items) != expected {
		a.t.Errorf("expected %d items, got %d", expected, len(a.items))
	}
	return a
}

// IsEmpty asserts that the items collection is empty.
func (a *ItemsAssertion) IsEmpty() *ItemsAssertion {
	a.t.Helper()
	return a.HasCount(0)
}

// IsNotEmpty asserts that the items collection is not empty.
func (a *ItemsAssertion) IsNotEmpty() *ItemsAssertion {
	a.t.Helper()
	if len(a.items) == 0 {
		a.t.Error("expected items to not be empty")
	}
	return a
}

// ContainsEntity asserts that one of the items is the entity kind/id.
func (a *ItemsAssertion) ContainsEntity(kind, id string) *ItemsAssertion {
	a.t.Helper()
	key := kind + a.delimiter + id
	for _, item := range a.items {
		if stringAttr(item, dynafield.AttributeNameKey) == key {
			return a
		}
	}
	a.t.Errorf("expected to find entity %s in items", key)
	return a
}

// NotContainsEntity asserts that none of the items is the entity kind/id.
func (a *ItemsAssertion) NotContainsEntity(kind, id string) *ItemsAssertion {
	a.t.Helper()
	key := kind + a.delimiter + id
	for _, item := range a.items {
		if stringAttr(item, dynafield.AttributeNameKey) == key {
			a.t.Errorf("expected entity %s to be absent from items", key)
			return a
		}
	}
	return a
}

// AllOfKind asserts that every item belongs to kind.
func (a *ItemsAssertion) AllOfKind(kind string) *ItemsAssertion {
	a.t.Helper()
	for i, item := range a.items {
		if got := stringAttr(item, dynafield.AttributeNameKind); got != kind {
			a.t.Errorf("item %d: expected kind %s, got %q", i, kind, got)
		}
	}
	return a
}

// HasAttribute asserts that at least one item has the string attribute name
// set to expected.
func (a *ItemsAssertion) HasAttribute(name, expected string) *ItemsAssertion {
	a.t.Helper()
	for _, item := range a.items {
		if stringAttr(item, name) == expected {
			return a
		}
	}
	a.t.Errorf("expected to find attribute %s with value %s in items", name, expected)
	return a
}

// ItemAssertion provides fluent assertions for a single DynamoDB item.
type ItemAssertion struct {
	t    testing.TB
	item dynafield.Item
}

// Item creates a new ItemAssertion for the given item.
func Item(t testing.TB, item dynafield.Item) *ItemAssertion {
	return &ItemAssertion{t: t, item: item}
}

// IsKind asserts the kind of the item.
func (a *ItemAssertion) IsKind(kind string) *ItemAssertion {
	a.t.Helper()
	if got := stringAttr(a.item, dynafield.AttributeNameKind); got != kind {
		a.t.Errorf("expected kind %s, got %q", kind, got)
	}
	return a
}

// HasKey asserts that the item key is expected.
func (a *ItemAssertion) HasKey(expected string) *ItemAssertion {
	a.t.Helper()
	if got := stringAttr(a.item, dynafield.AttributeNameKey); got != expected {
		a.t.Errorf("expected item key %s, got %q", expected, got)
	}
	return a
}

// HasAttribute asserts that the string attribute name equals expected.
func (a *ItemAssertion) HasAttribute(name, expected string) *ItemAssertion {
	a.t.Helper()
	av, ok := a.item[name]
	if !ok {
		a.t.Errorf("item missing attribute %s", name)
		return a
	}
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		a.t.Errorf("attribute %s is not a string", name)
		return a
	}
	if s.Value != expected {
		a.t.Errorf("attribute %s expected %s, got %s", name, expected, s.Value)
	}
	return a
}

// HasDictionaryEntry asserts that the dictionary field holds expected at key.
// expected is stored and read back the same way as the item, so an int literal
// matches a stored number.
func (a *ItemAssertion) HasDictionaryEntry(field, key string, expected any) *ItemAssertion {
	a.t.Helper()
	record, ok := a.dictionary(field)
	if !ok {
		return a
	}
	got, err := record.Get(key)
	if err != nil {
		a.t.Errorf("dictionary %s: %v", field, err)
		return a
	}

	want, err := storedValue(key, expected)
	if err != nil {
		a.t.Errorf("dictionary %s: cannot encode expected value: %v", field, err)
		return a
	}
	if !reflect.DeepEqual(got, want) {
		a.t.Errorf("dictionary %s key %s: expected %#v, got %#v", field, key, want, got)
	}
	return a
}

// LacksDictionaryKey asserts that the dictionary field does not contain key.
func (a *ItemAssertion) LacksDictionaryKey(field, key string) *ItemAssertion {
	a.t.Helper()
	record, ok := a.dictionary(field)
	if ok && record.Contains(key) {
		a.t.Errorf("dictionary %s: expected key %s to be absent", field, key)
	}
	return a
}

// HasDictionaryKeys asserts the exact key set of the dictionary field.
func (a *ItemAssertion) HasDictionaryKeys(field string, keys ...string) *ItemAssertion {
	a.t.Helper()
	record, ok := a.dictionary(field)
	if !ok {
		return a
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	got := make(map[string]bool, record.Len())
	for _, k := range record.Keys() {
		got[k] = true
	}
	if !reflect.DeepEqual(got, want) {
		a.t.Errorf("dictionary %s: expected keys %v, got %v", field, keys, record.Keys())
	}
	return a
}

// HasUnsetField asserts that the field is unset: missing or NULL.
func (a *ItemAssertion) HasUnsetField(field string) *ItemAssertion {
	a.t.Helper()
	av, ok := a.item[field]
	if !ok {
		return a
	}
	if _, isNull := av.(*types.AttributeValueMemberNULL); !isNull {
		a.t.Errorf("expected field %s to be unset, got %T", field, av)
	}
	return a
}

// HasEmptyDictionary asserts that the field holds a dictionary with no entries.
func (a *ItemAssertion) HasEmptyDictionary(field string) *ItemAssertion {
	a.t.Helper()
	record, ok := a.dictionary(field)
	if ok && !record.IsEmpty() {
		a.t.Errorf("expected dictionary %s to be empty, got keys %v", field, record.Keys())
	}
	return a
}

func (a *ItemAssertion) dictionary(field string) (*dynafield.Record, bool) {
	a.t.Helper()
	av, ok := a.item[field]
	if !ok {
		a.t.Errorf("item missing dictionary field %s", field)
		return nil, false
	}
	if _, ok := av.(*types.AttributeValueMemberM); !ok {
		a.t.Errorf("field %s is not a dictionary: %T", field, av)
		return nil, false
	}
	record := dynafield.NewRecord()
	if err := record.UnmarshalDynamoDBAttributeValue(av); err != nil {
		a.t.Errorf("field %s: %v", field, err)
		return nil, false
	}
	return record, true
}

// EntityAssertion provides fluent assertions for TestEntity instances.
type EntityAssertion struct {
	t      testing.TB
	entity *dynamock.TestEntity
}

// Entity creates a new EntityAssertion for the given TestEntity.
func Entity(t testing.TB, entity *dynamock.TestEntity) *EntityAssertion {
	return &EntityAssertion{t: t, entity: entity}
}

// CanMarshal asserts that the entity marshals into an item.
func (a *EntityAssertion) CanMarshal() *EntityAssertion {
	a.t.Helper()
	if _, err := dynafield.MarshalEntity(a.entity); err != nil {
		a.t.Errorf("entity failed to marshal: %v", err)
	}
	return a
}

// HasKind asserts the entity kind.
func (a *EntityAssertion) HasKind(expected string) *EntityAssertion {
	a.t.Helper()
	if got := a.entity.Kind(); got != expected {
		a.t.Errorf("expected kind %s, got %s", expected, got)
	}
	return a
}

// HasID asserts the entity id.
func (a *EntityAssertion) HasID(expected string) *EntityAssertion {
	a.t.Helper()
	if got := a.entity.ID(); got != expected {
		a.t.Errorf("expected id %s, got %s", expected, got)
	}
	return a
}

// storedValue returns what Get yields for value once it has been written to an
// item and loaded back.
func storedValue(key string, value any) (any, error) {
	written, err := dynafield.RecordOf(map[string]any{key: value})
	if err != nil {
		return nil, err
	}
	av, err := written.MarshalDynamoDBAttributeValue()
	if err != nil {
		return nil, err
	}
	var loaded dynafield.Record
	if err := loaded.UnmarshalDynamoDBAttributeValue(av); err != nil {
		return nil, err
	}
	return loaded.Get(key)
}

func stringAttr(item dynafield.Item, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}
