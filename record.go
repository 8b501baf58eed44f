package dynafield

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Record is the value held by a [DictionaryField]. Each entry is a dynamic
// attribute of the owning item: the record persists as a single map attribute
// whose members are the dictionary keys, so every entry can be filtered on by
// its document path.
//
// A nil *Record is the unset state of the field. Read methods treat it as an
// empty record. Mutating a nil *Record panics with a nil pointer dereference:
// the unset state has no entries to write to, so assign a record first.
//
// Record is not safe for concurrent mutation.
type Record struct {
	entries map[string]types.AttributeValue
	// values holds the Go values given to Set. Entries loaded from an item
	// have no Go value and are decoded from their attribute on read.
	values map[string]any
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{
		entries: make(map[string]types.AttributeValue),
		values:  make(map[string]any),
	}
}

// RecordOf converts a plain mapping into a new record, validating every key.
// See [DictionaryField.Assign] for the accepted input types.
func RecordOf(m any) (*Record, error) {
	r := NewRecord()
	if err := r.setAll(m); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns the value stored at key. It fails with [ErrInvalidKey] for keys
// that could never be stored and with [ErrKeyNotFound] for absent keys.
//
// A value stored with Set is returned as given. A value loaded from an item is
// decoded from its attribute: numbers become int64, uint64 or float64 when
// that type holds them exactly and [attributevalue.Number] otherwise, and
// timestamps come back as strings. Use [Record.GetInto] or [Lookup] to read a
// loaded value with its Go type.
func (r *Record) Get(key string) (any, error) {
	av, err := r.lookup(key)
	if err != nil {
		return nil, err
	}
	return r.value(key, av), nil
}

// GetOr returns the value stored at key, or def if the key is absent. Invalid
// keys still fail with [ErrInvalidKey].
func (r *Record) GetOr(key string, def any) (any, error) {
	v, err := r.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return def, nil
	}
	return v, err
}

// GetInto decodes the value stored at key into out, which must be a pointer.
// Use it to read back timestamps and structured values with their Go type.
func (r *Record) GetInto(key string, out any) error {
	av, err := r.lookup(key)
	if err != nil {
		return err
	}
	if err := attributevalue.Unmarshal(av, out); err != nil {
		return fmt.Errorf("failed to decode dictionary key %q: %w", key, err)
	}
	return nil
}

// Lookup is the generic form of [Record.GetInto].
func Lookup[T any](r *Record, key string) (T, error) {
	var out T
	err := r.GetInto(key, &out)
	return out, err
}

// Set stores value at key, replacing any previous value.
func (r *Record) Set(key string, value any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	av, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("failed to encode dictionary key %q: %w", key, err)
	}
	if r.entries == nil {
		r.entries = make(map[string]types.AttributeValue)
	}
	if r.values == nil {
		r.values = make(map[string]any)
	}
	r.entries[key] = av
	if _, raw := value.(types.AttributeValue); raw {
		delete(r.values, key)
	} else {
		r.values[key] = value
	}
	return nil
}

// Delete removes key from the record. Deleting an absent key is an error.
func (r *Record) Delete(key string) error {
	if _, err := r.lookup(key); err != nil {
		return err
	}
	delete(r.entries, key)
	delete(r.values, key)
	return nil
}

// Contains reports whether key is present. It never fails, even for keys that
// would not pass [ValidateKey].
func (r *Record) Contains(key string) bool {
	if r == nil {
		return false
	}
	_, ok := r.entries[key]
	return ok
}

// Keys returns the keys currently present. Callers should not rely on the order.
func (r *Record) Keys() []string {
	if r == nil {
		return []string{}
	}
	return slices.Sorted(maps.Keys(r.entries))
}

// All returns an iterator over the (key, value) pairs of the record. Values are
// decoded the same way as [Record.Get]. The sequence may be ranged over more
// than once; each pass sees the keys present when it starts.
func (r *Record) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, key := range r.Keys() {
			av, ok := r.entries[key]
			if !ok {
				continue
			}
			if !yield(key, r.value(key, av)) {
				return
			}
		}
	}
}

// Len returns the number of entries.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// IsEmpty reports whether the record has no entries. An unset (nil) record is
// empty too; the two states only differ once persisted.
func (r *Record) IsEmpty() bool {
	return r.Len() == 0
}

// ToMap exports the record as a plain mapping.
func (r *Record) ToMap() map[string]any {
	out := make(map[string]any, r.Len())
	for k, v := range r.All() {
		out[k] = v
	}
	return out
}

func (r *Record) value(key string, av types.AttributeValue) any {
	if v, ok := r.values[key]; ok {
		return v
	}
	return decodeValue(av)
}

func (r *Record) lookup(key string) (types.AttributeValue, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, keyError(ErrKeyNotFound, key)
	}
	av, ok := r.entries[key]
	if !ok {
		return nil, keyError(ErrKeyNotFound, key)
	}
	return av, nil
}
