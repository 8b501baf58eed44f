package dynamock

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/nisimpson/dynafield"
)

// DefaultKind is the kind given to entities built without WithKind.
const DefaultKind = "entity"

// EntityOption is a functional option for configuring entities during building.
type EntityOption func(*EntityBuilder)

// EntityBuilder provides entity building through functional options only.
type EntityBuilder struct {
	*TestEntity
}

// NewEntity creates a new entity builder with the given options applied.
// Entities get DefaultKind and a random id unless told otherwise.
func NewEntity(opts ...EntityOption) *EntityBuilder {
	builder := &EntityBuilder{
		TestEntity: &TestEntity{
			opts:       dynafield.MarshalOptions{Kind: DefaultKind, ID: uuid.NewString()},
			attributes: make(dynafield.Item),
		},
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder
}

// Build creates a TestEntity from the builder configuration.
func (b *EntityBuilder) Build() *TestEntity {
	return &TestEntity{
		opts:       b.opts,
		attributes: maps.Clone(b.attributes),
		err:        b.err,
	}
}

// WithKind sets the entity kind.
func WithKind(kind string) EntityOption {
	return func(b *EntityBuilder) { b.opts.Kind = kind }
}

// WithID sets the entity id.
func WithID(id string) EntityOption {
	return func(b *EntityBuilder) { b.opts.ID = id }
}

// WithSortKey sets the kind index sort key. It defaults to the id.
func WithSortKey(sortKey string) EntityOption {
	return func(b *EntityBuilder) { b.opts.SortKey = sortKey }
}

// WithCreated sets the creation timestamp.
func WithCreated(created time.Time) EntityOption {
	return func(b *EntityBuilder) { b.opts.Created = created }
}

// WithUpdated sets the update timestamp.
func WithUpdated(updated time.Time) EntityOption {
	return func(b *EntityBuilder) { b.opts.Updated = updated }
}

// WithTimeToLive sets the TTL duration.
func WithTimeToLive(ttl time.Duration) EntityOption {
	return func(b *EntityBuilder) { b.opts.TimeToLive = ttl }
}

// WithKeyDelimiter sets the key delimiter.
func WithKeyDelimiter(delimiter string) EntityOption {
	return func(b *EntityBuilder) { b.opts.KeyDelimiter = delimiter }
}

// WithAttribute sets a plain attribute. The value is marshaled with the
// attributevalue package.
func WithAttribute(name string, value any) EntityOption {
	return func(b *EntityBuilder) {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			b.fail(fmt.Errorf("attribute %q: %w", name, err))
			return
		}
		b.attributes[name] = av
	}
}

// WithData merges the attributes of a struct or map into the entity.
func WithData(data any) EntityOption {
	return func(b *EntityBuilder) {
		item, err := attributevalue.MarshalMap(data)
		if err != nil {
			b.fail(fmt.Errorf("data: %w", err))
			return
		}
		maps.Copy(b.attributes, item)
	}
}

// WithDictionary sets a dictionary field. entries may be anything
// [dynafield.DictionaryField.Assign] accepts; nil leaves the field unset.
func WithDictionary(name string, entries any) EntityOption {
	return func(b *EntityBuilder) {
		field, err := dynafield.NewDictionaryField(name)
		if err != nil {
			b.fail(err)
			return
		}
		record, err := field.Assign(entries)
		if err != nil {
			b.fail(fmt.Errorf("dictionary %q: %w", name, err))
			return
		}
		if record == nil {
			delete(b.attributes, name)
			return
		}
		av, err := record.MarshalDynamoDBAttributeValue()
		if err != nil {
			b.fail(err)
			return
		}
		b.attributes[name] = av
	}
}

// WithUnsetDictionary stores an explicit NULL for a dictionary field, the
// other representation of the unset state.
func WithUnsetDictionary(name string) EntityOption {
	return func(b *EntityBuilder) {
		b.attributes[name] = &types.AttributeValueMemberNULL{Value: true}
	}
}

func (b *EntityBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// TestEntity is a generic entity holding arbitrary attributes. It implements
// the dynafield entity interfaces, so it can go through every Table operation.
type TestEntity struct {
	opts       dynafield.MarshalOptions
	attributes dynafield.Item
	envelope   dynafield.Envelope
	err        error
}

var (
	_ dynafield.Marshaler        = (*TestEntity)(nil)
	_ dynafield.Unmarshaler      = (*TestEntity)(nil)
	_ attributevalue.Marshaler   = (*TestEntity)(nil)
	_ attributevalue.Unmarshaler = (*TestEntity)(nil)
)

// Kind returns the entity kind.
func (e *TestEntity) Kind() string { return e.opts.Kind }

// ID returns the entity id.
func (e *TestEntity) ID() string { return e.opts.ID }

// Envelope returns the envelope received when the entity was read back.
func (e *TestEntity) Envelope() dynafield.Envelope { return e.envelope }

// Attributes returns a copy of the entity attributes.
func (e *TestEntity) Attributes() dynafield.Item { return maps.Clone(e.attributes) }

// Attribute decodes the named attribute into out.
func (e *TestEntity) Attribute(name string, out any) error {
	av, ok := e.attributes[name]
	if !ok {
		return fmt.Errorf("attribute %q: %w", name, dynafield.ErrKeyNotFound)
	}
	return attributevalue.Unmarshal(av, out)
}

// Dictionary decodes the named attribute as a dictionary. An absent or NULL
// attribute yields a nil record.
func (e *TestEntity) Dictionary(name string) (*dynafield.Record, error) {
	av, ok := e.attributes[name]
	if !ok {
		return nil, nil
	}
	if _, ok := av.(*types.AttributeValueMemberNULL); ok {
		return nil, nil
	}
	record := dynafield.NewRecord()
	if err := record.UnmarshalDynamoDBAttributeValue(av); err != nil {
		return nil, fmt.Errorf("dictionary %q: %w", name, err)
	}
	return record, nil
}

// MarshalSelf implements dynafield.Marshaler.
func (e *TestEntity) MarshalSelf(opts *dynafield.MarshalOptions) error {
	if e.err != nil {
		return e.err
	}
	opts.SortKey = e.opts.SortKey
	opts.WithKind(e.opts.Kind, e.opts.ID)
	opts.Created = e.opts.Created
	opts.Updated = e.opts.Updated
	opts.TimeToLive = e.opts.TimeToLive
	if e.opts.KeyDelimiter != "" {
		opts.KeyDelimiter = e.opts.KeyDelimiter
	}
	return nil
}

// UnmarshalSelf implements dynafield.Unmarshaler. The id is recovered from
// the item key.
func (e *TestEntity) UnmarshalSelf(env *dynafield.Envelope) error {
	e.envelope = *env
	e.opts.Kind = env.Kind
	e.opts.SortKey = env.KindSort
	e.opts.Created = env.CreatedAt
	e.opts.Updated = env.UpdatedAt

	delimiter := e.opts.KeyDelimiter
	if delimiter == "" {
		delimiter = "#"
	}
	id, ok := strings.CutPrefix(env.Key, env.Kind+delimiter)
	if !ok {
		return fmt.Errorf("item key %q does not belong to kind %q", env.Key, env.Kind)
	}
	e.opts.ID = id
	return nil
}

// MarshalDynamoDBAttributeValue implements attributevalue.Marshaler.
func (e *TestEntity) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &types.AttributeValueMemberM{Value: maps.Clone(e.attributes)}, nil
}

// UnmarshalDynamoDBAttributeValue implements attributevalue.Unmarshaler.
func (e *TestEntity) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return fmt.Errorf("test entity: expected map attribute, got %T", av)
	}
	e.attributes = maps.Clone(m.Value)
	return nil
}
