package dynafield

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Clock is a function type that returns the current time for dependency injection.
type Clock func() time.Time

// DefaultClock returns the current UTC time.
func DefaultClock() time.Time {
	return time.Now().UTC()
}

// Item is an alias for the dynamodb attribute value map.
type Item = map[string]types.AttributeValue

// Envelope attribute names. They all start with [ReservedPrefix], so they can
// never collide with entity attributes or dictionary keys.
const (
	AttributeNameKey     = "_hk"
	AttributeNameSort    = "_sk"
	AttributeNameKind    = "_kind"
	AttributeNameKindKey = "_kind_sk"
	AttributeNameCreated = "_created"
	AttributeNameUpdated = "_updated"
	AttributeNameExpires = "_expires"
)

// MarshalOptions contains configuration options for marshaling entities to items.
type MarshalOptions struct {
	Kind         string        // The entity kind, usually the entity type
	ID           string        // The entity identifier, unique within its kind
	SortKey      string        // Sorts entities of the same kind on the kind index
	TimeToLive   time.Duration // The lifetime of the item
	Created      time.Time     // Creation timestamp
	Updated      time.Time     // Modification timestamp
	Tick         Clock         // Function to get current time for timestamps
	KeyDelimiter string        // Delimiter to join kind and id into the item key
}

// WithKind sets the kind and identifier of the entity. The sort key defaults
// to the identifier.
func (mo *MarshalOptions) WithKind(kind, id string) *MarshalOptions {
	mo.Kind = kind
	mo.ID = id
	if mo.SortKey == "" {
		mo.SortKey = id
	}
	return mo
}

func (mo *MarshalOptions) apply(opts []func(*MarshalOptions)) {
	for _, opt := range opts {
		opt(mo)
	}
}

func (mo MarshalOptions) itemKey() string {
	return mo.Kind + mo.KeyDelimiter + mo.ID
}

func (mo MarshalOptions) validate() error {
	if mo.Kind == "" {
		return fmt.Errorf("entity kind is required")
	}
	if mo.ID == "" {
		return fmt.Errorf("entity id is required")
	}
	return nil
}

// NewMarshalOptions returns options with default values and the provided
// overrides applied.
func NewMarshalOptions(opts ...func(*MarshalOptions)) MarshalOptions {
	options := MarshalOptions{
		Tick:         DefaultClock,
		KeyDelimiter: "#",
	}
	options.apply(opts)
	return options
}

// Envelope holds the bookkeeping attributes stored next to an entity's own
// attributes. For an Order O1:
//
//	| _hk      | _sk      | _kind | _kind_sk | clients         |
//	| ======== | ======== | ===== | ======== | =============== |
//	| order#O1 | order#O1 | order | O1       | {"US": 7810}    |
//
// The item key is built from kind and id; the kind index (_kind, _kind_sk)
// lists every entity of a kind.
type Envelope struct {
	Key       string    `dynamodbav:"_hk"`
	Sort      string    `dynamodbav:"_sk"`
	Kind      string    `dynamodbav:"_kind"`
	KindSort  string    `dynamodbav:"_kind_sk,omitempty"`
	CreatedAt time.Time `dynamodbav:"_created"`
	UpdatedAt time.Time `dynamodbav:"_updated"`
	Expires   time.Time `dynamodbav:"_expires,unixtime,omitempty"`
}

// NewEnvelope builds the envelope described by opts.
func NewEnvelope(opts MarshalOptions) Envelope {
	if opts.Created.IsZero() {
		opts.Created = opts.Tick()
	}
	if opts.Updated.IsZero() {
		opts.Updated = opts.Tick()
	}

	env := Envelope{
		Key:       opts.itemKey(),
		Sort:      opts.itemKey(),
		Kind:      opts.Kind,
		KindSort:  opts.SortKey,
		CreatedAt: opts.Created,
		UpdatedAt: opts.Updated,
	}

	if opts.TimeToLive > 0 {
		env.Expires = opts.Created.Add(opts.TimeToLive)
	}

	return env
}

// Marshaler can marshal itself into envelope options.
type Marshaler interface {
	// MarshalSelf is invoked by [MarshalEntity]. Implementers should set at
	// least the kind and id of the entity.
	MarshalSelf(*MarshalOptions) error
}

// Unmarshaler can extract envelope data about itself after being decoded.
type Unmarshaler interface {
	// UnmarshalSelf is invoked by [UnmarshalEntity] once the entity attributes
	// have been decoded.
	UnmarshalSelf(*Envelope) error
}

// MarshalEntity marshals the entity attributes of in with attributevalue and
// merges them with its envelope. Entity attributes may not start with
// [ReservedPrefix].
func MarshalEntity(in Marshaler, opts ...func(*MarshalOptions)) (Item, error) {
	marshalOpts := NewMarshalOptions(opts...)

	if err := in.MarshalSelf(&marshalOpts); err != nil {
		return nil, fmt.Errorf("failed to marshal self: %w", err)
	}
	if err := marshalOpts.validate(); err != nil {
		return nil, err
	}

	item, err := attributevalue.MarshalMap(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}

	for name := range item {
		if strings.HasPrefix(name, ReservedPrefix) {
			return nil, fmt.Errorf("%w: %q", ErrReservedAttribute, name)
		}
	}

	envelope, err := attributevalue.MarshalMap(NewEnvelope(marshalOpts))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	maps.Copy(item, envelope)
	return item, nil
}

// UnmarshalEntity decodes item into out and returns its envelope. If out
// implements [Unmarshaler], it receives the envelope too.
func UnmarshalEntity(item Item, out any) (Envelope, error) {
	var env Envelope
	if len(item) == 0 {
		return env, ErrItemNotFound
	}

	if err := attributevalue.UnmarshalMap(item, &env); err != nil {
		return env, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	if err := attributevalue.UnmarshalMap(entityAttributes(item), out); err != nil {
		return env, fmt.Errorf("failed to unmarshal entity: %w", err)
	}

	unmarshaler, ok := out.(Unmarshaler)
	if !ok {
		return env, nil
	}

	if err := unmarshaler.UnmarshalSelf(&env); err != nil {
		return env, fmt.Errorf("failed to unmarshal self: %w", err)
	}

	return env, nil
}

// UnmarshalList calls [UnmarshalEntity] on each item in items and appends the
// results to out. This function is usually called to extract results from [QueryKind].
func UnmarshalList[T any](items []Item, out *[]T) ([]Envelope, error) {
	var envelopes []Envelope

	for i, item := range items {
		var value T
		env, err := UnmarshalEntity(item, &value)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal item %d: %w", i, err)
		}
		*out = append(*out, value)
		envelopes = append(envelopes, env)
	}

	return envelopes, nil
}

func entityAttributes(item Item) Item {
	out := make(Item, len(item))
	for name, av := range item {
		if !strings.HasPrefix(name, ReservedPrefix) {
			out[name] = av
		}
	}
	return out
}

// DynamoDBClient interface for easier testing and connection management.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}
