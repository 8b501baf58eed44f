package dynafield

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// MaxBatchSize is the maximum number of items allowed in a DynamoDB batch operation.
	MaxBatchSize = 25
)

// Table contains DynamoDB table configuration and marshal options.
type Table struct {
	TableName     string        // Main table name
	KindIndexName string        // Kind index name (_kind hash key, _kind_sk range key)
	KeyDelimiter  string        // Delimiter between kind and id in item keys. Default is '#'.
	PaginationTTL time.Duration // TTL for pagination cursors stored in table
	Logger        *slog.Logger  // Receives debug records; discards by default
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithKindIndex sets the name of the kind index.
func WithKindIndex(name string) TableOption {
	return func(t *Table) { t.KindIndexName = name }
}

// WithKeyDelimiter sets the delimiter used to build item keys.
func WithKeyDelimiter(delimiter string) TableOption {
	return func(t *Table) { t.KeyDelimiter = delimiter }
}

// WithPaginationTTL sets how long pagination cursors live in the table.
func WithPaginationTTL(ttl time.Duration) TableOption {
	return func(t *Table) { t.PaginationTTL = ttl }
}

// WithLogger sets the table logger.
func WithLogger(logger *slog.Logger) TableOption {
	return func(t *Table) { t.Logger = logger }
}

// NewTable creates a new Table with default configuration.
func NewTable(tableName string, opts ...TableOption) *Table {
	t := &Table{
		TableName:     tableName,
		KindIndexName: "kind-index",
		KeyDelimiter:  "#",
		PaginationTTL: 24 * time.Hour,
		Logger:        NoopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Table) logger() *slog.Logger {
	if t.Logger == nil {
		return NoopLogger()
	}
	return t.Logger.With("table", t.TableName)
}

func (t *Table) marshalOptions(opts []func(*MarshalOptions)) []func(*MarshalOptions) {
	return append([]func(*MarshalOptions){func(mo *MarshalOptions) {
		mo.KeyDelimiter = t.KeyDelimiter
	}}, opts...)
}

// MarshalPut marshals the entity into a dynamodb put item input request.
func (t *Table) MarshalPut(in Marshaler, opts ...func(*MarshalOptions)) (*dynamodb.PutItemInput, error) {
	item, err := MarshalEntity(in, t.marshalOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}

	t.logger().Debug("marshal put", "key", itemKeyString(item), "attributes", len(item))

	return &dynamodb.PutItemInput{
		TableName: aws.String(t.TableName),
		Item:      item,
	}, nil
}

// MarshalBatch marshals entities into batch write put requests. Since there is a
// limit on how many requests can be contained in a single input, the requests
// are chunked in sizes of 25 or less.
func (t *Table) MarshalBatch(entities []Marshaler, opts ...func(*MarshalOptions)) ([]*dynamodb.BatchWriteItemInput, error) {
	var batches []*dynamodb.BatchWriteItemInput

	for i := 0; i < len(entities); i += MaxBatchSize {
		end := min(i+MaxBatchSize, len(entities))

		writeRequests := make([]types.WriteRequest, 0, end-i)
		for _, entity := range entities[i:end] {
			item, err := MarshalEntity(entity, t.marshalOptions(opts)...)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal entity: %w", err)
			}

			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		batches = append(batches, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				t.TableName: writeRequests,
			},
		})
	}

	t.logger().Debug("marshal batch", "entities", len(entities), "batches", len(batches))

	return batches, nil
}

// MarshalKey returns the primary key of the entity.
func (t *Table) MarshalKey(in Marshaler, opts ...func(*MarshalOptions)) (Item, error) {
	marshalOpts := NewMarshalOptions(t.marshalOptions(opts)...)

	if err := in.MarshalSelf(&marshalOpts); err != nil {
		return nil, fmt.Errorf("failed to marshal self: %w", err)
	}
	if err := marshalOpts.validate(); err != nil {
		return nil, err
	}

	key := marshalOpts.itemKey()
	return Item{
		AttributeNameKey:  &types.AttributeValueMemberS{Value: key},
		AttributeNameSort: &types.AttributeValueMemberS{Value: key},
	}, nil
}

// MarshalGet marshals the entity key into a get item request.
func (t *Table) MarshalGet(in Marshaler, opts ...func(*MarshalOptions)) (*dynamodb.GetItemInput, error) {
	key, err := t.MarshalKey(in, opts...)
	if err != nil {
		return nil, err
	}

	return &dynamodb.GetItemInput{
		TableName: aws.String(t.TableName),
		Key:       key,
	}, nil
}

// MarshalDelete marshals the entity key into a delete item request.
func (t *Table) MarshalDelete(in Marshaler, opts ...func(*MarshalOptions)) (*dynamodb.DeleteItemInput, error) {
	key, err := t.MarshalKey(in, opts...)
	if err != nil {
		return nil, err
	}

	return &dynamodb.DeleteItemInput{
		TableName: aws.String(t.TableName),
		Key:       key,
	}, nil
}

// MarshalQuery marshals the input into a query request.
func (t *Table) MarshalQuery(in QueryMarshaler) (*dynamodb.QueryInput, error) {
	input, err := in.MarshalQuery()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	input.TableName = aws.String(t.TableName)
	if in.UseKindIndex() {
		input.IndexName = aws.String(t.KindIndexName)
	}

	t.logger().Debug("marshal query",
		"index", aws.ToString(input.IndexName),
		"key_condition", aws.ToString(input.KeyConditionExpression),
		"filter", aws.ToString(input.FilterExpression),
	)

	return input, nil
}

func itemKeyString(item Item) string {
	if s, ok := item[AttributeNameKey].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}
