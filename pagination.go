package dynafield

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

func init() {
	// Register DynamoDB types with gob
	gob.Register(map[string]types.AttributeValue{})
	gob.Register(&types.AttributeValueMemberS{})
	gob.Register(&types.AttributeValueMemberN{})
	gob.Register(&types.AttributeValueMemberB{})
	gob.Register(&types.AttributeValueMemberSS{})
	gob.Register(&types.AttributeValueMemberNS{})
	gob.Register(&types.AttributeValueMemberBS{})
	gob.Register(&types.AttributeValueMemberM{})
	gob.Register(&types.AttributeValueMemberL{})
	gob.Register(&types.AttributeValueMemberNULL{})
	gob.Register(&types.AttributeValueMemberBOOL{})
}

// CursorKind is the entity kind of stored page cursors.
const CursorKind = "page"

// Paginator handles pagination by converting last evaluated keys into string
// cursors for clients, and in turn converting client cursors into start keys
// to continue paging of query results.
type Paginator interface {
	// PageCursor generates a string token from the provided start key. Implementors
	// should return an empty token if the start key is nil or empty.
	PageCursor(ctx context.Context, lastkey Item) (string, error)
	// StartKey generates a dynamodb start key from the provided cursor. Implementors
	// should return a nil item if the cursor is an empty string.
	StartKey(ctx context.Context, cursor string) (Item, error)
}

// TablePaginator implements Paginator by storing and retrieving start keys in the same table.
type TablePaginator struct {
	table  *Table         // table configuration
	client DynamoDBClient // dynamodb client
}

// PageCursor is the entity stored for each issued cursor. Key is the gob
// encoded last evaluated key.
type PageCursor struct {
	Cursor string `dynamodbav:"cursor"`
	Key    []byte `dynamodbav:"key,omitempty"`
}

// MarshalSelf implements Marshaler.
func (p *PageCursor) MarshalSelf(opts *MarshalOptions) error {
	opts.WithKind(CursorKind, p.Cursor)
	return nil
}

// PageCursor stores lastkey in the table under a fresh cursor id and returns
// the id. If lastkey is empty, an empty string is returned.
func (t *TablePaginator) PageCursor(ctx context.Context, lastkey Item) (string, error) {
	if len(lastkey) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(lastkey); err != nil {
		return "", fmt.Errorf("failed to encode last key: %w", err)
	}

	pageCursor := &PageCursor{
		Cursor: uuid.NewString(),
		Key:    buf.Bytes(),
	}

	putInput, err := t.table.MarshalPut(pageCursor, func(opts *MarshalOptions) {
		opts.TimeToLive = t.table.PaginationTTL
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal page cursor: %w", err)
	}

	if _, err := t.client.PutItem(ctx, putInput); err != nil {
		return "", fmt.Errorf("failed to store page cursor: %w", err)
	}

	return pageCursor.Cursor, nil
}

// StartKey retrieves the key stored under cursor. Unknown or expired cursors
// yield a nil key.
func (t *TablePaginator) StartKey(ctx context.Context, cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}

	pageCursor := &PageCursor{Cursor: cursor}

	getInput, err := t.table.MarshalGet(pageCursor)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal get request: %w", err)
	}

	result, err := t.client.GetItem(ctx, getInput)
	if err != nil {
		return nil, fmt.Errorf("failed to get page cursor: %w", err)
	}

	if len(result.Item) == 0 {
		return nil, nil
	}

	if _, err := UnmarshalEntity(result.Item, pageCursor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal page cursor: %w", err)
	}

	if len(pageCursor.Key) == 0 {
		return nil, nil
	}

	var keyData map[string]types.AttributeValue
	if err := gob.NewDecoder(bytes.NewReader(pageCursor.Key)).Decode(&keyData); err != nil {
		return nil, fmt.Errorf("failed to decode last key: %w", err)
	}

	return keyData, nil
}

// Paginator returns a Paginator to extract and generate client cursors.
func (t *Table) Paginator(client DynamoDBClient) Paginator {
	return &TablePaginator{
		table:  t,
		client: client,
	}
}
