package dynamock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nisimpson/dynafield"
)

// Call is the signature shared by every DynamoDB client operation.
type Call[T, U any] = func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// DynamoDBAPI defines the DynamoDB operations required by dynafield.
type DynamoDBAPI = dynafield.DynamoDBClient

// MockClient is an expectation-based mock for DynamoDB operations. Set the
// function of each operation the test expects; any other call fails the test.
type MockClient struct {
	PutFunc            Call[dynamodb.PutItemInput, dynamodb.PutItemOutput]
	GetFunc            Call[dynamodb.GetItemInput, dynamodb.GetItemOutput]
	QueryFunc          Call[dynamodb.QueryInput, dynamodb.QueryOutput]
	ScanFunc           Call[dynamodb.ScanInput, dynamodb.ScanOutput]
	BatchWriteItemFunc Call[dynamodb.BatchWriteItemInput, dynamodb.BatchWriteItemOutput]
	DeleteFunc         Call[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput]
	UpdateFunc         Call[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput]
}

var _ DynamoDBAPI = (*MockClient)(nil)

// NewMockClient creates a mock whose operations all fail t when called.
func NewMockClient(t testing.TB) *MockClient {
	return &MockClient{
		PutFunc:            unexpected[dynamodb.PutItemInput, dynamodb.PutItemOutput](t, "PutItem"),
		GetFunc:            unexpected[dynamodb.GetItemInput, dynamodb.GetItemOutput](t, "GetItem"),
		QueryFunc:          unexpected[dynamodb.QueryInput, dynamodb.QueryOutput](t, "Query"),
		ScanFunc:           unexpected[dynamodb.ScanInput, dynamodb.ScanOutput](t, "Scan"),
		BatchWriteItemFunc: unexpected[dynamodb.BatchWriteItemInput, dynamodb.BatchWriteItemOutput](t, "BatchWriteItem"),
		DeleteFunc:         unexpected[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput](t, "DeleteItem"),
		UpdateFunc:         unexpected[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput](t, "UpdateItem"),
	}
}

func unexpected[T, U any](t testing.TB, operation string) Call[T, U] {
	return func(ctx context.Context, params *T, optFns ...func(*dynamodb.Options)) (*U, error) {
		t.Helper()
		t.Fatalf("unexpected call to %s", operation)
		return nil, nil
	}
}

func (m *MockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return m.PutFunc(ctx, params, optFns...)
}

func (m *MockClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.GetFunc(ctx, params, optFns...)
}

func (m *MockClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return m.UpdateFunc(ctx, params, optFns...)
}

func (m *MockClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return m.DeleteFunc(ctx, params, optFns...)
}

func (m *MockClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return m.BatchWriteItemFunc(ctx, params, optFns...)
}

func (m *MockClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return m.QueryFunc(ctx, params, optFns...)
}

func (m *MockClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return m.ScanFunc(ctx, params, optFns...)
}
