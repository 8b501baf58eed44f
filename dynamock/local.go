package dynamock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynafield"
)

// DefaultLocalPort is the default port for DynamoDB Local.
const DefaultLocalPort = 8000

// LocalDynamoDB represents a connection to a local DynamoDB instance.
type LocalDynamoDB struct {
	Client   *dynamodb.Client
	Endpoint string
	Port     int
}

func localEndpoint(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

// NewLocalClient creates a DynamoDB client for DynamoDB Local listening on port.
//
//	client := dynamock.NewLocalClient(8000)
func NewLocalClient(port int) *dynamodb.Client {
	cfg := aws.Config{
		Region:      "us-east-1", // ignored by DynamoDB Local
		Credentials: aws.AnonymousCredentials{},
	}
	return NewLocalClientFromConfig(cfg, port)
}

// NewLocalClientFromConfig creates a DynamoDB Local client from cfg. The
// endpoint and credentials of cfg are overridden.
func NewLocalClientFromConfig(cfg aws.Config, port int) *dynamodb.Client {
	cfg.Credentials = aws.AnonymousCredentials{}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(localEndpoint(port))
	})
}

// LoadLocalClient loads the shared AWS configuration, so that region and
// retry settings from the environment apply, and points it at DynamoDB Local.
func LoadLocalClient(ctx context.Context, port int) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewLocalClientFromConfig(cfg, port), nil
}

// NewLocalDynamoDB creates a LocalDynamoDB instance with the specified port.
func NewLocalDynamoDB(port int) *LocalDynamoDB {
	return &LocalDynamoDB{
		Client:   NewLocalClient(port),
		Endpoint: localEndpoint(port),
		Port:     port,
	}
}

// NewDefaultLocalDynamoDB creates a LocalDynamoDB instance on DefaultLocalPort.
func NewDefaultLocalDynamoDB() *LocalDynamoDB {
	return NewLocalDynamoDB(DefaultLocalPort)
}

// IsAvailable checks if DynamoDB Local is running on the configured port.
func (l *LocalDynamoDB) IsAvailable(ctx context.Context) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", l.Port), 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()

	_, err = l.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
	return err == nil
}

// WaitForAvailable polls until DynamoDB Local answers or timeout elapses.
func (l *LocalDynamoDB) WaitForAvailable(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if l.IsAvailable(ctx) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	return fmt.Errorf("DynamoDB Local not available at %s after %v", l.Endpoint, timeout)
}

// CreateTableInput returns the table definition used by dynafield: the
// envelope key attributes and the kind index projecting all attributes.
func CreateTableInput(table *dynafield.Table) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:   aws.String(table.TableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(dynafield.AttributeNameKey), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(dynafield.AttributeNameSort), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(dynafield.AttributeNameKind), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(dynafield.AttributeNameKindKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(dynafield.AttributeNameKey), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(dynafield.AttributeNameSort), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(table.KindIndexName),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String(dynafield.AttributeNameKind), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String(dynafield.AttributeNameKindKey), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	}
}

// CreateTable creates the dynafield table on DynamoDB Local and waits until
// it is active.
func (l *LocalDynamoDB) CreateTable(ctx context.Context, table *dynafield.Table) error {
	if _, err := l.Client.CreateTable(ctx, CreateTableInput(table)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table.TableName, err)
	}
	return l.WaitForTableActive(ctx, table.TableName, 30*time.Second)
}

// WaitForTableActive waits for a table to become active.
func (l *LocalDynamoDB) WaitForTableActive(ctx context.Context, tableName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		output, err := l.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			return fmt.Errorf("failed to describe table %s: %w", tableName, err)
		}

		if output.Table.TableStatus == types.TableStatusActive {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}

	return fmt.Errorf("table %s did not become active within %v", tableName, timeout)
}

// DeleteTable deletes a table and waits for it to be gone.
func (l *LocalDynamoDB) DeleteTable(ctx context.Context, tableName string) error {
	_, err := l.Client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete table %s: %w", tableName, err)
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		_, err := l.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		})
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error checking table deletion status: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}

	return fmt.Errorf("table %s was not deleted in time", tableName)
}
