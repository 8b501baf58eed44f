package dynamock

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nisimpson/dynafield"
)

func TestNewLocalDynamoDB(t *testing.T) {
	local := NewLocalDynamoDB(8000)

	if local.Client == nil {
		t.Error("Client is nil")
	}
	if local.Endpoint != "http://localhost:8000" {
		t.Errorf("expected endpoint http://localhost:8000, got %s", local.Endpoint)
	}
	if local.Port != 8000 {
		t.Errorf("expected port 8000, got %d", local.Port)
	}
}

func TestNewDefaultLocalDynamoDB(t *testing.T) {
	local := NewDefaultLocalDynamoDB()
	if local.Port != DefaultLocalPort {
		t.Errorf("expected port %d, got %d", DefaultLocalPort, local.Port)
	}
}

func TestNewLocalClientFromConfig(t *testing.T) {
	client := NewLocalClientFromConfig(aws.Config{Region: "us-west-2"}, 8001)
	if client == nil {
		t.Fatal("NewLocalClientFromConfig returned nil")
	}
	if got := aws.ToString(client.Options().BaseEndpoint); got != "http://localhost:8001" {
		t.Errorf("expected endpoint http://localhost:8001, got %s", got)
	}
}

func TestLoadLocalClient(t *testing.T) {
	client, err := LoadLocalClient(context.Background(), 8002)
	if err != nil {
		t.Fatalf("LoadLocalClient failed: %v", err)
	}
	if got := aws.ToString(client.Options().BaseEndpoint); got != "http://localhost:8002" {
		t.Errorf("expected endpoint http://localhost:8002, got %s", got)
	}
}

func TestCreateTableInput(t *testing.T) {
	table := dynafield.NewTable("brands", dynafield.WithKindIndex("by-kind"))
	input := CreateTableInput(table)

	if aws.ToString(input.TableName) != "brands" {
		t.Errorf("expected table name brands, got %s", aws.ToString(input.TableName))
	}
	if len(input.KeySchema) != 2 || aws.ToString(input.KeySchema[0].AttributeName) != dynafield.AttributeNameKey {
		t.Errorf("unexpected key schema %+v", input.KeySchema)
	}
	if len(input.GlobalSecondaryIndexes) != 1 {
		t.Fatalf("expected one index, got %d", len(input.GlobalSecondaryIndexes))
	}
	gsi := input.GlobalSecondaryIndexes[0]
	if aws.ToString(gsi.IndexName) != "by-kind" {
		t.Errorf("expected index by-kind, got %s", aws.ToString(gsi.IndexName))
	}
	if aws.ToString(gsi.KeySchema[0].AttributeName) != dynafield.AttributeNameKind ||
		aws.ToString(gsi.KeySchema[1].AttributeName) != dynafield.AttributeNameKindKey {
		t.Errorf("unexpected index key schema %+v", gsi.KeySchema)
	}
}

func TestLocalDynamoDB_IsAvailable(t *testing.T) {
	local := NewLocalDynamoDB(9999)
	if local.IsAvailable(context.Background()) {
		t.Error("expected IsAvailable to return false for unused port")
	}
}

func TestLocalDynamoDB_WaitForAvailable(t *testing.T) {
	local := NewLocalDynamoDB(9999)
	if err := local.WaitForAvailable(context.Background(), time.Second); err == nil {
		t.Error("expected WaitForAvailable to time out")
	}
}

func TestLocalDynamoDB_Integration(t *testing.T) {
	WithDefaultLocalDynamoDB(t, func(local *LocalDynamoDB) {
		ctx := context.Background()
		table := dynafield.NewTable(NewTestTableName("local-test"))

		if err := local.CreateTable(ctx, table); err != nil {
			t.Fatalf("failed to create table: %v", err)
		}

		out, err := local.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
		if err != nil {
			t.Fatalf("failed to list tables: %v", err)
		}
		if !slices.Contains(out.TableNames, table.TableName) {
			t.Errorf("table %s not found in table list", table.TableName)
		}

		if err := local.DeleteTable(ctx, table.TableName); err != nil {
			t.Errorf("failed to delete table: %v", err)
		}
	})
}
