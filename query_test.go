package dynafield

import (
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Tests for query functionality

func TestQueryKind(t *testing.T) {
	table := NewTable("test-table")

	t.Run("basic query", func(t *testing.T) {
		queryInput, err := table.MarshalQuery(&QueryKind{Kind: "brand_stats", Limit: 10})
		if err != nil {
			t.Fatalf("Failed to marshal query: %v", err)
		}

		if aws.ToString(queryInput.TableName) != "test-table" {
			t.Errorf("Expected table name 'test-table', got %s", aws.ToString(queryInput.TableName))
		}
		if aws.ToString(queryInput.IndexName) != "kind-index" {
			t.Errorf("Expected index name 'kind-index', got %s", aws.ToString(queryInput.IndexName))
		}
		if aws.ToInt32(queryInput.Limit) != 10 {
			t.Errorf("Expected limit 10, got %d", aws.ToInt32(queryInput.Limit))
		}
		if !aws.ToBool(queryInput.ScanIndexForward) {
			t.Error("Expected ascending scan")
		}
		if queryInput.FilterExpression != nil {
			t.Errorf("Expected no filter, got %s", aws.ToString(queryInput.FilterExpression))
		}
	})

	t.Run("with dictionary filter", func(t *testing.T) {
		queryInput, err := table.MarshalQuery(&QueryKind{
			Kind:           "brand_stats",
			SortFilter:     expression.Key(AttributeNameKindKey).BeginsWith("B"),
			Filter:         clientsField.MustAtKey("US").Equal(7810),
			StartKey:       Item{"test": &types.AttributeValueMemberS{Value: "test"}},
			SortDescending: true,
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		filter := aws.ToString(queryInput.FilterExpression)
		if !strings.Contains(filter, "=") {
			t.Errorf("Expected an equality filter, got %s", filter)
		}
		var names []string
		for _, name := range queryInput.ExpressionAttributeNames {
			names = append(names, name)
		}
		joined := strings.Join(names, ",")
		if !strings.Contains(joined, "clients") || !strings.Contains(joined, "US") {
			t.Errorf("Expected names clients and US, got %v", names)
		}
		if aws.ToBool(queryInput.ScanIndexForward) {
			t.Error("Expected descending scan")
		}
		if queryInput.ExclusiveStartKey == nil {
			t.Error("Expected start key to be set")
		}
	})

	t.Run("with unset filter", func(t *testing.T) {
		queryInput, err := table.MarshalQuery(&QueryKind{Kind: "brand_stats", Filter: clientsField.Unset()})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		filter := aws.ToString(queryInput.FilterExpression)
		if !strings.Contains(filter, "attribute_not_exists") || !strings.Contains(filter, "attribute_type") {
			t.Errorf("Expected unset filter, got %s", filter)
		}
	})

	t.Run("with projection", func(t *testing.T) {
		proj, err := clientsField.Projection("US", "FR")
		if err != nil {
			t.Fatal(err)
		}
		queryInput, err := table.MarshalQuery(&QueryKind{Kind: "brand_stats", Projection: &proj})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if queryInput.ProjectionExpression == nil {
			t.Error("Expected projection expression")
		}
	})

	t.Run("missing kind", func(t *testing.T) {
		if _, err := table.MarshalQuery(&QueryKind{}); err == nil {
			t.Error("Expected error for missing kind")
		}
	})

	t.Run("custom kind index", func(t *testing.T) {
		custom := NewTable("test-table", WithKindIndex("by-kind"))
		queryInput, err := custom.MarshalQuery(&QueryKind{Kind: "brand_stats"})
		if err != nil {
			t.Fatal(err)
		}
		if aws.ToString(queryInput.IndexName) != "by-kind" {
			t.Errorf("Expected index by-kind, got %s", aws.ToString(queryInput.IndexName))
		}
	})
}

func TestMarshalScan(t *testing.T) {
	table := NewTable("test-table")

	t.Run("plain scan", func(t *testing.T) {
		input, err := table.MarshalScan(&Scan{})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if input.FilterExpression != nil || input.Limit != nil {
			t.Errorf("Expected bare scan, got %+v", input)
		}
	})

	t.Run("filtered scan", func(t *testing.T) {
		input, err := table.MarshalScan(&Scan{
			Filter:   clientsField.MustAtKey("FR").LessThan(7810),
			Limit:    5,
			StartKey: Item{"k": &types.AttributeValueMemberS{Value: "v"}},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if input.FilterExpression == nil {
			t.Error("Expected filter expression")
		}
		if aws.ToInt32(input.Limit) != 5 {
			t.Errorf("Expected limit 5, got %d", aws.ToInt32(input.Limit))
		}
		if input.ExclusiveStartKey == nil {
			t.Error("Expected start key")
		}
	})
}

func TestFilterError(t *testing.T) {
	err := filterError(errors.New("boom"))
	var bad *BadFilterError
	if !errors.As(err, &bad) {
		t.Fatalf("Expected BadFilterError, got %T", err)
	}
	if !errors.Is(err, ErrUnsupportedFilter) {
		t.Error("Expected error to match ErrUnsupportedFilter")
	}

	original := &BadFilterError{Field: "clients", Reason: "nope"}
	if filterError(original) != error(original) {
		t.Error("Expected BadFilterError to pass through unchanged")
	}
}
