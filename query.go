package dynafield

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// QueryMarshaler can marshal input into a dynamodb query request.
type QueryMarshaler interface {
	MarshalQuery() (*dynamodb.QueryInput, error)
	UseKindIndex() bool
}

// QueryKind is a QueryMarshaler that lists the entities of one kind through the
// kind index. Filter takes any condition, including the ones built from a
// [DictionaryField]:
//
//	query := &dynafield.QueryKind{
//	    Kind:   "brand_stats",
//	    Filter: clients.MustAtKey("US").Equal(7810),
//	}
type QueryKind struct {
	Kind           string                         // The entity kind
	SortFilter     expression.KeyConditionBuilder // Optional condition on the kind sort key
	Filter         expression.ConditionBuilder    // Optional filter on the entity attributes
	Projection     *expression.ProjectionBuilder  // Optional projection
	Limit          int                            // Maximum number of items to evaluate
	StartKey       Item                           // Exclusive start key for pagination
	SortDescending bool                           // Scan direction (default: false)
}

// MarshalQuery implements QueryMarshaler for QueryKind.
func (q *QueryKind) MarshalQuery() (*dynamodb.QueryInput, error) {
	if q.Kind == "" {
		return nil, fmt.Errorf("query kind is required")
	}

	keyCondition := expression.Key(AttributeNameKind).Equal(expression.Value(q.Kind))
	if q.SortFilter.IsSet() {
		keyCondition = keyCondition.And(q.SortFilter)
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCondition)
	if q.Filter.IsSet() {
		builder = builder.WithFilter(q.Filter)
	}
	if q.Projection != nil {
		builder = builder.WithProjection(*q.Projection)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, filterError(err)
	}

	input := &dynamodb.QueryInput{
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ScanIndexForward:          aws.Bool(!q.SortDescending),
	}

	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}

	if q.StartKey != nil {
		input.ExclusiveStartKey = q.StartKey
	}

	return input, nil
}

func (QueryKind) UseKindIndex() bool { return true }

// Scan is a full table scan with an optional filter. Prefer [QueryKind]; Scan
// exists for filters that span kinds.
type Scan struct {
	Filter     expression.ConditionBuilder   // Optional filter
	Projection *expression.ProjectionBuilder // Optional projection
	Limit      int                           // Maximum number of items to evaluate
	StartKey   Item                          // Exclusive start key for pagination
}

// MarshalScan marshals the input into a scan request.
func (t *Table) MarshalScan(in *Scan) (*dynamodb.ScanInput, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(t.TableName)}

	if in.Filter.IsSet() || in.Projection != nil {
		builder := expression.NewBuilder()
		if in.Filter.IsSet() {
			builder = builder.WithFilter(in.Filter)
		}
		if in.Projection != nil {
			builder = builder.WithProjection(*in.Projection)
		}

		expr, err := builder.Build()
		if err != nil {
			return nil, filterError(err)
		}

		input.FilterExpression = expr.Filter()
		input.ProjectionExpression = expr.Projection()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if in.Limit > 0 {
		input.Limit = aws.Int32(int32(in.Limit))
	}
	if in.StartKey != nil {
		input.ExclusiveStartKey = in.StartKey
	}

	t.logger().Debug("marshal scan", "filter", aws.ToString(input.FilterExpression))

	return input, nil
}

// filterError reports expression builder failures as a BadFilterError, so that
// callers see one error type for every filter that could not be built.
func filterError(err error) error {
	var bad *BadFilterError
	if errors.As(err, &bad) {
		return err
	}
	return &BadFilterError{Reason: "failed to build expression", Err: err}
}
