package dynamock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynafield"
)

// ErrUnsupportedOperation is returned by MemoryClient for operations it does
// not implement.
var ErrUnsupportedOperation = errors.New("dynamock: unsupported operation")

// KeySchema names the hash and range attributes of a table or index.
type KeySchema struct {
	Hash  string
	Range string
}

func (k KeySchema) attributes() []string {
	if k.Range == "" {
		return []string{k.Hash}
	}
	return []string{k.Hash, k.Range}
}

type memoryTable struct {
	key     KeySchema
	indexes map[string]KeySchema
	items   map[string]dynafield.Item
}

// MemoryClient is an in-memory DynamoDB. It evaluates condition, key condition,
// filter and projection expressions the way DynamoDB does, so queries built
// with the expression package can be tested without a server.
//
// Tables must be created before use:
//
//	ddb := dynamock.NewMemoryClient()
//	ddb.CreateTable(table)
type MemoryClient struct {
	mu     sync.RWMutex
	tables map[string]*memoryTable
	logger *slog.Logger
}

var _ DynamoDBAPI = (*MemoryClient)(nil)

// MemoryOption configures a MemoryClient.
type MemoryOption func(*MemoryClient)

// WithMemoryLogger sets the logger receiving a debug record per operation.
func WithMemoryLogger(logger *slog.Logger) MemoryOption {
	return func(m *MemoryClient) { m.logger = logger }
}

// NewMemoryClient returns an empty MemoryClient.
func NewMemoryClient(opts ...MemoryOption) *MemoryClient {
	m := &MemoryClient{
		tables: make(map[string]*memoryTable),
		logger: dynafield.NoopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateTable creates the table described by t: the envelope key attributes
// and the kind index. Creating an existing table removes its items.
func (m *MemoryClient) CreateTable(t *dynafield.Table) {
	m.CreateTableWithSchema(t.TableName,
		KeySchema{Hash: dynafield.AttributeNameKey, Range: dynafield.AttributeNameSort},
		map[string]KeySchema{
			t.KindIndexName: {Hash: dynafield.AttributeNameKind, Range: dynafield.AttributeNameKindKey},
		},
	)
}

// CreateTableWithSchema creates a table with an arbitrary key schema and
// global secondary indexes.
func (m *MemoryClient) CreateTableWithSchema(name string, key KeySchema, indexes map[string]KeySchema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = &memoryTable{
		key:     key,
		indexes: maps.Clone(indexes),
		items:   make(map[string]dynafield.Item),
	}
}

// Items returns a snapshot of the items of a table ordered by primary key.
func (m *MemoryClient) Items(tableName string) []dynafield.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	table, ok := m.tables[tableName]
	if !ok {
		return nil
	}
	items := table.sorted(table.key.attributes(), "")
	for i, item := range items {
		items[i] = maps.Clone(item)
	}
	return items
}

func (m *MemoryClient) table(name *string) (*memoryTable, error) {
	table, ok := m.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("table %q not found", aws.ToString(name))),
		}
	}
	return table, nil
}

func (t *memoryTable) primaryKey(item dynafield.Item) (string, error) {
	parts := make([]string, 0, 2)
	for _, name := range t.key.attributes() {
		av, ok := item[name]
		if !ok {
			return "", fmt.Errorf("validation error: missing key attribute %s", name)
		}
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			parts = append(parts, "S:"+v.Value)
		case *types.AttributeValueMemberN:
			parts = append(parts, "N:"+canonicalNumber(v.Value))
		case *types.AttributeValueMemberB:
			parts = append(parts, "B:"+string(v.Value))
		default:
			return "", fmt.Errorf("validation error: key attribute %s must be S, N or B", name)
		}
	}
	return strings.Join(parts, "\x00"), nil
}

func (t *memoryTable) keyOf(item dynafield.Item, extra ...string) dynafield.Item {
	key := make(dynafield.Item)
	for _, name := range append(t.key.attributes(), extra...) {
		if av, ok := item[name]; ok {
			key[name] = av
		}
	}
	return key
}

// sorted returns the items ordered by attrs. The attribute named reverse, if
// any, sorts in descending order.
func (t *memoryTable) sorted(attrs []string, reverse string) []dynafield.Item {
	items := slices.Collect(maps.Values(t.items))
	slices.SortFunc(items, func(a, b dynafield.Item) int {
		return compareItems(a, b, attrs, reverse)
	})
	return items
}

func compareItems(a, b dynafield.Item, attrs []string, reverse string) int {
	for _, name := range attrs {
		av, aok := a[name]
		bv, bok := b[name]
		var cmp int
		switch {
		case !aok && !bok:
			continue
		case !aok:
			cmp = -1
		case !bok:
			cmp = 1
		default:
			cmp, _ = orderValues(av, bv)
		}
		if cmp == 0 {
			continue
		}
		if name == reverse {
			return -cmp
		}
		return cmp
	}
	return 0
}

type expressionInput struct {
	names  map[string]string
	values map[string]types.AttributeValue
}

func (in expressionInput) condition(expr *string) (condition, error) {
	if aws.ToString(expr) == "" {
		return nil, nil
	}
	cond, err := parseCondition(aws.ToString(expr), in.names)
	if err != nil {
		return nil, fmt.Errorf("validation error: invalid expression %q: %w", aws.ToString(expr), err)
	}
	return cond, nil
}

func (in expressionInput) matches(cond condition, item dynafield.Item) (bool, error) {
	if cond == nil {
		return true, nil
	}
	e := evaluator{values: in.values}
	return e.eval(cond, item)
}

func (in expressionInput) project(expr *string, item dynafield.Item) (dynafield.Item, error) {
	if aws.ToString(expr) == "" || item == nil {
		return item, nil
	}
	paths, err := parseProjection(aws.ToString(expr), in.names)
	if err != nil {
		return nil, fmt.Errorf("validation error: invalid projection %q: %w", aws.ToString(expr), err)
	}
	return projectItem(item, paths), nil
}

// checkCondition evaluates a write condition against the current item, or an
// empty item when there is none.
func (in expressionInput) checkCondition(expr *string, current dynafield.Item) error {
	cond, err := in.condition(expr)
	if err != nil || cond == nil {
		return err
	}
	if current == nil {
		current = dynafield.Item{}
	}
	ok, err := in.matches(cond, current)
	if err != nil {
		return err
	}
	if !ok {
		return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	return nil
}

func (m *MemoryClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	pk, err := table.primaryKey(params.Item)
	if err != nil {
		return nil, err
	}

	old := table.items[pk]
	in := expressionInput{params.ExpressionAttributeNames, params.ExpressionAttributeValues}
	if err := in.checkCondition(params.ConditionExpression, old); err != nil {
		return nil, err
	}

	table.items[pk] = maps.Clone(params.Item)
	m.logger.Debug("put item", "table", aws.ToString(params.TableName), "replaced", old != nil)

	out := &dynamodb.PutItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}

func (m *MemoryClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	table, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	pk, err := table.primaryKey(params.Key)
	if err != nil {
		return nil, err
	}

	in := expressionInput{names: params.ExpressionAttributeNames}
	item, err := in.project(params.ProjectionExpression, maps.Clone(table.items[pk]))
	if err != nil {
		return nil, err
	}

	m.logger.Debug("get item", "table", aws.ToString(params.TableName), "found", item != nil)
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (m *MemoryClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	pk, err := table.primaryKey(params.Key)
	if err != nil {
		return nil, err
	}

	old := table.items[pk]
	in := expressionInput{params.ExpressionAttributeNames, params.ExpressionAttributeValues}
	if err := in.checkCondition(params.ConditionExpression, old); err != nil {
		return nil, err
	}

	delete(table.items, pk)
	m.logger.Debug("delete item", "table", aws.ToString(params.TableName), "deleted", old != nil)

	out := &dynamodb.DeleteItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}

func (m *MemoryClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, requests := range params.RequestItems {
		if len(requests) > dynafield.MaxBatchSize {
			return nil, fmt.Errorf("validation error: too many items requested for the BatchWriteItem call")
		}
		table, err := m.table(aws.String(name))
		if err != nil {
			return nil, err
		}
		for _, req := range requests {
			switch {
			case req.PutRequest != nil:
				pk, err := table.primaryKey(req.PutRequest.Item)
				if err != nil {
					return nil, err
				}
				table.items[pk] = maps.Clone(req.PutRequest.Item)
			case req.DeleteRequest != nil:
				pk, err := table.primaryKey(req.DeleteRequest.Key)
				if err != nil {
					return nil, err
				}
				delete(table.items, pk)
			}
		}
		m.logger.Debug("batch write", "table", name, "requests", len(requests))
	}

	return &dynamodb.BatchWriteItemOutput{
		UnprocessedItems: map[string][]types.WriteRequest{},
	}, nil
}

func (m *MemoryClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	table, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}

	schema := table.key
	if name := aws.ToString(params.IndexName); name != "" {
		index, ok := table.indexes[name]
		if !ok {
			return nil, fmt.Errorf("validation error: table %s has no index %s", aws.ToString(params.TableName), name)
		}
		schema = index
	}

	if aws.ToString(params.KeyConditionExpression) == "" {
		return nil, fmt.Errorf("validation error: key condition expression is required")
	}

	in := expressionInput{params.ExpressionAttributeNames, params.ExpressionAttributeValues}
	keyCond, err := in.condition(params.KeyConditionExpression)
	if err != nil {
		return nil, err
	}
	filter, err := in.condition(params.FilterExpression)
	if err != nil {
		return nil, err
	}

	// Index order first, table key as tie breaker.
	order := slices.Concat(schema.attributes(), table.key.attributes())
	if schema.Range == "" {
		order = table.key.attributes()
	}
	var reverse string
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		reverse = schema.Range
	}

	var candidates []dynafield.Item
	for _, item := range table.sorted(order, reverse) {
		if _, ok := item[schema.Hash]; !ok {
			continue
		}
		ok, err := in.matches(keyCond, item)
		if err != nil {
			return nil, err
		}
		if ok {
			candidates = append(candidates, item)
		}
	}

	page, last := paginate(candidates, params.ExclusiveStartKey, order, reverse, params.Limit)

	out := &dynamodb.QueryOutput{ScannedCount: int32(len(page))}
	for _, item := range page {
		ok, err := in.matches(filter, item)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		projected, err := in.project(params.ProjectionExpression, maps.Clone(item))
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, projected)
	}
	out.Count = int32(len(out.Items))
	if last != nil {
		out.LastEvaluatedKey = table.keyOf(last, schema.attributes()...)
	}

	m.logger.Debug("query",
		"table", aws.ToString(params.TableName),
		"index", aws.ToString(params.IndexName),
		"scanned", out.ScannedCount,
		"count", out.Count,
	)
	return out, nil
}

func (m *MemoryClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	table, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}

	in := expressionInput{params.ExpressionAttributeNames, params.ExpressionAttributeValues}
	filter, err := in.condition(params.FilterExpression)
	if err != nil {
		return nil, err
	}

	order := table.key.attributes()
	page, last := paginate(table.sorted(order, ""), params.ExclusiveStartKey, order, "", params.Limit)

	out := &dynamodb.ScanOutput{ScannedCount: int32(len(page))}
	for _, item := range page {
		ok, err := in.matches(filter, item)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		projected, err := in.project(params.ProjectionExpression, maps.Clone(item))
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, projected)
	}
	out.Count = int32(len(out.Items))
	if last != nil {
		out.LastEvaluatedKey = table.keyOf(last)
	}

	m.logger.Debug("scan", "table", aws.ToString(params.TableName), "scanned", out.ScannedCount, "count", out.Count)
	return out, nil
}

// UpdateItem is not implemented; dynafield writes whole items.
func (m *MemoryClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return nil, fmt.Errorf("%w: UpdateItem", ErrUnsupportedOperation)
}

// paginate skips the items up to and including startKey and cuts the result
// at limit. The last evaluated item is returned when more items remain.
func paginate(items []dynafield.Item, startKey dynafield.Item, order []string, reverse string, limit *int32) ([]dynafield.Item, dynafield.Item) {
	if len(startKey) > 0 {
		i := 0
		for i < len(items) && compareItems(items[i], startKey, order, reverse) <= 0 {
			i++
		}
		items = items[i:]
	}
	if n := int(aws.ToInt32(limit)); n > 0 && len(items) > n {
		return items[:n], items[n-1]
	}
	return items, nil
}

// projectItem copies the attributes named by paths, keeping their nesting.
// List elements keep their relative order.
func projectItem(item dynafield.Item, paths []docPath) dynafield.Item {
	out := make(dynafield.Item)
	for _, path := range paths {
		value, ok := lookupPath(item, path)
		if !ok {
			continue
		}
		root := &types.AttributeValueMemberM{Value: out}
		setPath(root, path, value)
	}
	return out
}

func setPath(parent types.AttributeValue, path docPath, value types.AttributeValue) types.AttributeValue {
	if len(path) == 0 {
		return value
	}
	elem := path[0]
	if elem.list {
		list, ok := parent.(*types.AttributeValueMemberL)
		if !ok {
			list = &types.AttributeValueMemberL{}
		}
		var child types.AttributeValue
		if len(path) > 1 {
			child = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
			if path[1].list {
				child = &types.AttributeValueMemberL{}
			}
		}
		list.Value = append(list.Value, setPath(child, path[1:], value))
		return list
	}

	m, ok := parent.(*types.AttributeValueMemberM)
	if !ok {
		m = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
	}
	child := m.Value[elem.name]
	if child == nil && len(path) > 1 {
		if path[1].list {
			child = &types.AttributeValueMemberL{}
		} else {
			child = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
		}
	}
	m.Value[elem.name] = setPath(child, path[1:], value)
	return m
}
