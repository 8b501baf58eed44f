// Package dynamock provides testing utilities for the dynafield library.
//
// This package includes:
//   - an expectation-based mock DynamoDB client for unit tests
//   - an in-memory DynamoDB that evaluates expressions
//   - DynamoDB Local helpers and integration test runners
//   - generic entity builders and JSON/YAML fixture seeding
//
// # Mock Client
//
// MockClient fails the test on any call the test did not expect:
//
//	mock := dynamock.NewMockClient(t)
//	mock.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
//		return &dynamodb.PutItemOutput{}, nil
//	}
//
// # Memory Client
//
// MemoryClient stores items in memory and runs Query and Scan with their key
// condition, filter and projection expressions, so filters built from
// dictionary fields can be checked end to end:
//
//	table := dynafield.NewTable("test-table")
//	ddb := dynamock.NewMemoryClient()
//	ddb.CreateTable(table)
//
//	clients := dynafield.MustDictionaryField("clients")
//	input, _ := table.MarshalQuery(&dynafield.QueryKind{
//		Kind:   "brand_stats",
//		Filter: clients.MustAtKey("US").Equal(7810),
//	})
//	out, _ := ddb.Query(ctx, input)
//
// Supported expression syntax: the comparators, BETWEEN, IN, AND, OR, NOT,
// parentheses and the functions attribute_exists, attribute_not_exists,
// attribute_type, begins_with, contains and size. UpdateItem is not supported.
//
// # Builders
//
// Entities are built with functional options:
//
//	entity := dynamock.NewEntity(
//		dynamock.WithKind("brand_stats"),
//		dynamock.WithID("B1"),
//		dynamock.WithAttribute("brand_name", "Google"),
//		dynamock.WithDictionary("clients", map[string]int{"US": 7810}),
//	).Build()
//
// # Seeding
//
// A Seeder writes entities, or fixtures read from JSON or YAML, through any
// client:
//
//	seeder := dynamock.NewSeeder(ddb, table)
//	n, err := seeder.SeedFromYAML(ctx, strings.NewReader(`
//	- kind: brand_stats
//	  id: B1
//	  dictionaries:
//	    clients: {US: 7810}
//	`))
//
// # Local DynamoDB
//
// Integration tests run against DynamoDB Local and are skipped when it is not
// reachable:
//
//	func TestIntegration(t *testing.T) {
//		dynamock.RunIntegrationTest(t, nil, func(local *dynamock.LocalDynamoDB, table *dynafield.Table) {
//			// use local.Client and table
//		})
//	}
//
// Start DynamoDB Local with:
//
//	docker run -p 8000:8000 amazon/dynamodb-local
package dynamock
