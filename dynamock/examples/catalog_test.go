package examples

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynafield"
	"github.com/nisimpson/dynafield/dynamock"
	"github.com/nisimpson/dynafield/dynamock/assert"
)

func newCatalog(t *testing.T, entities ...dynafield.Marshaler) (*dynamock.MemoryClient, *dynafield.Table) {
	t.Helper()
	table := dynafield.NewTable("catalog")
	ddb := dynamock.NewMemoryClient()
	ddb.CreateTable(table)

	if err := dynamock.NewSeeder(ddb, table).SeedBatch(context.Background(), entities...); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}
	return ddb, table
}

func query(t *testing.T, ddb *dynamock.MemoryClient, table *dynafield.Table, q *dynafield.QueryKind) []dynafield.Item {
	t.Helper()
	input, err := table.MarshalQuery(q)
	if err != nil {
		t.Fatalf("failed to marshal query: %v", err)
	}
	out, err := ddb.Query(context.Background(), input)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return out.Items
}

func TestNewProduct(t *testing.T) {
	product := NewProduct().
		WithID("P1").
		WithCategory("electronics").
		WithName("Headphones").
		WithPrice("USD", 199.99).
		WithPrice("EUR", 180).
		WithSpec("color", "black").
		Build()

	assert.Entity(t, product).
		CanMarshal().
		HasKind("product").
		HasID("P1")

	record, err := product.Dictionary("prices")
	if err != nil {
		t.Fatal(err)
	}
	usd, err := dynafield.Lookup[float64](record, "USD")
	if err != nil || usd != 199.99 {
		t.Errorf("expected USD 199.99, got %v (%v)", usd, err)
	}
	if eur, err := record.GetOr("EUR", nil); err != nil || eur != int64(180) {
		t.Errorf("expected EUR to read back as int64(180), got %#v (%v)", eur, err)
	}

	var specs dynafield.JSON[map[string]string]
	if err := product.Attribute("specs", &specs); err != nil {
		t.Fatal(err)
	}
	if specs.Value["color"] != "black" {
		t.Errorf("expected black color spec, got %v", specs.Value)
	}
}

func TestNewProduct_Unpriced(t *testing.T) {
	product := NewProduct().WithID("P1").WithCategory("books").Unpriced().Build()

	item, err := dynafield.MarshalEntity(product)
	if err != nil {
		t.Fatal(err)
	}
	assert.Item(t, item).
		IsKind("product").
		HasUnsetField("prices").
		HasUnsetField("specs")
}

func TestNewCustomer(t *testing.T) {
	customer := NewCustomer().
		WithID("C1").
		WithEmail("jane@example.com").
		WithName("Jane").
		Premium().
		WithPreference("newsletter", true).
		WithPreference("currency", "EUR").
		Build()

	item, err := dynafield.MarshalEntity(customer)
	if err != nil {
		t.Fatal(err)
	}
	assert.Item(t, item).
		IsKind("customer").
		HasKey("customer#C1").
		HasAttribute("tier", "premium").
		HasDictionaryEntry("preferences", "newsletter", true).
		HasDictionaryKeys("preferences", "newsletter", "currency")

	plain, err := dynafield.MarshalEntity(QuickCustomer("C2", "joe@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	assert.Item(t, plain).
		HasAttribute("tier", "standard").
		HasUnsetField("preferences")
}

func TestCatalog_FilterByPrice(t *testing.T) {
	ddb, table := newCatalog(t,
		NewProduct().WithID("P1").WithCategory("electronics").WithPrice("USD", 30).WithPrice("EUR", 28).Build(),
		NewProduct().WithID("P2").WithCategory("electronics").WithPrice("USD", 300).WithPrice("EUR", 280).Build(),
		NewProduct().WithID("P3").WithCategory("books").WithPrice("USD", 12).Build(),
		NewProduct().WithID("P4").WithCategory("books").Unpriced().Build(),
	)

	items := query(t, ddb, table, &dynafield.QueryKind{
		Kind:   "product",
		Filter: prices.MustAtKey("EUR").LessThan(100),
	})
	assert.Items(t, items).
		HasCount(1).
		ContainsEntity("product", "P1")

	items = query(t, ddb, table, &dynafield.QueryKind{
		Kind:   "product",
		Filter: prices.MustAtKey("USD").LessThan(100),
	})
	assert.Items(t, items).
		HasCount(2).
		ContainsEntity("product", "P1").
		ContainsEntity("product", "P3")

	items = query(t, ddb, table, &dynafield.QueryKind{
		Kind:   "product",
		Filter: prices.Unset(),
	})
	assert.Items(t, items).
		HasCount(1).
		ContainsEntity("product", "P4")
}

func TestCatalog_ByCategory(t *testing.T) {
	ddb, table := newCatalog(t,
		QuickProduct("P1", "electronics", 30),
		QuickProduct("P2", "books", 12),
		QuickProduct("P3", "electronics", 300),
		QuickCustomer("C1", "jane@example.com"),
	)

	items := query(t, ddb, table, &dynafield.QueryKind{
		Kind:       "product",
		SortFilter: expression.Key(dynafield.AttributeNameKindKey).BeginsWith("electronics#"),
	})
	assert.Items(t, items).
		HasCount(2).
		AllOfKind("product").
		ContainsEntity("product", "P1").
		ContainsEntity("product", "P3").
		NotContainsEntity("product", "P2")
}

func TestCatalog_PriceProjection(t *testing.T) {
	ddb, table := newCatalog(t,
		NewProduct().WithID("P1").WithCategory("books").WithPrice("USD", 12).WithPrice("EUR", 11).Build(),
	)

	proj, err := prices.Projection("USD")
	if err != nil {
		t.Fatal(err)
	}
	items := query(t, ddb, table, &dynafield.QueryKind{Kind: "product", Projection: &proj})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	assert.Item(t, items[0]).
		HasDictionaryKeys("prices", "USD").
		HasDictionaryEntry("prices", "USD", 12)
	if _, ok := items[0]["name"]; ok {
		t.Error("expected name to be projected out")
	}
}

func TestCustomers_ByTier(t *testing.T) {
	ddb, table := newCatalog(t,
		QuickCustomer("C1", "a@example.com"),
		QuickPremiumCustomer("C2", "b@example.com"),
		QuickPremiumCustomer("C3", "c@example.com"),
	)

	items := query(t, ddb, table, &dynafield.QueryKind{
		Kind:           "customer",
		SortFilter:     expression.Key(dynafield.AttributeNameKindKey).BeginsWith("premium#"),
		SortDescending: true,
	})
	assert.Items(t, items).HasCount(2)

	var customers []dynamock.TestEntity
	if _, err := dynafield.UnmarshalList(items, &customers); err != nil {
		t.Fatal(err)
	}
	if customers[0].ID() != "C3" || customers[1].ID() != "C2" {
		t.Errorf("expected C3 then C2, got %s then %s", customers[0].ID(), customers[1].ID())
	}
}

func TestCatalog_WithMockClient(t *testing.T) {
	mock := dynamock.NewMockClient(t)
	table := dynafield.NewTable("catalog")

	var written []dynafield.Item
	mock.BatchWriteItemFunc = func(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
		for _, req := range params.RequestItems[table.TableName] {
			written = append(written, req.PutRequest.Item)
		}
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}, nil
	}

	err := dynamock.NewSeeder(mock, table).SeedBatch(context.Background(),
		QuickProduct("P1", "books", 12),
		QuickPremiumCustomer("C1", "jane@example.com"),
	)
	if err != nil {
		t.Fatal(err)
	}

	assert.Items(t, written).
		HasCount(2).
		ContainsEntity("product", "P1").
		ContainsEntity("customer", "C1")
}
