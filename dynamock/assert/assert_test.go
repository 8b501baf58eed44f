package assert

import (
	"testing"
	"time"

	"github.com/nisimpson/dynafield"
	"github.com/nisimpson/dynafield/dynamock"
)

// recorder captures assertion failures instead of failing the test.
type recorder struct {
	testing.TB
	failures int
}

func (r *recorder) Helper()               {}
func (r *recorder) Error(args ...any)     { r.failures++ }
func (r *recorder) Errorf(string, ...any) { r.failures++ }

func brandItem(t *testing.T, id string, opts ...dynamock.EntityOption) dynafield.Item {
	t.Helper()
	opts = append([]dynamock.EntityOption{
		dynamock.WithKind("brand_stats"),
		dynamock.WithID(id),
		dynamock.WithCreated(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}, opts...)
	item, err := dynafield.MarshalEntity(dynamock.NewEntity(opts...).Build())
	if err != nil {
		t.Fatalf("failed to marshal entity: %v", err)
	}
	return item
}

func TestItemsAssertion(t *testing.T) {
	items := []dynafield.Item{
		brandItem(t, "B1", dynamock.WithAttribute("brand_name", "Google")),
		brandItem(t, "B2", dynamock.WithAttribute("brand_name", "Apple")),
	}

	Items(t, items).
		HasCount(2).
		IsNotEmpty().
		ContainsEntity("brand_stats", "B1").
		ContainsEntity("brand_stats", "B2").
		NotContainsEntity("brand_stats", "B3").
		AllOfKind("brand_stats").
		HasAttribute("brand_name", "Apple")

	Items(t, nil).IsEmpty()
}

func TestItemsAssertion_KeyDelimiter(t *testing.T) {
	item := brandItem(t, "B1", dynamock.WithKeyDelimiter("|"))
	Items(t, []dynafield.Item{item}).
		WithKeyDelimiter("|").
		ContainsEntity("brand_stats", "B1")
}

func TestItemAssertion(t *testing.T) {
	item := brandItem(t, "B1",
		dynamock.WithAttribute("brand_name", "Google"),
		dynamock.WithDictionary("clients", map[string]any{"US": 7810, "FR": 78.5, "tier": "gold"}),
		dynamock.WithDictionary("regions", map[string]int{}),
		dynamock.WithUnsetDictionary("partners"),
	)

	Item(t, item).
		IsKind("brand_stats").
		HasKey("brand_stats#B1").
		HasAttribute("brand_name", "Google").
		HasDictionaryEntry("clients", "US", 7810).
		HasDictionaryEntry("clients", "FR", 78.5).
		HasDictionaryEntry("clients", "tier", "gold").
		LacksDictionaryKey("clients", "DE").
		HasDictionaryKeys("clients", "FR", "US", "tier").
		HasEmptyDictionary("regions").
		HasUnsetField("partners").
		HasUnsetField("never_assigned")
}

func TestEntityAssertion(t *testing.T) {
	entity := dynamock.NewEntity(
		dynamock.WithKind("brand_stats"),
		dynamock.WithID("B1"),
	).Build()

	Entity(t, entity).
		CanMarshal().
		HasKind("brand_stats").
		HasID("B1")
}

func TestAssertionFailures(t *testing.T) {
	item := brandItem(t, "B1",
		dynamock.WithDictionary("clients", map[string]int{"US": 7810}),
	)
	bad := dynamock.NewEntity(dynamock.WithDictionary("clients", map[string]int{"": 1})).Build()

	tests := []struct {
		name   string
		assert func(r *recorder)
	}{
		{"count", func(r *recorder) { Items(r, []dynafield.Item{item}).HasCount(2) }},
		{"not empty", func(r *recorder) { Items(r, nil).IsNotEmpty() }},
		{"contains", func(r *recorder) { Items(r, []dynafield.Item{item}).ContainsEntity("brand_stats", "B9") }},
		{"not contains", func(r *recorder) { Items(r, []dynafield.Item{item}).NotContainsEntity("brand_stats", "B1") }},
		{"kind", func(r *recorder) { Item(r, item).IsKind("order") }},
		{"entry value", func(r *recorder) { Item(r, item).HasDictionaryEntry("clients", "US", 78) }},
		{"entry type", func(r *recorder) { Item(r, item).HasDictionaryEntry("clients", "US", "7810") }},
		{"missing entry", func(r *recorder) { Item(r, item).HasDictionaryEntry("clients", "FR", 78) }},
		{"missing field", func(r *recorder) { Item(r, item).HasDictionaryEntry("partners", "US", 1) }},
		{"lacks key", func(r *recorder) { Item(r, item).LacksDictionaryKey("clients", "US") }},
		{"keys", func(r *recorder) { Item(r, item).HasDictionaryKeys("clients", "US", "FR") }},
		{"unset", func(r *recorder) { Item(r, item).HasUnsetField("clients") }},
		{"empty", func(r *recorder) { Item(r, item).HasEmptyDictionary("clients") }},
		{"marshal", func(r *recorder) { Entity(r, bad).CanMarshal() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{TB: t}
			tt.assert(r)
			if r.failures == 0 {
				t.Error("expected assertion to fail")
			}
		})
	}
}
