package examples

import (
	"maps"
	"time"

	"github.com/nisimpson/dynafield"
	"github.com/nisimpson/dynafield/dynamock"
)

// Product specs are stored as an opaque JSON blob; prices are a dictionary
// keyed by currency so each currency can be filtered on.
var prices = dynafield.MustDictionaryField("prices")

// ProductBuilder provides a fluent API for building test products.
type ProductBuilder struct {
	id       string
	category string
	name     string
	prices   map[string]float64
	specs    map[string]any
	created  time.Time
}

// NewProduct creates a new product builder.
func NewProduct() *ProductBuilder {
	return &ProductBuilder{
		prices:  make(map[string]float64),
		created: time.Now(),
	}
}

// WithID sets the product ID.
func (b *ProductBuilder) WithID(id string) *ProductBuilder {
	b.id = id
	return b
}

// WithCategory sets the product category. Products sort by category on the
// kind index.
func (b *ProductBuilder) WithCategory(category string) *ProductBuilder {
	b.category = category
	return b
}

// WithName sets the product name.
func (b *ProductBuilder) WithName(name string) *ProductBuilder {
	b.name = name
	return b
}

// WithPrice sets the price in one currency.
func (b *ProductBuilder) WithPrice(currency string, amount float64) *ProductBuilder {
	b.prices[currency] = amount
	return b
}

// WithSpec adds a technical specification.
func (b *ProductBuilder) WithSpec(name string, value any) *ProductBuilder {
	if b.specs == nil {
		b.specs = make(map[string]any)
	}
	b.specs[name] = value
	return b
}

// Unpriced drops every price, leaving the prices field unset.
func (b *ProductBuilder) Unpriced() *ProductBuilder {
	b.prices = nil
	return b
}

// Build creates a TestEntity configured as a product.
func (b *ProductBuilder) Build() *dynamock.TestEntity {
	opts := []dynamock.EntityOption{
		dynamock.WithKind("product"),
		dynamock.WithID(b.id),
		dynamock.WithSortKey(b.category + "#" + b.id),
		dynamock.WithCreated(b.created),
		dynamock.WithAttribute("name", b.name),
		dynamock.WithAttribute("category", b.category),
	}
	if b.prices == nil {
		opts = append(opts, dynamock.WithUnsetDictionary(prices.Name()))
	} else {
		opts = append(opts, dynamock.WithDictionary(prices.Name(), maps.Clone(b.prices)))
	}
	if b.specs != nil {
		opts = append(opts, dynamock.WithAttribute("specs", dynafield.NewJSON(b.specs)))
	}
	return dynamock.NewEntity(opts...).Build()
}

// CustomerBuilder provides a fluent API for building test customers.
type CustomerBuilder struct {
	id          string
	email       string
	name        string
	tier        string
	preferences map[string]any
}

// NewCustomer creates a new customer builder.
func NewCustomer() *CustomerBuilder {
	return &CustomerBuilder{tier: "standard"}
}

// WithID sets the customer ID.
func (b *CustomerBuilder) WithID(id string) *CustomerBuilder {
	b.id = id
	return b
}

// WithEmail sets the customer email.
func (b *CustomerBuilder) WithEmail(email string) *CustomerBuilder {
	b.email = email
	return b
}

// WithName sets the customer name.
func (b *CustomerBuilder) WithName(name string) *CustomerBuilder {
	b.name = name
	return b
}

// WithTier sets the customer tier.
func (b *CustomerBuilder) WithTier(tier string) *CustomerBuilder {
	b.tier = tier
	return b
}

// Premium sets the customer tier to premium.
func (b *CustomerBuilder) Premium() *CustomerBuilder {
	return b.WithTier("premium")
}

// Standard sets the customer tier to standard.
func (b *CustomerBuilder) Standard() *CustomerBuilder {
	return b.WithTier("standard")
}

// WithPreference records one customer preference.
func (b *CustomerBuilder) WithPreference(key string, value any) *CustomerBuilder {
	if b.preferences == nil {
		b.preferences = make(map[string]any)
	}
	b.preferences[key] = value
	return b
}

// Build creates a TestEntity configured as a customer.
func (b *CustomerBuilder) Build() *dynamock.TestEntity {
	opts := []dynamock.EntityOption{
		dynamock.WithKind("customer"),
		dynamock.WithID(b.id),
		dynamock.WithSortKey(b.tier + "#" + b.email),
		dynamock.WithAttribute("email", b.email),
		dynamock.WithAttribute("name", b.name),
		dynamock.WithAttribute("tier", b.tier),
	}
	// customers that never set a preference have no preferences attribute
	if b.preferences != nil {
		opts = append(opts, dynamock.WithDictionary("preferences", maps.Clone(b.preferences)))
	}
	return dynamock.NewEntity(opts...).Build()
}

// QuickProduct creates a product priced in USD.
func QuickProduct(id, category string, usd float64) *dynamock.TestEntity {
	return NewProduct().
		WithID(id).
		WithCategory(category).
		WithName("Test Product "+id).
		WithPrice("USD", usd).
		Build()
}

// QuickCustomer creates a standard customer.
func QuickCustomer(id, email string) *dynamock.TestEntity {
	return NewCustomer().
		WithID(id).
		WithEmail(email).
		WithName("Test Customer " + id).
		Build()
}

// QuickPremiumCustomer creates a premium customer.
func QuickPremiumCustomer(id, email string) *dynamock.TestEntity {
	return NewCustomer().
		WithID(id).
		WithEmail(email).
		WithName("Premium Customer " + id).
		Premium().
		Build()
}
