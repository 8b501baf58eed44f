// Package dynafield provides custom field types for entities stored in
// DynamoDB with the AWS SDK for Go v2.
//
// # Dictionary fields
//
// A dictionary field holds a mapping of string keys to values. It is stored as
// a single map attribute, so each entry is a dynamic sub-attribute of the item
// and can be filtered on through its document path:
//
//	type BrandStats struct {
//	    ID        string            `dynamodbav:"id"`
//	    BrandName string            `dynamodbav:"brand_name"`
//	    Clients   *dynafield.Record `dynamodbav:"clients,omitempty"`
//	}
//
//	func (b *BrandStats) MarshalSelf(opts *dynafield.MarshalOptions) error {
//	    opts.WithKind("brand_stats", b.ID)
//	    return nil
//	}
//
//	var clients = dynafield.MustDictionaryField("clients")
//
//	stats := &BrandStats{ID: "B1", BrandName: "Google"}
//	stats.Clients, _ = clients.Assign(map[string]int{"US": 7810})
//	_ = stats.Clients.Set("FR", 78)
//
//	query := &dynafield.QueryKind{
//	    Kind:   "brand_stats",
//	    Filter: clients.MustAtKey("FR").LessThan(7810),
//	}
//
// Keys must be non-empty and must not start with "_", which is reserved for
// the item envelope. Values may be of any type the attributevalue package can
// marshal; types may differ between keys.
//
// A nil *Record is the unset state of the field. The only filter allowed on the
// field as a whole is the unset test, [DictionaryField.Unset] (or Compare with
// Equal and nil). An item holding an empty dictionary is not unset.
//
// Filtering across several keys, filtering on the set of keys and ordering by a
// key are not supported.
//
// # Compact JSON fields
//
// [JSON] wraps any JSON-encodable value and stores it as a binary attribute
// holding JSON with no insignificant whitespace. The content is opaque to
// queries.
//
// # Tables
//
// [Table] turns entities implementing [Marshaler] into DynamoDB requests. Each
// entity is one item; its attributes sit next to an envelope of "_"-prefixed
// attributes holding the item key, the entity kind and timestamps. [QueryKind]
// lists the entities of a kind through the kind index and accepts any filter,
// including the ones built from dictionary fields.
//
// # Pagination
//
// Built-in pagination support stores cursors in the same table:
//
//	paginator := table.Paginator(ddb)
//	cursor, err := paginator.PageCursor(ctx, lastEvaluatedKey)
//	startKey, err := paginator.StartKey(ctx, cursor)
package dynafield
