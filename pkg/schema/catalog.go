package schema

const PriceRecalcSchemaTextV1 = `{
	"type": "record",
	"namespace": "catalog",
	"name": "price_recalc",
	"fields": [
		{"name": "product_id", "type": "string"},
		{"name": "requested_at", "type": "long"}
	]
}`

// A PriceRecalcV1 asks the price worker to recompute the discounted
// price of one product. RequestedAt is unix milliseconds.
type PriceRecalcV1 struct {
	ProductID   string `avro:"product_id"`
	RequestedAt int64  `avro:"requested_at"`
}

const VariantEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "catalog",
	"name": "variant_event",
	"fields": [
		{"name": "event", "type": "string"},
		{"name": "variant_id", "type": "string"},
		{"name": "product_id", "type": "string"},
		{"name": "sku", "type": "string"},
		{"name": "name", "type": "string"},
		{"name": "occurred_at", "type": "long"}
	]
}`

const (
	EventVariantCreated = "product_variant_created"
	EventVariantUpdated = "product_variant_updated"
)

// A VariantEventV1 is one variant lifecycle event. Event is one of the
// Event* constants; OccurredAt is unix milliseconds.
type VariantEventV1 struct {
	Event      string `avro:"event"`
	VariantID  string `avro:"variant_id"`
	ProductID  string `avro:"product_id"`
	SKU        string `avro:"sku"`
	Name       string `avro:"name"`
	OccurredAt int64  `avro:"occurred_at"`
}
