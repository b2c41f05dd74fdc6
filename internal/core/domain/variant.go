package domain

import "time"

// An AttributeInputType determines how raw attribute values
// are parsed and normalized.
type AttributeInputType string

const (
	AttributeInputPlainText   AttributeInputType = "PLAIN_TEXT"
	AttributeInputDropdown    AttributeInputType = "DROPDOWN"
	AttributeInputMultiselect AttributeInputType = "MULTISELECT"
	AttributeInputFile        AttributeInputType = "FILE"
	AttributeInputBoolean     AttributeInputType = "BOOLEAN"
	AttributeInputNumeric     AttributeInputType = "NUMERIC"
)

type (
	// An Attribute is immutable once resolved for a validation pass.
	Attribute struct {
		ID            string
		Name          string
		InputType     AttributeInputType
		ValueRequired bool
		Choices       []string
	}

	// A ProductType owns the ordered set of attributes eligible
	// for variants of that type.
	ProductType struct {
		ID                string
		Name              string
		HasVariants       bool
		VariantAttributes []Attribute
	}

	Product struct {
		ID               string
		Name             string
		ProductType      ProductType
		DefaultVariantID string
	}
)

type (
	// An AttrValuesInput is the raw caller input for one attribute:
	// literal values or a file reference, depending on the input kind.
	AttrValuesInput struct {
		AttributeID string
		Values      []string
		FileURL     string
	}

	// An AttributeAssignment pairs a resolved attribute with its raw input.
	AttributeAssignment struct {
		Attribute Attribute
		Values    AttrValuesInput
	}

	// A CleanedAssignment is the canonical ordered form produced by the
	// cleaner. Every attribute in it belongs to the product type's
	// variant attribute set.
	CleanedAssignment []AttributeAssignment
)

type (
	PreorderSettings struct {
		GlobalThreshold *int
		EndDate         *time.Time
	}

	// A StockInput supplies a per-warehouse quantity at creation.
	// Warehouse ids must be unique within one input list.
	StockInput struct {
		WarehouseID string
		Quantity    int
	}
)

// A ProductVariant is a concrete purchasable configuration of a product.
// ID is empty until the first successful save.
type ProductVariant struct {
	ID                       string
	ProductID                string
	SKU                      string
	Name                     string
	TrackInventory           bool
	Weight                   *float64
	PriceAmount              *float64
	QuantityLimitPerCustomer *int
	IsPreorder               bool
	PreorderGlobalThreshold  *int
	PreorderEndDate          *time.Time
	Metadata                 map[string]string
	PrivateMetadata          map[string]string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// A VariantRef identifies an existing variant by id or by sku.
type VariantRef struct {
	ID  string
	SKU string
}

// A VariantInput is the structured mutation input consumed by the
// validation pipeline. Pointer fields distinguish absent from zero.
type VariantInput struct {
	ProductID                string
	Attributes               []AttrValuesInput
	SKU                      *string
	Name                     *string
	TrackInventory           *bool
	Weight                   *float64
	PriceAmount              *float64
	Preorder                 *PreorderSettings
	QuantityLimitPerCustomer *int
	Metadata                 map[string]string
	PrivateMetadata          map[string]string
	Stocks                   []StockInput
}

// A ProductSearchDocument is the denormalized representation stored
// in the search index for one product.
type ProductSearchDocument struct {
	ProductID       string
	Name            string
	VariantNames    []string
	SKUs            []string
	AttributeValues []string
}
