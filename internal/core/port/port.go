package port

import (
	"context"

	"github.com/merchkit/catalog/internal/core/domain"
)

// Inbound ports consumed by the transport layer.

type VariantCreator interface {
	CreateVariant(context.Context, domain.VariantInput) (domain.ProductVariant, error)
}

type VariantUpdater interface {
	UpdateVariant(context.Context, domain.VariantRef, domain.VariantInput) (domain.ProductVariant, error)
}

// SaveVariantParams carries everything the store needs to run the
// transactional save. Signature and Attributes are nil when the input
// contained no attribute assignments.
type SaveVariantParams struct {
	Variant    domain.ProductVariant
	Signature  domain.AttributeValues
	Attributes domain.CleanedAssignment
	Stocks     []domain.StockInput
}

// A VariantStore is the catalog storage boundary. SaveVariant executes
// the persistence steps atomically: either all its effects are visible
// or none.
type VariantStore interface {
	ProductWithType(ctx context.Context, productID string) (domain.Product, error)
	VariantByRef(ctx context.Context, ref domain.VariantRef) (domain.ProductVariant, error)
	VariantAssignments(ctx context.Context, variantID string) (domain.CleanedAssignment, error)
	UsedAttributeValues(ctx context.Context, productID, excludeVariantID string) ([]domain.AttributeValues, error)
	SaveVariant(context.Context, SaveVariantParams) (domain.ProductVariant, error)
	ProductSearchDocument(ctx context.Context, productID string) (domain.ProductSearchDocument, error)
}

// A PriceRecalcEnqueuer accepts a product id for asynchronous
// discounted-price recalculation. Fire-and-forget: no result consumed.
type PriceRecalcEnqueuer interface {
	EnqueuePriceRecalc(ctx context.Context, productID string) error
}

// A DiscountedPriceUpdater applies the recalculation on the worker side.
type DiscountedPriceUpdater interface {
	RecalculateDiscountedPrice(ctx context.Context, productID string) error
}

type SearchIndexer interface {
	RefreshProduct(context.Context, domain.ProductSearchDocument) error
}

type EventDispatcher interface {
	VariantCreated(context.Context, domain.ProductVariant) error
	VariantUpdated(context.Context, domain.ProductVariant) error
}

type SKUNormalizer interface {
	NormalizeSKU(raw string) (string, error)
}

// A NameGenerator derives a display name from the variant's attribute
// values and/or sku when the caller supplied none.
type NameGenerator interface {
	GenerateName(attrs domain.CleanedAssignment, sku string) string
}
