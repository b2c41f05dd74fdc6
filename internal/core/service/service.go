package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/merchkit/catalog/internal/core/domain"
	"github.com/merchkit/catalog/internal/core/port"
)

var _ port.VariantCreator = (*VariantService)(nil)
var _ port.VariantUpdater = (*VariantService)(nil)

// A VariantService runs the validation-and-persistence pipeline for
// product variants: field invariants and attribute cleaning (no
// mutation), duplicate detection against sibling configurations, then
// the transactional save with post-commit derived-state effects.
type VariantService struct {
	store      port.VariantStore
	priceQueue port.PriceRecalcEnqueuer
	indexer    port.SearchIndexer
	events     port.EventDispatcher
	skuNorm    port.SKUNormalizer
	nameGen    port.NameGenerator
}

func New(
	store port.VariantStore,
	priceQueue port.PriceRecalcEnqueuer,
	indexer port.SearchIndexer,
	events port.EventDispatcher,
	skuNorm port.SKUNormalizer,
	nameGen port.NameGenerator,
) VariantService {
	return VariantService{
		store,
		priceQueue,
		indexer,
		events,
		skuNorm,
		nameGen,
	}
}

func (s VariantService) CreateVariant(
	ctx context.Context, in domain.VariantInput,
) (domain.ProductVariant, error) {
	const op = "VariantService.CreateVariant"

	if err := ctx.Err(); err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}

	product, err := s.store.ProductWithType(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.NewValidationError(domain.FieldError{
				Field:   "product",
				Code:    domain.CodeNotFound,
				Message: fmt.Sprintf("Couldn't resolve to a node: %s", in.ProductID),
			})
		}
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}

	used, err := s.store.UsedAttributeValues(ctx, product.ID, "")
	if err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}
	registry := newUsedValuesRegistry(used)

	variant := domain.ProductVariant{ProductID: product.ID, TrackInventory: true}
	params, err := s.cleanInput(&variant, product, in, registry, true)
	if err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}

	saved, err := s.store.SaveVariant(ctx, params)
	if err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}

	s.afterSave(ctx, saved, true)
	return saved, nil
}

func (s VariantService) UpdateVariant(
	ctx context.Context, ref domain.VariantRef, in domain.VariantInput,
) (domain.ProductVariant, error) {
	const op = "VariantService.UpdateVariant"

	if err := ctx.Err(); err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}

	variant, err := s.store.VariantByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = refNotFoundError(ref)
		}
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}

	product, err := s.store.ProductWithType(ctx, variant.ProductID)
	if err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}

	// The variant's own signature is excluded so an unchanged update
	// does not collide with itself.
	used, err := s.store.UsedAttributeValues(ctx, product.ID, variant.ID)
	if err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}
	registry := newUsedValuesRegistry(used)

	params, err := s.cleanInput(&variant, product, in, registry, false)
	if err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}

	// Without attribute input the name derives from the persisted
	// assignment, not the sku alone.
	if params.Variant.Name == "" {
		existing, err := s.store.VariantAssignments(ctx, variant.ID)
		if err != nil {
			return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
		}
		params.Variant.Name = s.nameGen.GenerateName(existing, params.Variant.SKU)
	}

	saved, err := s.store.SaveVariant(ctx, params)
	if err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}

	s.afterSave(ctx, saved, false)
	return saved, nil
}

// cleanInput runs the clean phase in a fixed order: scalar invariants
// fail fast, attribute errors are batched by the cleaner. On success
// the variant carries the cleaned scalar fields and the returned params
// carry the attribute assignment and its duplicate signature.
func (s VariantService) cleanInput(
	variant *domain.ProductVariant,
	product domain.Product,
	in domain.VariantInput,
	registry *usedValuesRegistry,
	creating bool,
) (port.SaveVariantParams, error) {
	if err := validateWeight(in.Weight); err != nil {
		return port.SaveVariantParams{}, err
	}
	if err := validateQuantityLimit(in.QuantityLimitPerCustomer); err != nil {
		return port.SaveVariantParams{}, err
	}
	if err := validateStocks(in.Stocks); err != nil {
		return port.SaveVariantParams{}, err
	}

	if err := checkEligibleAttributes(in.Attributes, product.ProductType); err != nil {
		return port.SaveVariantParams{}, err
	}

	var (
		cleaned domain.CleanedAssignment
		sig     domain.AttributeValues
	)
	switch {
	case product.ProductType.HasVariants:
		if len(in.Attributes) > 0 {
			var err error
			cleaned, err = cleanAttributes(in.Attributes, product.ProductType)
			if err != nil {
				return port.SaveVariantParams{}, err
			}
			sig = buildSignature(cleaned)
			if err := registry.registerOrReject(sig); err != nil {
				return port.SaveVariantParams{}, err
			}
		} else if creating && requiredAttributesMissing(product.ProductType) {
			return port.SaveVariantParams{}, domain.NewValidationError(domain.FieldError{
				Field:   "attributes",
				Code:    domain.CodeRequired,
				Message: "All required attributes must take a value.",
			})
		}
	case len(in.Attributes) > 0:
		return port.SaveVariantParams{}, domain.NewValidationError(domain.FieldError{
			Field:   "attributes",
			Code:    domain.CodeInvalid,
			Message: "Cannot assign attributes for product type without variants.",
		})
	}

	if in.SKU != nil {
		sku, err := s.skuNorm.NormalizeSKU(*in.SKU)
		if err != nil {
			return port.SaveVariantParams{}, err
		}
		variant.SKU = sku
	}

	if in.Name != nil {
		variant.Name = *in.Name
	}
	if in.TrackInventory != nil {
		variant.TrackInventory = *in.TrackInventory
	}
	if in.Weight != nil {
		variant.Weight = in.Weight
	}
	if in.PriceAmount != nil {
		variant.PriceAmount = in.PriceAmount
	}
	if in.QuantityLimitPerCustomer != nil {
		variant.QuantityLimitPerCustomer = in.QuantityLimitPerCustomer
	}
	if in.Metadata != nil {
		variant.Metadata = in.Metadata
	}
	if in.PrivateMetadata != nil {
		variant.PrivateMetadata = in.PrivateMetadata
	}

	applyPreorder(variant, in.Preorder)

	if variant.Name == "" && (creating || cleaned != nil) {
		variant.Name = s.nameGen.GenerateName(cleaned, variant.SKU)
	}

	return port.SaveVariantParams{
		Variant:    *variant,
		Signature:  sig,
		Attributes: cleaned,
		Stocks:     in.Stocks,
	}, nil
}

// afterSave dispatches the post-commit effects: the fire-and-forget
// price recalculation, the synchronous search refresh and exactly one
// lifecycle event. None of them can fail the already-committed save.
func (s VariantService) afterSave(
	ctx context.Context, v domain.ProductVariant, created bool,
) {
	const op = "VariantService.afterSave"
	log := slog.With("op", op, "variantID", v.ID)

	if err := s.priceQueue.EnqueuePriceRecalc(ctx, v.ProductID); err != nil {
		log.Error("failed to enqueue price recalculation", "err", err)
	}

	doc, err := s.store.ProductSearchDocument(ctx, v.ProductID)
	if err != nil {
		log.Error("failed to build search document", "err", err)
	} else if err := s.indexer.RefreshProduct(ctx, doc); err != nil {
		log.Error("failed to refresh search index", "err", err)
	}

	if created {
		err = s.events.VariantCreated(ctx, v)
	} else {
		err = s.events.VariantUpdated(ctx, v)
	}
	if err != nil {
		log.Error("failed to dispatch lifecycle event", "err", err)
	}
}

func refNotFoundError(ref domain.VariantRef) error {
	field, lookup := "id", ref.ID
	if ref.ID == "" {
		field, lookup = "sku", ref.SKU
	}
	return domain.NewValidationError(domain.FieldError{
		Field:   field,
		Code:    domain.CodeNotFound,
		Message: fmt.Sprintf("Couldn't resolve to a node: %s", lookup),
	})
}
