package service

import (
	"strings"

	"github.com/merchkit/catalog/internal/core/domain"
	"github.com/merchkit/catalog/internal/core/port"
)

var _ port.NameGenerator = (*VariantNameGenerator)(nil)
var _ port.SKUNormalizer = (*SKUNormalizer)(nil)

// A VariantNameGenerator derives a display name from the variant's
// attribute values, joined in assignment order, falling back to the sku.
type VariantNameGenerator struct{}

func NewVariantNameGenerator() VariantNameGenerator {
	return VariantNameGenerator{}
}

func (VariantNameGenerator) GenerateName(
	attrs domain.CleanedAssignment, sku string,
) string {
	var parts []string
	for _, a := range attrs {
		if a.Attribute.InputType == domain.AttributeInputFile {
			if a.Values.FileURL != "" {
				parts = append(parts, domain.FileValueIdentifier(a.Values.FileURL))
			}
			continue
		}
		for _, v := range a.Values.Values {
			if v != "" {
				parts = append(parts, v)
			}
		}
	}
	if len(parts) == 0 {
		return sku
	}
	return strings.Join(parts, " / ")
}

const maxSKULength = 255

// A SKUNormalizer trims surrounding whitespace; a blank sku is treated
// as absent. Uniqueness is enforced by the storage constraint.
type SKUNormalizer struct{}

func NewSKUNormalizer() SKUNormalizer {
	return SKUNormalizer{}
}

func (SKUNormalizer) NormalizeSKU(raw string) (string, error) {
	sku := strings.TrimSpace(raw)
	if len(sku) > maxSKULength {
		return "", domain.NewValidationError(domain.FieldError{
			Field:   "sku",
			Code:    domain.CodeInvalid,
			Message: "SKU exceeds the maximum length of 255 characters.",
		})
	}
	return sku, nil
}
