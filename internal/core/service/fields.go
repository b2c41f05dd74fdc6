package service

import (
	"fmt"
	"strings"

	"github.com/merchkit/catalog/internal/core/domain"
)

func validateWeight(weight *float64) error {
	if weight != nil && *weight < 0 {
		return domain.NewValidationError(domain.FieldError{
			Field:   "weight",
			Code:    domain.CodeInvalid,
			Message: "Product variant can't have negative weight.",
		})
	}
	return nil
}

func validateQuantityLimit(limit *int) error {
	if limit != nil && *limit < 1 {
		return domain.NewValidationError(domain.FieldError{
			Field:   "quantityLimitPerCustomer",
			Code:    domain.CodeInvalid,
			Message: "Product variant can't have quantity_limit_per_customer lower than 1.",
		})
	}
	return nil
}

// validateStocks rejects input lists that reference the same warehouse
// more than once, naming every duplicated id.
func validateStocks(stocks []domain.StockInput) error {
	ids := make([]string, len(stocks))
	for i, s := range stocks {
		ids[i] = s.WarehouseID
	}
	if dups := duplicatedValues(ids); len(dups) > 0 {
		return domain.NewValidationError(domain.FieldError{
			Field:      "stocks",
			Code:       domain.CodeUnique,
			Message:    fmt.Sprintf("Duplicated warehouse ID: %s.", strings.Join(dups, ", ")),
			Attributes: dups,
		})
	}
	return nil
}

// duplicatedValues returns the values occurring more than once,
// in first-occurrence order.
func duplicatedValues(values []string) []string {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}

	var dups []string
	seen := make(map[string]struct{})
	for _, v := range values {
		if counts[v] < 2 {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dups = append(dups, v)
	}
	return dups
}

// applyPreorder marks the variant as preorder and copies the threshold
// and end date through verbatim.
func applyPreorder(v *domain.ProductVariant, p *domain.PreorderSettings) {
	if p == nil {
		return
	}
	v.IsPreorder = true
	v.PreorderGlobalThreshold = p.GlobalThreshold
	v.PreorderEndDate = p.EndDate
}
