package service

import (
	"github.com/merchkit/catalog/internal/core/domain"
)

// buildSignature maps every cleaned attribute to the ordered list of
// value identifiers it contributes. FILE attributes contribute the slug
// of the trailing path segment of their file url (an empty list when no
// file was supplied); other kinds contribute the literal values,
// order-preserving and duplicates-preserving. A repeated attribute id
// extends its list.
func buildSignature(cleaned domain.CleanedAssignment) domain.AttributeValues {
	sig := make(domain.AttributeValues, len(cleaned))
	for _, a := range cleaned {
		id := a.Attribute.ID
		if _, ok := sig[id]; !ok {
			sig[id] = []string{}
		}
		if a.Attribute.InputType == domain.AttributeInputFile {
			if a.Values.FileURL != "" {
				sig[id] = append(sig[id], domain.FileValueIdentifier(a.Values.FileURL))
			}
			continue
		}
		sig[id] = append(sig[id], a.Values.Values...)
	}
	return sig
}

// A usedValuesRegistry holds the attribute-value signatures already
// consumed by sibling variants of the product being modified. It is
// built once per save operation from persisted state and mutated only
// within that operation: sequential candidates in one batched call are
// mutually duplicate-aware.
type usedValuesRegistry struct {
	sigs []domain.AttributeValues
}

func newUsedValuesRegistry(seed []domain.AttributeValues) *usedValuesRegistry {
	return &usedValuesRegistry{sigs: seed}
}

// registerOrReject compares the candidate signature against every
// registered signature. An exact structural match fails the operation;
// otherwise the candidate is appended for the remainder of the call.
func (r *usedValuesRegistry) registerOrReject(sig domain.AttributeValues) error {
	for _, used := range r.sigs {
		if sig.Equal(used) {
			return domain.NewValidationError(domain.FieldError{
				Field:      "attributes",
				Code:       domain.CodeDuplicatedInputItem,
				Message:    "Duplicated attribute values for product variant.",
				Attributes: sig.AttributeIDs(),
			})
		}
	}
	r.sigs = append(r.sigs, sig)
	return nil
}
