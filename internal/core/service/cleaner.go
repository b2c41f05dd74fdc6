package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/merchkit/catalog/internal/core/domain"
)

// cleanAttributes maps raw attribute inputs onto the product type's
// variant attribute schema and validates every value against its
// attribute's input kind. Per-attribute failures are accumulated and
// reported together, keyed under the "attributes" field.
//
// Callers guarantee that every supplied attribute id is a member of the
// eligible set (checkEligibleAttributes runs first).
func cleanAttributes(
	raw []domain.AttrValuesInput, pt domain.ProductType,
) (domain.CleanedAssignment, error) {
	eligible := eligibleAttributes(pt)

	var (
		cleaned domain.CleanedAssignment
		errs    []domain.FieldError
	)
	for _, in := range raw {
		attr := eligible[in.AttributeID]
		code, msg := validateAttrValues(attr, in)
		if code != "" {
			errs = append(errs, domain.FieldError{
				Field:      "attributes",
				Code:       code,
				Message:    msg,
				Attributes: []string{attr.ID},
			})
			continue
		}
		cleaned = append(cleaned, domain.AttributeAssignment{
			Attribute: attr,
			Values:    in,
		})
	}

	if len(errs) > 0 {
		return nil, domain.NewValidationError(errs...)
	}
	return cleaned, nil
}

// checkEligibleAttributes computes the set difference between supplied
// attribute ids and the ids eligible for the product type.
func checkEligibleAttributes(
	raw []domain.AttrValuesInput, pt domain.ProductType,
) error {
	eligible := eligibleAttributes(pt)

	var invalid []string
	seen := make(map[string]struct{})
	for _, in := range raw {
		if _, ok := eligible[in.AttributeID]; ok {
			continue
		}
		if _, dup := seen[in.AttributeID]; dup {
			continue
		}
		seen[in.AttributeID] = struct{}{}
		invalid = append(invalid, in.AttributeID)
	}

	if len(invalid) > 0 {
		sort.Strings(invalid)
		return domain.NewValidationError(domain.FieldError{
			Field:      "attributes",
			Code:       domain.CodeAttributeCannotBeAssigned,
			Message:    "Given attributes are not a variant attributes.",
			Attributes: invalid,
		})
	}
	return nil
}

// requiredAttributesMissing reports whether the product type declares
// at least one value-required variant attribute. Used on creation when
// the caller supplied no attribute input at all.
func requiredAttributesMissing(pt domain.ProductType) bool {
	for _, a := range pt.VariantAttributes {
		if a.ValueRequired {
			return true
		}
	}
	return false
}

func eligibleAttributes(pt domain.ProductType) map[string]domain.Attribute {
	m := make(map[string]domain.Attribute, len(pt.VariantAttributes))
	for _, a := range pt.VariantAttributes {
		m[a.ID] = a
	}
	return m
}

// validateAttrValues dispatches on the attribute's input kind.
// An empty code means the input is valid.
func validateAttrValues(
	attr domain.Attribute, in domain.AttrValuesInput,
) (code, msg string) {
	switch attr.InputType {
	case domain.AttributeInputFile:
		return validateFileValues(attr, in)
	case domain.AttributeInputDropdown:
		return validateChoiceValues(attr, in.Values, 1)
	case domain.AttributeInputMultiselect:
		return validateChoiceValues(attr, in.Values, len(in.Values))
	case domain.AttributeInputPlainText:
		return validatePlainTextValues(attr, in.Values)
	case domain.AttributeInputBoolean:
		return validateParsedValue(attr, in.Values, parseBoolValue)
	case domain.AttributeInputNumeric:
		return validateParsedValue(attr, in.Values, parseNumericValue)
	}
	return domain.CodeInvalid,
		fmt.Sprintf("Unknown attribute input type: %s.", attr.InputType)
}

func validateFileValues(
	attr domain.Attribute, in domain.AttrValuesInput,
) (string, string) {
	if len(in.Values) > 0 {
		return domain.CodeInvalid,
			fmt.Sprintf("Attribute %s expects a file, not literal values.", attr.ID)
	}
	if attr.ValueRequired && in.FileURL == "" {
		return requiredValueError(attr)
	}
	return "", ""
}

func validateChoiceValues(
	attr domain.Attribute, values []string, maxValues int,
) (string, string) {
	if len(values) == 0 {
		if attr.ValueRequired {
			return requiredValueError(attr)
		}
		return "", ""
	}
	if len(values) > maxValues {
		return domain.CodeInvalid,
			fmt.Sprintf("Attribute %s must take only one value.", attr.ID)
	}
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return domain.CodeRequired,
				fmt.Sprintf("Attribute %s values cannot be blank.", attr.ID)
		}
		if !containsChoice(attr.Choices, v) {
			return domain.CodeInvalid, fmt.Sprintf(
				"Value %q is not a valid choice for attribute %s.", v, attr.ID,
			)
		}
	}
	return "", ""
}

func validatePlainTextValues(
	attr domain.Attribute, values []string,
) (string, string) {
	if len(values) == 0 {
		if attr.ValueRequired {
			return requiredValueError(attr)
		}
		return "", ""
	}
	if len(values) > 1 {
		return domain.CodeInvalid,
			fmt.Sprintf("Attribute %s must take only one value.", attr.ID)
	}
	if attr.ValueRequired && strings.TrimSpace(values[0]) == "" {
		return domain.CodeRequired,
			fmt.Sprintf("Attribute %s values cannot be blank.", attr.ID)
	}
	return "", ""
}

func validateParsedValue(
	attr domain.Attribute, values []string, parse func(string) error,
) (string, string) {
	if len(values) == 0 {
		if attr.ValueRequired {
			return requiredValueError(attr)
		}
		return "", ""
	}
	if len(values) > 1 {
		return domain.CodeInvalid,
			fmt.Sprintf("Attribute %s must take only one value.", attr.ID)
	}
	if err := parse(values[0]); err != nil {
		return domain.CodeInvalid, fmt.Sprintf(
			"Value %q is invalid for attribute %s.", values[0], attr.ID,
		)
	}
	return "", ""
}

func requiredValueError(attr domain.Attribute) (string, string) {
	return domain.CodeRequired,
		fmt.Sprintf("Attribute %s must take a value.", attr.ID)
}

func parseBoolValue(v string) error {
	_, err := strconv.ParseBool(v)
	return err
}

func parseNumericValue(v string) error {
	_, err := strconv.ParseFloat(v, 64)
	return err
}

func containsChoice(choices []string, v string) bool {
	for _, c := range choices {
		if c == v {
			return true
		}
	}
	return false
}
