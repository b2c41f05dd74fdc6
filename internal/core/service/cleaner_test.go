package service

import (
	"testing"

	"github.com/merchkit/catalog/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configurableProductType() domain.ProductType {
	return domain.ProductType{
		ID:          "PT1",
		Name:        "Shirt",
		HasVariants: true,
		VariantAttributes: []domain.Attribute{
			{
				ID:            "ATTR_SIZE",
				Name:          "Size",
				InputType:     domain.AttributeInputDropdown,
				ValueRequired: true,
				Choices:       []string{"S", "M", "L"},
			},
			{
				ID:        "ATTR_MATERIALS",
				Name:      "Materials",
				InputType: domain.AttributeInputMultiselect,
				Choices:   []string{"cotton", "wool", "linen"},
			},
			{
				ID:        "ATTR_NOTE",
				Name:      "Note",
				InputType: domain.AttributeInputPlainText,
			},
			{
				ID:        "ATTR_LABEL",
				Name:      "Label",
				InputType: domain.AttributeInputFile,
			},
			{
				ID:        "ATTR_ORGANIC",
				Name:      "Organic",
				InputType: domain.AttributeInputBoolean,
			},
			{
				ID:        "ATTR_COLLAR_WIDTH",
				Name:      "Collar width",
				InputType: domain.AttributeInputNumeric,
			},
		},
	}
}

func TestCheckEligibleAttributes(t *testing.T) {
	pt := configurableProductType()

	t.Run("SubsetOfEligibleSucceeds", func(t *testing.T) {
		raw := []domain.AttrValuesInput{
			{AttributeID: "ATTR_SIZE", Values: []string{"M"}},
			{AttributeID: "ATTR_NOTE", Values: []string{"spring"}},
		}
		require.NoError(t, checkEligibleAttributes(raw, pt))
	})

	t.Run("ForeignAttributeFails", func(t *testing.T) {
		raw := []domain.AttrValuesInput{
			{AttributeID: "ATTR_SIZE", Values: []string{"M"}},
			{AttributeID: "ATTR_SHOE_WIDTH", Values: []string{"wide"}},
			{AttributeID: "ATTR_HEEL", Values: []string{"flat"}},
		}
		err := checkEligibleAttributes(raw, pt)
		require.Error(t, err)

		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		require.Len(t, ve.Errors, 1)
		assert.Equal(t, "attributes", ve.Errors[0].Field)
		assert.Equal(t, domain.CodeAttributeCannotBeAssigned, ve.Errors[0].Code)
		assert.Equal(t, []string{"ATTR_HEEL", "ATTR_SHOE_WIDTH"}, ve.Errors[0].Attributes)
	})
}

func TestCleanAttributes(t *testing.T) {
	pt := configurableProductType()

	t.Run("ValidInput", func(t *testing.T) {
		raw := []domain.AttrValuesInput{
			{AttributeID: "ATTR_SIZE", Values: []string{"M"}},
			{AttributeID: "ATTR_MATERIALS", Values: []string{"cotton", "wool"}},
			{AttributeID: "ATTR_NOTE", Values: []string{"limited run"}},
			{AttributeID: "ATTR_LABEL", FileURL: "https://cdn.example.com/media/label-a.png"},
			{AttributeID: "ATTR_ORGANIC", Values: []string{"true"}},
			{AttributeID: "ATTR_COLLAR_WIDTH", Values: []string{"2.5"}},
		}
		cleaned, err := cleanAttributes(raw, pt)
		require.NoError(t, err)
		require.Len(t, cleaned, len(raw))
		assert.Equal(t, "ATTR_SIZE", cleaned[0].Attribute.ID)
		assert.Equal(t, domain.AttributeInputDropdown, cleaned[0].Attribute.InputType)
	})

	t.Run("BatchesAllAttributeErrors", func(t *testing.T) {
		raw := []domain.AttrValuesInput{
			{AttributeID: "ATTR_SIZE", Values: []string{"XXL"}},
			{AttributeID: "ATTR_MATERIALS", Values: []string{"plastic"}},
			{AttributeID: "ATTR_ORGANIC", Values: []string{"yep"}},
			{AttributeID: "ATTR_NOTE", Values: []string{"still fine"}},
		}
		_, err := cleanAttributes(raw, pt)
		require.Error(t, err)

		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		require.Len(t, ve.Errors, 3)
		assert.Equal(t, []string{"ATTR_SIZE"}, ve.Errors[0].Attributes)
		assert.Equal(t, []string{"ATTR_MATERIALS"}, ve.Errors[1].Attributes)
		assert.Equal(t, []string{"ATTR_ORGANIC"}, ve.Errors[2].Attributes)
		for _, fe := range ve.Errors {
			assert.Equal(t, domain.CodeInvalid, fe.Code)
		}
	})

	t.Run("DropdownRejectsMultipleValues", func(t *testing.T) {
		raw := []domain.AttrValuesInput{
			{AttributeID: "ATTR_SIZE", Values: []string{"S", "M"}},
		}
		_, err := cleanAttributes(raw, pt)
		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, domain.CodeInvalid, ve.Errors[0].Code)
	})

	t.Run("RequiredDropdownRejectsEmptyValues", func(t *testing.T) {
		raw := []domain.AttrValuesInput{
			{AttributeID: "ATTR_SIZE"},
		}
		_, err := cleanAttributes(raw, pt)
		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, domain.CodeRequired, ve.Errors[0].Code)
	})

	t.Run("FileAttributeRejectsLiteralValues", func(t *testing.T) {
		raw := []domain.AttrValuesInput{
			{AttributeID: "ATTR_LABEL", Values: []string{"label-a.png"}},
		}
		_, err := cleanAttributes(raw, pt)
		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, domain.CodeInvalid, ve.Errors[0].Code)
	})

	t.Run("NumericRejectsUnparseable", func(t *testing.T) {
		raw := []domain.AttrValuesInput{
			{AttributeID: "ATTR_COLLAR_WIDTH", Values: []string{"wide"}},
		}
		_, err := cleanAttributes(raw, pt)
		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, domain.CodeInvalid, ve.Errors[0].Code)
	})

	t.Run("BlankChoiceValueRejected", func(t *testing.T) {
		raw := []domain.AttrValuesInput{
			{AttributeID: "ATTR_MATERIALS", Values: []string{"  "}},
		}
		_, err := cleanAttributes(raw, pt)
		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, domain.CodeRequired, ve.Errors[0].Code)
	})
}

func TestRequiredAttributesMissing(t *testing.T) {
	t.Run("WithRequiredAttribute", func(t *testing.T) {
		assert.True(t, requiredAttributesMissing(configurableProductType()))
	})

	t.Run("WithoutRequiredAttribute", func(t *testing.T) {
		pt := domain.ProductType{
			HasVariants: true,
			VariantAttributes: []domain.Attribute{
				{ID: "A1", InputType: domain.AttributeInputPlainText},
			},
		}
		assert.False(t, requiredAttributesMissing(pt))
	})
}
