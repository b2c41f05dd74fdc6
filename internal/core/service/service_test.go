package service_test

import (
	"context"
	"testing"

	"github.com/merchkit/catalog/internal/core/domain"
	"github.com/merchkit/catalog/internal/core/port"
	"github.com/merchkit/catalog/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockVariantStore struct {
	mock.Mock
}

func (m *MockVariantStore) ProductWithType(
	ctx context.Context, productID string,
) (domain.Product, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockVariantStore) VariantByRef(
	ctx context.Context, ref domain.VariantRef,
) (domain.ProductVariant, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(domain.ProductVariant), args.Error(1)
}

func (m *MockVariantStore) VariantAssignments(
	ctx context.Context, variantID string,
) (domain.CleanedAssignment, error) {
	args := m.Called(ctx, variantID)
	var assignments domain.CleanedAssignment
	if v := args.Get(0); v != nil {
		assignments = v.(domain.CleanedAssignment)
	}
	return assignments, args.Error(1)
}

func (m *MockVariantStore) UsedAttributeValues(
	ctx context.Context, productID, excludeVariantID string,
) ([]domain.AttributeValues, error) {
	args := m.Called(ctx, productID, excludeVariantID)
	var used []domain.AttributeValues
	if v := args.Get(0); v != nil {
		used = v.([]domain.AttributeValues)
	}
	return used, args.Error(1)
}

func (m *MockVariantStore) SaveVariant(
	ctx context.Context, p port.SaveVariantParams,
) (domain.ProductVariant, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.ProductVariant), args.Error(1)
}

func (m *MockVariantStore) ProductSearchDocument(
	ctx context.Context, productID string,
) (domain.ProductSearchDocument, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(domain.ProductSearchDocument), args.Error(1)
}

type MockPriceQueue struct {
	mock.Mock
}

func (m *MockPriceQueue) EnqueuePriceRecalc(
	ctx context.Context, productID string,
) error {
	return m.Called(ctx, productID).Error(0)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) RefreshProduct(
	ctx context.Context, doc domain.ProductSearchDocument,
) error {
	return m.Called(ctx, doc).Error(0)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) VariantCreated(
	ctx context.Context, v domain.ProductVariant,
) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockEvents) VariantUpdated(
	ctx context.Context, v domain.ProductVariant,
) error {
	return m.Called(ctx, v).Error(0)
}

type fixture struct {
	store   *MockVariantStore
	queue   *MockPriceQueue
	indexer *MockIndexer
	events  *MockEvents
	svc     service.VariantService
}

func newFixture() *fixture {
	f := &fixture{
		store:   new(MockVariantStore),
		queue:   new(MockPriceQueue),
		indexer: new(MockIndexer),
		events:  new(MockEvents),
	}
	f.svc = service.New(
		f.store,
		f.queue,
		f.indexer,
		f.events,
		service.NewSKUNormalizer(),
		service.NewVariantNameGenerator(),
	)
	return f
}

func (f *fixture) expectAfterSave(productID string) {
	f.queue.On("EnqueuePriceRecalc", mock.Anything, productID).Return(nil)
	f.store.On("ProductSearchDocument", mock.Anything, productID).
		Return(domain.ProductSearchDocument{ProductID: productID}, nil)
	f.indexer.On("RefreshProduct", mock.Anything, mock.Anything).Return(nil)
}

func shirtProduct() domain.Product {
	return domain.Product{
		ID:   "P1",
		Name: "Shirt",
		ProductType: domain.ProductType{
			ID:          "PT1",
			HasVariants: true,
			VariantAttributes: []domain.Attribute{
				{
					ID:            "ATTR_SIZE",
					Name:          "Size",
					InputType:     domain.AttributeInputDropdown,
					ValueRequired: true,
					Choices:       []string{"S", "M", "L"},
				},
			},
		},
	}
}

func sizeInput(v string) []domain.AttrValuesInput {
	return []domain.AttrValuesInput{
		{AttributeID: "ATTR_SIZE", Values: []string{v}},
	}
}

func TestCreateVariant(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		product := shirtProduct()

		f.store.On("ProductWithType", mock.Anything, "P1").Return(product, nil)
		f.store.On("UsedAttributeValues", mock.Anything, "P1", "").
			Return(nil, nil)

		var saveParams port.SaveVariantParams
		f.store.On("SaveVariant", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				saveParams = args.Get(1).(port.SaveVariantParams)
			}).
			Return(domain.ProductVariant{
				ID: "V1", ProductID: "P1", Name: "M",
			}, nil)
		f.expectAfterSave("P1")
		f.events.On("VariantCreated", mock.Anything, mock.Anything).Return(nil)

		v, err := f.svc.CreateVariant(t.Context(), domain.VariantInput{
			ProductID:  "P1",
			Attributes: sizeInput("M"),
			Stocks: []domain.StockInput{
				{WarehouseID: "W1", Quantity: 10},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "V1", v.ID)

		assert.Equal(t, domain.AttributeValues{"ATTR_SIZE": {"M"}}, saveParams.Signature)
		require.Len(t, saveParams.Attributes, 1)
		assert.Equal(t, "M", saveParams.Variant.Name, "name derived from attribute values")
		assert.True(t, saveParams.Variant.TrackInventory)
		require.Len(t, saveParams.Stocks, 1)

		f.events.AssertCalled(t, "VariantCreated", mock.Anything, mock.Anything)
		f.events.AssertNotCalled(t, "VariantUpdated", mock.Anything, mock.Anything)
		f.queue.AssertCalled(t, "EnqueuePriceRecalc", mock.Anything, "P1")
		f.indexer.AssertCalled(t, "RefreshProduct", mock.Anything, mock.Anything)
	})

	t.Run("OmittedRequiredAttributesFail", func(t *testing.T) {
		f := newFixture()
		f.store.On("ProductWithType", mock.Anything, "P1").Return(shirtProduct(), nil)
		f.store.On("UsedAttributeValues", mock.Anything, "P1", "").Return(nil, nil)

		_, err := f.svc.CreateVariant(t.Context(), domain.VariantInput{ProductID: "P1"})
		require.Error(t, err)

		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.True(t, ve.HasCode(domain.CodeRequired))
		f.store.AssertNotCalled(t, "SaveVariant", mock.Anything, mock.Anything)
	})

	t.Run("DuplicateOfSiblingFails", func(t *testing.T) {
		f := newFixture()
		f.store.On("ProductWithType", mock.Anything, "P1").Return(shirtProduct(), nil)
		f.store.On("UsedAttributeValues", mock.Anything, "P1", "").
			Return([]domain.AttributeValues{{"ATTR_SIZE": {"M"}}}, nil)

		_, err := f.svc.CreateVariant(t.Context(), domain.VariantInput{
			ProductID:  "P1",
			Attributes: sizeInput("M"),
		})
		require.Error(t, err)

		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.True(t, ve.HasCode(domain.CodeDuplicatedInputItem))
		f.store.AssertNotCalled(t, "SaveVariant", mock.Anything, mock.Anything)
	})

	t.Run("BackToBackDuplicateFails", func(t *testing.T) {
		f := newFixture()
		product := shirtProduct()
		f.store.On("ProductWithType", mock.Anything, "P1").Return(product, nil)

		// First creation sees no sibling configurations, the second
		// sees the one just persisted.
		f.store.On("UsedAttributeValues", mock.Anything, "P1", "").
			Return(nil, nil).Once()
		f.store.On("UsedAttributeValues", mock.Anything, "P1", "").
			Return([]domain.AttributeValues{{"ATTR_SIZE": {"M"}}}, nil).Once()

		f.store.On("SaveVariant", mock.Anything, mock.Anything).
			Return(domain.ProductVariant{ID: "V1", ProductID: "P1"}, nil).Once()
		f.expectAfterSave("P1")
		f.events.On("VariantCreated", mock.Anything, mock.Anything).Return(nil)

		in := domain.VariantInput{ProductID: "P1", Attributes: sizeInput("M")}

		_, err := f.svc.CreateVariant(t.Context(), in)
		require.NoError(t, err)

		_, err = f.svc.CreateVariant(t.Context(), in)
		require.Error(t, err)
		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.True(t, ve.HasCode(domain.CodeDuplicatedInputItem))
	})

	t.Run("UnknownProductFails", func(t *testing.T) {
		f := newFixture()
		f.store.On("ProductWithType", mock.Anything, "MISSING").
			Return(domain.Product{}, domain.ErrNotFound)

		_, err := f.svc.CreateVariant(t.Context(), domain.VariantInput{
			ProductID: "MISSING",
		})
		require.Error(t, err)

		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "product", ve.Errors[0].Field)
		assert.Equal(t, domain.CodeNotFound, ve.Errors[0].Code)
	})

	t.Run("AttributesForSimpleProductTypeFail", func(t *testing.T) {
		f := newFixture()
		product := shirtProduct()
		product.ProductType.HasVariants = false

		f.store.On("ProductWithType", mock.Anything, "P1").Return(product, nil)
		f.store.On("UsedAttributeValues", mock.Anything, "P1", "").Return(nil, nil)

		_, err := f.svc.CreateVariant(t.Context(), domain.VariantInput{
			ProductID:  "P1",
			Attributes: sizeInput("M"),
		})
		require.Error(t, err)

		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.True(t, ve.HasCode(domain.CodeInvalid))
	})

	t.Run("ForeignAttributeFails", func(t *testing.T) {
		f := newFixture()
		f.store.On("ProductWithType", mock.Anything, "P1").Return(shirtProduct(), nil)
		f.store.On("UsedAttributeValues", mock.Anything, "P1", "").Return(nil, nil)

		_, err := f.svc.CreateVariant(t.Context(), domain.VariantInput{
			ProductID: "P1",
			Attributes: []domain.AttrValuesInput{
				{AttributeID: "ATTR_HEEL", Values: []string{"flat"}},
			},
		})
		require.Error(t, err)

		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.True(t, ve.HasCode(domain.CodeAttributeCannotBeAssigned))
		assert.Equal(t, []string{"ATTR_HEEL"}, ve.Errors[0].Attributes)
	})
}

func TestUpdateVariant(t *testing.T) {
	existing := domain.ProductVariant{
		ID:             "V1",
		ProductID:      "P1",
		SKU:            "SHIRT-M",
		Name:           "M",
		TrackInventory: true,
	}

	t.Run("UnchangedInputEmitsUpdated", func(t *testing.T) {
		f := newFixture()
		f.store.On("VariantByRef", mock.Anything, domain.VariantRef{ID: "V1"}).
			Return(existing, nil)
		f.store.On("ProductWithType", mock.Anything, "P1").Return(shirtProduct(), nil)
		// Own signature excluded from the registry seed.
		f.store.On("UsedAttributeValues", mock.Anything, "P1", "V1").
			Return(nil, nil)
		f.store.On("SaveVariant", mock.Anything, mock.Anything).
			Return(existing, nil)
		f.expectAfterSave("P1")
		f.events.On("VariantUpdated", mock.Anything, mock.Anything).Return(nil)

		_, err := f.svc.UpdateVariant(
			t.Context(),
			domain.VariantRef{ID: "V1"},
			domain.VariantInput{Attributes: sizeInput("M")},
		)
		require.NoError(t, err)

		f.events.AssertCalled(t, "VariantUpdated", mock.Anything, mock.Anything)
		f.events.AssertNotCalled(t, "VariantCreated", mock.Anything, mock.Anything)
	})

	t.Run("NameDerivedFromPersistedAttributes", func(t *testing.T) {
		f := newFixture()
		unnamed := existing
		unnamed.Name = ""

		f.store.On("VariantByRef", mock.Anything, domain.VariantRef{ID: "V1"}).
			Return(unnamed, nil)
		f.store.On("ProductWithType", mock.Anything, "P1").Return(shirtProduct(), nil)
		f.store.On("UsedAttributeValues", mock.Anything, "P1", "V1").
			Return(nil, nil)
		f.store.On("VariantAssignments", mock.Anything, "V1").
			Return(domain.CleanedAssignment{
				{
					Attribute: domain.Attribute{
						ID:        "ATTR_SIZE",
						InputType: domain.AttributeInputDropdown,
					},
					Values: domain.AttrValuesInput{
						AttributeID: "ATTR_SIZE", Values: []string{"M"},
					},
				},
			}, nil)

		var saveParams port.SaveVariantParams
		f.store.On("SaveVariant", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				saveParams = args.Get(1).(port.SaveVariantParams)
			}).
			Return(existing, nil)
		f.expectAfterSave("P1")
		f.events.On("VariantUpdated", mock.Anything, mock.Anything).Return(nil)

		// No attributes and no name in the input: the derived name
		// comes from the stored assignment, not the sku.
		_, err := f.svc.UpdateVariant(
			t.Context(), domain.VariantRef{ID: "V1"}, domain.VariantInput{},
		)
		require.NoError(t, err)
		assert.Equal(t, "M", saveParams.Variant.Name)
	})

	t.Run("UnknownSKUFails", func(t *testing.T) {
		f := newFixture()
		f.store.On("VariantByRef", mock.Anything, domain.VariantRef{SKU: "NOPE"}).
			Return(domain.ProductVariant{}, domain.ErrNotFound)

		_, err := f.svc.UpdateVariant(
			t.Context(), domain.VariantRef{SKU: "NOPE"}, domain.VariantInput{},
		)
		require.Error(t, err)

		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "sku", ve.Errors[0].Field)
		assert.Equal(t, domain.CodeNotFound, ve.Errors[0].Code)
	})

	t.Run("ConflictWithSiblingFails", func(t *testing.T) {
		f := newFixture()
		f.store.On("VariantByRef", mock.Anything, domain.VariantRef{ID: "V1"}).
			Return(existing, nil)
		f.store.On("ProductWithType", mock.Anything, "P1").Return(shirtProduct(), nil)
		f.store.On("UsedAttributeValues", mock.Anything, "P1", "V1").
			Return([]domain.AttributeValues{{"ATTR_SIZE": {"L"}}}, nil)

		_, err := f.svc.UpdateVariant(
			t.Context(),
			domain.VariantRef{ID: "V1"},
			domain.VariantInput{Attributes: sizeInput("L")},
		)
		require.Error(t, err)

		ve, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.True(t, ve.HasCode(domain.CodeDuplicatedInputItem))
	})
}
