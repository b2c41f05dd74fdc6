package httphandler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/merchkit/catalog/internal/adapter/httphandler"
	"github.com/merchkit/catalog/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockVariantService struct {
	mock.Mock
}

func (s *MockVariantService) CreateVariant(
	ctx context.Context, in domain.VariantInput,
) (domain.ProductVariant, error) {
	args := s.Called(ctx, in)
	return args.Get(0).(domain.ProductVariant), args.Error(1)
}

func (s *MockVariantService) UpdateVariant(
	ctx context.Context, ref domain.VariantRef, in domain.VariantInput,
) (domain.ProductVariant, error) {
	args := s.Called(ctx, ref, in)
	return args.Get(0).(domain.ProductVariant), args.Error(1)
}

func newTestMux(svc *MockVariantService) *http.ServeMux {
	mux := http.NewServeMux()
	httphandler.RegisterVariants(mux, svc, svc)
	return mux
}

func TestPostVariant(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		svc := new(MockVariantService)
		saved := domain.ProductVariant{
			ID: "VAR_1", ProductID: "PROD_1", SKU: "SKU-1", Name: "M",
			TrackInventory: true,
		}
		svc.On(
			"CreateVariant", mock.Anything, mock.Anything,
		).Return(saved, nil)

		body := `{
			"product_id": "PROD_1",
			"sku": "SKU-1",
			"attributes": [{"id": "ATTR_SIZE", "values": ["M"]}]
		}`
		req := httptest.NewRequest(
			http.MethodPost, "/v1/variants", strings.NewReader(body),
		)
		rec := httptest.NewRecorder()
		newTestMux(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp httphandler.VariantResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "VAR_1", resp.ID)
		assert.Equal(t, "SKU-1", resp.SKU)
		assert.True(t, resp.TrackInventory)
	})

	t.Run("ValidationErrorsReturned", func(t *testing.T) {
		svc := new(MockVariantService)
		ve := domain.NewValidationError(
			domain.FieldError{
				Field:      "attributes",
				Code:       domain.CodeDuplicatedInputItem,
				Message:    "Duplicated attribute values for product variant.",
				Attributes: []string{"ATTR_SIZE"},
			},
		)
		svc.On(
			"CreateVariant", mock.Anything, mock.Anything,
		).Return(domain.ProductVariant{}, ve)

		body := `{"product_id": "PROD_1", "attributes": [{"id": "ATTR_SIZE", "values": ["M"]}]}`
		req := httptest.NewRequest(
			http.MethodPost, "/v1/variants", strings.NewReader(body),
		)
		rec := httptest.NewRecorder()
		newTestMux(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp httphandler.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "attributes", resp.Errors[0].Field)
		assert.Equal(t, domain.CodeDuplicatedInputItem, resp.Errors[0].Code)
		assert.Equal(t, []string{"ATTR_SIZE"}, resp.Errors[0].Attributes)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		svc := new(MockVariantService)
		req := httptest.NewRequest(
			http.MethodPost, "/v1/variants", strings.NewReader("{not json"),
		)
		rec := httptest.NewRecorder()
		newTestMux(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "CreateVariant")
	})
}

func TestPutVariant(t *testing.T) {
	t.Run("RefBySKUWhenIDAbsent", func(t *testing.T) {
		svc := new(MockVariantService)
		saved := domain.ProductVariant{
			ID: "VAR_1", ProductID: "PROD_1", SKU: "SKU-1", Name: "L",
		}
		svc.On(
			"UpdateVariant",
			mock.Anything,
			domain.VariantRef{SKU: "SKU-1"},
			mock.Anything,
		).Return(saved, nil)

		body := `{"sku": "SKU-1", "attributes": [{"id": "ATTR_SIZE", "values": ["L"]}]}`
		req := httptest.NewRequest(
			http.MethodPut, "/v1/variants", strings.NewReader(body),
		)
		rec := httptest.NewRecorder()
		newTestMux(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("RefByIDPreferred", func(t *testing.T) {
		svc := new(MockVariantService)
		saved := domain.ProductVariant{ID: "VAR_1", ProductID: "PROD_1"}
		svc.On(
			"UpdateVariant",
			mock.Anything,
			domain.VariantRef{ID: "VAR_1"},
			mock.Anything,
		).Return(saved, nil)

		body := `{"id": "VAR_1", "sku": "SKU-1"}`
		req := httptest.NewRequest(
			http.MethodPut, "/v1/variants", strings.NewReader(body),
		)
		rec := httptest.NewRecorder()
		newTestMux(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})
}
