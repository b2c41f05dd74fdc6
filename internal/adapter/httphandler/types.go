package httphandler

import (
	"time"

	"github.com/merchkit/catalog/internal/core/domain"
)

type (
	VariantCreateRequest struct {
		ProductID                string            `json:"product_id"`
		Attributes               []AttributeInput  `json:"attributes"`
		SKU                      *string           `json:"sku"`
		Name                     *string           `json:"name"`
		TrackInventory           *bool             `json:"track_inventory"`
		Weight                   *float64          `json:"weight"`
		PriceAmount              *float64          `json:"price_amount"`
		Preorder                 *PreorderInput    `json:"preorder"`
		QuantityLimitPerCustomer *int              `json:"quantity_limit_per_customer"`
		Metadata                 map[string]string `json:"metadata"`
		PrivateMetadata          map[string]string `json:"private_metadata"`
		Stocks                   []StockItem       `json:"stocks"`
	}

	// A VariantUpdateRequest addresses the variant by id, or by the
	// request sku when id is absent.
	VariantUpdateRequest struct {
		ID string `json:"id"`
		VariantCreateRequest
	}

	AttributeInput struct {
		ID      string   `json:"id"`
		Values  []string `json:"values"`
		FileURL string   `json:"file_url"`
	}

	PreorderInput struct {
		GlobalThreshold *int       `json:"global_threshold"`
		EndDate         *time.Time `json:"end_date"`
	}

	StockItem struct {
		WarehouseID string `json:"warehouse_id"`
		Quantity    int    `json:"quantity"`
	}
)

type (
	VariantResponse struct {
		ID                       string            `json:"id"`
		ProductID                string            `json:"product_id"`
		SKU                      string            `json:"sku,omitempty"`
		Name                     string            `json:"name"`
		TrackInventory           bool              `json:"track_inventory"`
		Weight                   *float64          `json:"weight,omitempty"`
		PriceAmount              *float64          `json:"price_amount,omitempty"`
		QuantityLimitPerCustomer *int              `json:"quantity_limit_per_customer,omitempty"`
		IsPreorder               bool              `json:"is_preorder"`
		PreorderGlobalThreshold  *int              `json:"preorder_global_threshold,omitempty"`
		PreorderEndDate          *time.Time        `json:"preorder_end_date,omitempty"`
		Metadata                 map[string]string `json:"metadata,omitempty"`
		PrivateMetadata          map[string]string `json:"private_metadata,omitempty"`
		CreatedAt                time.Time         `json:"created_at"`
		UpdatedAt                time.Time         `json:"updated_at"`
	}

	FieldErrorItem struct {
		Field      string   `json:"field"`
		Code       string   `json:"code"`
		Message    string   `json:"message"`
		Attributes []string `json:"attributes,omitempty"`
	}

	ErrorResponse struct {
		Errors []FieldErrorItem `json:"errors"`
	}
)

func (r VariantCreateRequest) toDomain() domain.VariantInput {
	in := domain.VariantInput{
		ProductID:                r.ProductID,
		SKU:                      r.SKU,
		Name:                     r.Name,
		TrackInventory:           r.TrackInventory,
		Weight:                   r.Weight,
		PriceAmount:              r.PriceAmount,
		QuantityLimitPerCustomer: r.QuantityLimitPerCustomer,
		Metadata:                 r.Metadata,
		PrivateMetadata:          r.PrivateMetadata,
	}

	for _, a := range r.Attributes {
		in.Attributes = append(in.Attributes, domain.AttrValuesInput{
			AttributeID: a.ID,
			Values:      a.Values,
			FileURL:     a.FileURL,
		})
	}

	for _, s := range r.Stocks {
		in.Stocks = append(in.Stocks, domain.StockInput{
			WarehouseID: s.WarehouseID,
			Quantity:    s.Quantity,
		})
	}

	if r.Preorder != nil {
		in.Preorder = &domain.PreorderSettings{
			GlobalThreshold: r.Preorder.GlobalThreshold,
			EndDate:         r.Preorder.EndDate,
		}
	}

	return in
}

func variantFromDomain(v domain.ProductVariant) VariantResponse {
	return VariantResponse{
		ID:                       v.ID,
		ProductID:                v.ProductID,
		SKU:                      v.SKU,
		Name:                     v.Name,
		TrackInventory:           v.TrackInventory,
		Weight:                   v.Weight,
		PriceAmount:              v.PriceAmount,
		QuantityLimitPerCustomer: v.QuantityLimitPerCustomer,
		IsPreorder:               v.IsPreorder,
		PreorderGlobalThreshold:  v.PreorderGlobalThreshold,
		PreorderEndDate:          v.PreorderEndDate,
		Metadata:                 v.Metadata,
		PrivateMetadata:          v.PrivateMetadata,
		CreatedAt:                v.CreatedAt,
		UpdatedAt:                v.UpdatedAt,
	}
}

func errorsFromDomain(ve *domain.ValidationError) ErrorResponse {
	var resp ErrorResponse
	for _, fe := range ve.Errors {
		resp.Errors = append(resp.Errors, FieldErrorItem{
			Field:      fe.Field,
			Code:       fe.Code,
			Message:    fe.Message,
			Attributes: fe.Attributes,
		})
	}
	return resp
}
