package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/merchkit/catalog/internal/core/domain"
	"github.com/merchkit/catalog/internal/core/port"
)

// POST /v1/variants JSON (response 201 Created, 400 Bad request)
// PUT /v1/variants JSON, variant addressed by id or sku (200 OK, 400 Bad request)

type VariantsHandler struct {
	creator port.VariantCreator
	updater port.VariantUpdater
}

func RegisterVariants(
	mux *http.ServeMux,
	creator port.VariantCreator,
	updater port.VariantUpdater,
) {
	h := VariantsHandler{creator, updater}
	mux.HandleFunc("POST /v1/variants", h.PostVariant)
	mux.HandleFunc("PUT /v1/variants", h.PutVariant)
}

func (h VariantsHandler) PostVariant(w http.ResponseWriter, r *http.Request) {
	const op = "VariantsHandler.PostVariant"
	log := slog.With("op", op)

	var req VariantCreateRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	variant, err := h.creator.CreateVariant(r.Context(), req.toDomain())
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	h.writeVariant(w, log, variant, http.StatusCreated)
	log.Info("variant created", "variantID", variant.ID)
}

func (h VariantsHandler) PutVariant(w http.ResponseWriter, r *http.Request) {
	const op = "VariantsHandler.PutVariant"
	log := slog.With("op", op)

	var req VariantUpdateRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	ref := domain.VariantRef{ID: req.ID}
	if ref.ID == "" && req.SKU != nil {
		ref.SKU = *req.SKU
	}
	variant, err := h.updater.UpdateVariant(
		r.Context(), ref, req.VariantCreateRequest.toDomain(),
	)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	h.writeVariant(w, log, variant, http.StatusOK)
	log.Info("variant updated", "variantID", variant.ID)
}

func (h VariantsHandler) writeVariant(
	w http.ResponseWriter, log *slog.Logger,
	v domain.ProductVariant, status int,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(variantFromDomain(v)); err != nil {
		log.Error("failed to write response body", "err", err)
	}
}

func (h VariantsHandler) writeError(
	w http.ResponseWriter, log *slog.Logger, err error,
) {
	if ve, ok := domain.AsValidation(err); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		if err := json.NewEncoder(w).Encode(errorsFromDomain(ve)); err != nil {
			log.Error("failed to write response body", "err", err)
		}
		log.Warn("validation failed", "nErrors", len(ve.Errors))
		return
	}

	http.Error(w, "internal error", http.StatusInternalServerError)
	log.Error("unexpected failure", "err", err)
}
