package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/shopsmart-dev/backend-grocer/internal/common"
	"github.com/shopsmart-dev/backend-grocer/internal/pricing"
	"github.com/shopsmart-dev/backend-grocer/internal/promo"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Routes mounts the catalog endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/stores", h.Stores)
	r.Get("/stores/{storeID}", h.StoreDetail)
	r.Get("/products", h.Products)
	r.Get("/products/{productID}", h.ProductDetail)
	r.Get("/products/{productID}/prices", h.PriceHistory)
}

// AdminRoutes mounts the ingestion endpoints on the given router.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/prices", h.IngestPrice)
}

// Stores handles GET /api/v1/stores.
func (h *Handler) Stores(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	rows, err := h.service.ListStores(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// StoreDetail handles GET /api/v1/stores/{storeID}.
func (h *Handler) StoreDetail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	id, ok := parseID(w, r, "storeID")
	if !ok {
		return
	}
	store, err := h.service.GetStore(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": store})
}

// Products handles GET /api/v1/products with search and pagination.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	page, limit := common.ParsePagination(r, 0)
	result, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("q"), page, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.Pagination{Page: result.Page, PerPage: result.Limit, TotalItems: int(result.Total)},
	})
}

// ProductDetail handles GET /api/v1/products/{productID}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	id, ok := parseID(w, r, "productID")
	if !ok {
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// PriceHistory handles GET /api/v1/products/{productID}/prices.
func (h *Handler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	id, ok := parseID(w, r, "productID")
	if !ok {
		return
	}
	page, limit := common.ParsePagination(r, 0)
	rows, err := h.service.PriceHistory(r.Context(), id, page, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

type ingestPriceRequest struct {
	StoreID      string          `json:"storeId"`
	ProductID    string          `json:"productId"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	ValidFrom    string          `json:"validFrom"`
	ValidTo      *string         `json:"validTo"`
	Promotion    *PromotionDTO   `json:"promotion"`
	Restrictions string          `json:"restrictions"`
	StockStatus  string          `json:"stockStatus"`
}

// IngestPrice handles POST /api/v1/admin/prices.
func (h *Handler) IngestPrice(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var req ingestPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON payload", nil)
		return
	}
	input, err := req.toInput()
	if err != nil {
		common.WriteError(w, err)
		return
	}
	record, err := h.service.IngestPrice(r.Context(), input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": record})
}

func (req ingestPriceRequest) toInput() (PriceInput, error) {
	fieldErrors := map[string]string{}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		fieldErrors["storeId"] = "must be a valid uuid"
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		fieldErrors["productId"] = "must be a valid uuid"
	}
	validFrom, err := parseDate(req.ValidFrom)
	if err != nil {
		fieldErrors["validFrom"] = "must be a YYYY-MM-DD date"
	}
	input := PriceInput{
		StoreID:      storeID,
		ProductID:    productID,
		Price:        req.Price,
		Currency:     req.Currency,
		ValidFrom:    validFrom,
		Restrictions: req.Restrictions,
	}
	if req.ValidTo != nil && *req.ValidTo != "" {
		validTo, err := parseDate(*req.ValidTo)
		if err != nil {
			fieldErrors["validTo"] = "must be a YYYY-MM-DD date"
		} else {
			input.ValidTo = &validTo
		}
	}
	stock, ok := pricing.ParseStockStatus(req.StockStatus)
	if !ok {
		fieldErrors["stockStatus"] = "must be one of in_stock, out_of_stock, unknown"
	}
	input.Stock = stock

	input.Promotion = promo.None()
	if req.Promotion != nil {
		kind, err := promo.ParseKind(string(req.Promotion.Kind))
		if err != nil {
			fieldErrors["promotion.kind"] = "unknown promotion kind"
		}
		p := promo.Promotion{Kind: kind}
		if req.Promotion.Percent != nil {
			p.Percent = *req.Promotion.Percent
		}
		if req.Promotion.BundleTotal != nil {
			p.BundleTotal = *req.Promotion.BundleTotal
		}
		if req.Promotion.BundleSize != nil {
			p.BundleSize = *req.Promotion.BundleSize
		}
		p.OverridePrice = req.Promotion.OverridePrice
		input.Promotion = p
	}

	if len(fieldErrors) > 0 {
		return PriceInput{}, &common.AppError{
			Code:       "VALIDATION_ERROR",
			Message:    "invalid price payload",
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    map[string]any{"fields": fieldErrors},
		}
	}
	return input, nil
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, time.UTC)
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", param+" must be a valid uuid", nil)
		return uuid.Nil, false
	}
	return id, true
}
