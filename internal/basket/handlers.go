package basket

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsmart-dev/backend-grocer/internal/common"
)

// Handler exposes the basket comparison and reconciliation endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, validate: validator.New()}
}

// Routes mounts the basket endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/compare", h.Compare)
	r.Post("/reconcile", h.Reconcile)
	r.Post("/stores/{storeID}/reconcile", h.ReconcileStore)
}

type lineRequest struct {
	ProductID string          `json:"productId" validate:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
}

type basketRequest struct {
	Lines []lineRequest `json:"lines" validate:"required,min=1,dive"`
	AsOf  string        `json:"asOf" validate:"omitempty,datetime=2006-01-02"`
}

// Compare handles POST /api/v1/basket/compare.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	lines, asOf, ok := h.decodeBasket(w, r)
	if !ok {
		return
	}
	result, err := h.service.Compare(r.Context(), lines, asOf)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Reconcile handles POST /api/v1/basket/reconcile: every store's payable
// total, cheapest first.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	lines, asOf, ok := h.decodeBasket(w, r)
	if !ok {
		return
	}
	ranking, err := h.service.Rank(r.Context(), lines, asOf)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ranking})
}

// ReconcileStore handles POST /api/v1/basket/stores/{storeID}/reconcile.
func (h *Handler) ReconcileStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "storeID"))
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "storeID must be a valid uuid", nil)
		return
	}
	lines, asOf, ok := h.decodeBasket(w, r)
	if !ok {
		return
	}
	total, err := h.service.ReconcileAgainstStore(r.Context(), lines, storeID, asOf)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": total})
}

func (h *Handler) decodeBasket(w http.ResponseWriter, r *http.Request) ([]Line, time.Time, bool) {
	if h == nil || h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "basket service not configured", nil)
		return nil, time.Time{}, false
	}
	var req basketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON payload", nil)
		return nil, time.Time{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid basket payload",
			map[string]any{"fields": validationFields(err)})
		return nil, time.Time{}, false
	}

	lines := make([]Line, 0, len(req.Lines))
	for _, line := range req.Lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid basket payload",
				map[string]any{"fields": map[string]string{"lines.productId": "must be a valid uuid"}})
			return nil, time.Time{}, false
		}
		lines = append(lines, Line{ProductID: productID, Quantity: line.Quantity})
	}

	var asOf time.Time
	if req.AsOf != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.AsOf, time.UTC)
		if err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "asOf must be a YYYY-MM-DD date", nil)
			return nil, time.Time{}, false
		}
		asOf = parsed
	}
	return lines, asOf, true
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["payload"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		// Namespace looks like basketRequest.Lines[0].ProductID; drop the
		// struct prefix and lowercase the first letter of each segment.
		path := fe.Namespace()
		if idx := strings.Index(path, "."); idx >= 0 {
			path = path[idx+1:]
		}
		fields[jsonishPath(path)] = "failed rule: " + fe.Tag()
	}
	return fields
}

func jsonishPath(path string) string {
	parts := strings.Split(path, ".")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToLower(part[:1]) + part[1:]
	}
	return strings.Join(parts, ".")
}
