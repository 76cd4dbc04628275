package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/shopsmart-dev/backend-grocer/internal/catalog"
)

func newRouter(t *testing.T) (*chi.Mux, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: newService(t, repo)})
	r := chi.NewRouter()
	r.Route("/api/v1", func(v chi.Router) {
		v.Group(handler.Routes)
		v.Route("/admin", handler.AdminRoutes)
	})
	return r, repo
}

func TestCatalogHandlers(t *testing.T) {
	router, _ := newRouter(t)

	t.Run("list stores", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/stores", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var payload struct {
			Data []catalog.StoreDTO `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
		require.Len(t, payload.Data, 2)
	})

	t.Run("product detail", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+milkID.String(), nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var payload struct {
			Data catalog.ProductDTO `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
		require.Equal(t, "Whole Milk 1L", payload.Data.Name)
	})

	t.Run("product detail unknown id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet,
			"/api/v1/products/99999999-0000-0000-0000-000000000009", nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("product detail malformed id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/products/not-a-uuid", nil))
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("product list carries pagination", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/products?page=1&limit=1", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, "2", rr.Header().Get("X-Total-Count"))

		var payload struct {
			Data       []catalog.ProductDTO `json:"data"`
			Pagination struct {
				Page    int `json:"page"`
				PerPage int `json:"per_page"`
			} `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
		require.Len(t, payload.Data, 1)
		require.Equal(t, 1, payload.Pagination.PerPage)
	})
}

func TestIngestPriceHandler(t *testing.T) {
	router, repo := newRouter(t)

	body := `{
		"storeId": "` + storeA.String() + `",
		"productId": "` + milkID.String() + `",
		"price": "1.39",
		"currency": "EUR",
		"validFrom": "2025-06-01",
		"promotion": {"kind": "percent_off", "percent": "15"},
		"stockStatus": "in_stock"
	}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/prices", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, repo.inserted, 1)

	var payload struct {
		Data catalog.PriceDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, "percent_off", string(payload.Data.Promotion.Kind))

	t.Run("rejects malformed payload", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/prices",
			strings.NewReader(`{"storeId": "nope"}`)))
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("rejects unknown promotion kind", func(t *testing.T) {
		bad := strings.Replace(body, "percent_off", "mystery_deal", 1)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/prices", strings.NewReader(bad)))
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}
