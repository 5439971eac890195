package cart_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forneria-pos/internal/cart"
	"github.com/noah-isme/forneria-pos/internal/storage"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	h := &cart.Handler{Store: cart.NewStore(storage.NewMemory(), "", zerolog.Nop()), TaxBps: 1900}
	r := chi.NewRouter()
	r.Get("/cart", h.Get)
	r.Delete("/cart", h.Clear)
	r.Get("/cart/totals", h.Totals)
	r.Post("/cart/items", h.AddItem)
	r.Delete("/cart/items/{id}", h.RemoveItem)
	return r
}

type cartResponse struct {
	Data struct {
		Items  []cart.Item `json:"items"`
		Count  int         `json:"count"`
		Totals struct {
			Subtotal float64 `json:"subtotal"`
			IVA      int64   `json:"iva"`
			Total    int64   `json:"total"`
		} `json:"totals"`
		Vuelto *int64 `json:"vuelto"`
	} `json:"data"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, cartResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var out cartResponse
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr, out
}

func TestCartHandlersFlow(t *testing.T) {
	h := newRouter(t)

	rr, _ := do(t, h, http.MethodPost, "/cart/items", `{"id":1,"nombre":"Marraqueta","precio":1000}`)
	require.Equal(t, http.StatusOK, rr.Code)
	_, _ = do(t, h, http.MethodPost, "/cart/items", `{"id":"1","nombre":"Marraqueta","precio":"1000"}`)
	rr, body := do(t, h, http.MethodPost, "/cart/items", `{"id":"2","nombre":"Torta","precio":"2500.00"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, body.Data.Items, 2)
	require.Equal(t, 3, body.Data.Count)
	require.Equal(t, 4500.0, body.Data.Totals.Subtotal)
	require.Equal(t, int64(855), body.Data.Totals.IVA)
	require.Equal(t, int64(5355), body.Data.Totals.Total)

	_, totals := do(t, h, http.MethodGet, "/cart/totals?paid=6000", "")
	require.NotNil(t, totals.Data.Vuelto)
	require.Equal(t, int64(645), *totals.Data.Vuelto)
	_, totals = do(t, h, http.MethodGet, "/cart/totals?paid=5000", "")
	require.Equal(t, int64(0), *totals.Data.Vuelto)

	rr, body = do(t, h, http.MethodDelete, "/cart/items/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, body.Data.Items, 1)

	rr, _ = do(t, h, http.MethodDelete, "/cart", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	_, body = do(t, h, http.MethodGet, "/cart", "")
	require.Empty(t, body.Data.Items)
	require.Equal(t, int64(0), body.Data.Totals.Total)
}

func TestAddItemValidation(t *testing.T) {
	h := newRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"nombre":"Pan"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "VALIDATION_FAILED")
}

func TestAddItemUnparseablePriceIsZero(t *testing.T) {
	h := newRouter(t)
	_, body := do(t, h, http.MethodPost, "/cart/items", `{"id":"9","nombre":"Regalo","precio":"gratis"}`)
	require.Len(t, body.Data.Items, 1)
	require.Equal(t, 0.0, body.Data.Items[0].Precio)
}
