package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forneria-pos/internal/catalog"
	"github.com/noah-isme/forneria-pos/internal/posapi"
)

type fakeSource struct {
	calls   int
	product posapi.Product
	err     error
}

func (f *fakeSource) Product(context.Context, string) (posapi.Product, error) {
	f.calls++
	return f.product, f.err
}

func TestDetailPlaceholderOnFailure(t *testing.T) {
	svc := &catalog.Service{Source: &fakeSource{err: errors.New("no data")}, Logger: zerolog.Nop()}
	detail := svc.Detail(context.Background(), "9")
	require.False(t, detail.Available)
	require.Equal(t, catalog.PlaceholderName, detail.Nombre)
	require.Empty(t, detail.Descripcion)
	require.True(t, detail.Precio.IsZero())
	require.Zero(t, detail.StockTotal)
}

func TestDetailPriceEncodesAsNumber(t *testing.T) {
	raw, err := json.Marshal(catalog.Placeholder("9"))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"precio":0,`)

	var decoded catalog.ProductDetail
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","precio":350.5}`), &decoded))
	require.True(t, decoded.Precio.Equal(decimal.RequireFromString("350.5")))

	raw, err = json.Marshal(decoded)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"precio":350.5`)
}

func TestDetailCachedInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	src := &fakeSource{product: posapi.Product{
		Nombre:     "Pan amasado",
		Precio:     decimal.NewNullDecimal(decimal.NewFromInt(350)),
		StockTotal: 18,
	}}
	svc := &catalog.Service{Source: src, Cache: catalog.NewCache(client, "pos:product:", time.Minute), Logger: zerolog.Nop()}

	first := svc.Detail(context.Background(), "42")
	second := svc.Detail(context.Background(), "42")
	require.True(t, first.Available)
	require.Equal(t, 1, src.calls)
	require.True(t, first.Precio.Equal(second.Precio.Decimal))
	require.Equal(t, first.Nombre, second.Nombre)
	require.True(t, mr.Exists("pos:product:42"))

	mr.FastForward(2 * time.Minute)
	_ = svc.Detail(context.Background(), "42")
	require.Equal(t, 2, src.calls)
}

func TestDetailFailuresAreNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	svc := &catalog.Service{Source: &fakeSource{err: posapi.ErrUnavailable}, Cache: catalog.NewCache(client, "p:", time.Minute), Logger: zerolog.Nop()}
	_ = svc.Detail(context.Background(), "1")
	require.False(t, mr.Exists("p:1"))
}

func TestProductHandlerAlways200(t *testing.T) {
	h := &catalog.Handler{Svc: &catalog.Service{Source: &fakeSource{err: errors.New("down")}, Logger: zerolog.Nop()}}
	r := chi.NewRouter()
	r.Get("/products/{id}", h.Product)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/7", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data struct {
			ID        string `json:"id"`
			Nombre    string `json:"nombre"`
			Available bool   `json:"available"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "7", body.Data.ID)
	require.Equal(t, catalog.PlaceholderName, body.Data.Nombre)
	require.False(t, body.Data.Available)
}
