package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forneria-pos/internal/app"
	"github.com/noah-isme/forneria-pos/internal/config"
	"github.com/noah-isme/forneria-pos/internal/storage"
)

func newDeps(t *testing.T, backend http.Handler) *app.Dependencies {
	t.Helper()
	return newDepsWithEnv(t, backend, nil)
}

func newDepsWithEnv(t *testing.T, backend http.Handler, env map[string]string) *app.Dependencies {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	values := map[string]string{"POS_BACKEND_URL": srv.URL, "POS_STORAGE_DRIVER": "memory"}
	for k, v := range env {
		values[k] = v
	}
	cfg, err := config.LoadForTests(values)
	require.NoError(t, err)
	deps, err := app.Build(context.Background(), cfg, zerolog.Nop(), app.Options{Storage: storage.NewMemory()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })
	return deps
}

func TestRunCartCommands(t *testing.T) {
	deps := newDeps(t, http.NotFoundHandler())
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, run(ctx, deps, []string{"add", "-id", "1", "-nombre", "Marraqueta", "-precio", "1000"}, &out))
	require.NoError(t, run(ctx, deps, []string{"add", "-id", "1", "-nombre", "Marraqueta", "-precio", "1000"}, &out))
	require.NoError(t, run(ctx, deps, []string{"add", "-id", "2", "-nombre", "Torta", "-precio", "2500"}, &out))

	out.Reset()
	require.NoError(t, run(ctx, deps, []string{"totals", "-paid", "6000"}, &out))
	require.Contains(t, out.String(), "IVA:\t$855")
	require.Contains(t, out.String(), "Vuelto:\t$645")

	require.NoError(t, run(ctx, deps, []string{"remove", "-id", "2"}, &out))
	require.Len(t, deps.Cart.Load(ctx), 1)

	require.NoError(t, run(ctx, deps, []string{"clear"}, &out))
	require.Empty(t, deps.Cart.Load(ctx))
}

func TestRunTotalsZeroTaxRateMatchesService(t *testing.T) {
	deps := newDepsWithEnv(t, http.NotFoundHandler(), map[string]string{"POS_TAX_RATE_BPS": "0"})
	require.Equal(t, 0, deps.Config.TaxRateBPS)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, run(ctx, deps, []string{"add", "-id", "1", "-nombre", "Pan", "-precio", "1000"}, &out))
	out.Reset()
	require.NoError(t, run(ctx, deps, []string{"totals"}, &out))
	require.Contains(t, out.String(), "IVA:\t$190")

	preview, err := deps.Checkout.Preview(ctx, 0)
	require.NoError(t, err)
	require.EqualValues(t, 190, preview.Totals.Tax)
	require.EqualValues(t, 1190, preview.Totals.Total)
}

func TestRunUsageErrors(t *testing.T) {
	deps := newDeps(t, http.NotFoundHandler())
	ctx := context.Background()
	var out bytes.Buffer

	require.ErrorIs(t, run(ctx, deps, nil, &out), errUsage)
	require.ErrorIs(t, run(ctx, deps, []string{"bogus"}, &out), errUsage)
	require.ErrorIs(t, run(ctx, deps, []string{"add"}, &out), errUsage)
}

func TestRunCheckout(t *testing.T) {
	deps := newDeps(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"folio":"C-7","total":1190}`))
	}))
	ctx := context.Background()
	var out bytes.Buffer

	err := run(ctx, deps, []string{"checkout"}, &out)
	require.EqualError(t, err, "Carrito vacío")

	require.NoError(t, run(ctx, deps, []string{"add", "-id", "9", "-nombre", "Pan", "-precio", "1000"}, &out))
	out.Reset()
	require.NoError(t, run(ctx, deps, []string{"checkout", "-metodo", "efectivo"}, &out))
	require.Contains(t, out.String(), "Venta registrada. Folio: C-7")
	require.Empty(t, deps.Cart.Load(ctx))
}
