package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/forneria-pos/internal/cart"
	"github.com/noah-isme/forneria-pos/internal/obs"
	"github.com/noah-isme/forneria-pos/internal/posapi"
	"github.com/noah-isme/forneria-pos/internal/pricing"
)

// LocalTimeLayout renders the local fallback timestamp as dd-mm-yyyy HH:MM.
const LocalTimeLayout = "02-01-2006 15:04"

// ErrEmptyCart is returned when a checkout is attempted with nothing in the cart.
var ErrEmptyCart = errors.New("checkout: empty cart")

// ErrInProgress is returned while another sale from the same service is
// waiting on the backend.
var ErrInProgress = errors.New("checkout: sale already in progress")

// Gateway is the part of the backend client checkout depends on.
type Gateway interface {
	Checkout(ctx context.Context, req posapi.CheckoutRequest) (posapi.Receipt, error)
	ServerTime(ctx context.Context) (string, error)
}

type Service struct {
	Store         *cart.Store
	Gateway       Gateway
	TaxBps        int
	Channel       string
	DefaultMethod string
	Currency      string
	Logger        zerolog.Logger
	Now           func() time.Time

	inflight atomic.Bool
}

// Input carries the payment side of a checkout.
type Input struct {
	MontoPagado *float64 `json:"monto_pagado" validate:"omitempty,gte=0"`
	MetodoPago  string   `json:"metodo_pago" validate:"omitempty,max=32"`
}

// Timestamp is the time shown on the checkout view.
type Timestamp struct {
	Formatted string `json:"formatted"`
	Source    string `json:"source"`
}

type Preview struct {
	Items     []cart.Item     `json:"items"`
	Currency  string          `json:"currency"`
	Lines     []string        `json:"lines"`
	Totals    pricing.Summary `json:"totals"`
	Display   Display         `json:"display"`
	Vuelto    int64           `json:"vuelto"`
	Timestamp Timestamp       `json:"timestamp"`
}

// Display holds the CLP-formatted totals.
type Display struct {
	Subtotal string `json:"subtotal"`
	IVA      string `json:"iva"`
	Total    string `json:"total"`
	Vuelto   string `json:"vuelto"`
}

// Result is a registered sale.
type Result struct {
	Folio   string           `json:"folio"`
	Total   decimal.Decimal  `json:"total"`
	Vuelto  *decimal.Decimal `json:"vuelto,omitempty"`
	Message string           `json:"message"`
}

// Preview builds the checkout view for the current cart. paid may be zero.
func (s *Service) Preview(ctx context.Context, paid float64) (Preview, error) {
	if s == nil || s.Store == nil {
		return Preview{}, errors.New("checkout service not configured")
	}
	items := s.Store.Load(ctx)
	priced := cart.PricingItems(items)
	summary := pricing.Compute(priced, s.taxBps())
	change := pricing.Change(paid, summary.Total)
	return Preview{
		Items:    items,
		Currency: valueOr(s.Currency, "CLP"),
		Lines:    pricing.Lines(priced),
		Totals:   summary,
		Display: Display{
			Subtotal: pricing.FormatCLP(summary.Subtotal),
			IVA:      pricing.FormatCLP(float64(summary.Tax)),
			Total:    pricing.FormatCLP(float64(summary.Total)),
			Vuelto:   pricing.FormatCLP(float64(change)),
		},
		Vuelto:    change,
		Timestamp: s.Timestamp(ctx),
	}, nil
}

// Timestamp prefers the backend clock and falls back to local time.
func (s *Service) Timestamp(ctx context.Context) Timestamp {
	if s.Gateway != nil {
		formatted, err := s.Gateway.ServerTime(ctx)
		if err == nil && strings.TrimSpace(formatted) != "" {
			return Timestamp{Formatted: formatted, Source: "server"}
		}
		if err != nil {
			s.Logger.Debug().Err(err).Msg("server time unavailable, using local clock")
		}
	}
	return Timestamp{Formatted: s.now().Format(LocalTimeLayout), Source: "local"}
}

// Submit sends the cart to the backend in a single request. Only one sale is
// in flight at a time. On success the sold lines are taken out of the cart;
// anything added meanwhile stays.
func (s *Service) Submit(ctx context.Context, in Input) (Result, error) {
	if s == nil || s.Store == nil || s.Gateway == nil {
		return Result{}, errors.New("checkout service not configured")
	}
	if !s.inflight.CompareAndSwap(false, true) {
		obs.IncCheckout("busy")
		return Result{}, ErrInProgress
	}
	defer s.inflight.Store(false)

	items := s.Store.Load(ctx)
	if len(items) == 0 {
		obs.IncCheckout("empty")
		return Result{}, ErrEmptyCart
	}

	req := s.buildRequest(items, in)
	receipt, err := s.Gateway.Checkout(ctx, req)
	if err != nil {
		var apiErr *posapi.APIError
		if errors.As(err, &apiErr) {
			obs.IncCheckout("rejected")
		} else {
			obs.IncCheckout("error")
		}
		s.Logger.Warn().Err(err).Int("lines", len(items)).Msg("checkout failed, cart kept")
		return Result{}, fmt.Errorf("submit checkout: %w", err)
	}
	obs.IncCheckout("ok")

	if _, err := s.Store.Settle(ctx, items); err != nil {
		s.Logger.Error().Err(err).Str("folio", receipt.Folio.String()).Msg("sale registered but cart not cleared")
	}

	res := Result{
		Folio:   receipt.Folio.String(),
		Total:   receipt.Amount(),
		Message: Message(receipt),
	}
	if receipt.HasChange() {
		v := receipt.Vuelto.Decimal
		res.Vuelto = &v
	}
	s.Logger.Info().Str("folio", res.Folio).Str("total", res.Total.String()).Msg("sale registered")
	return res, nil
}

// Message renders the confirmation shown to the cashier.
func Message(r posapi.Receipt) string {
	msg := fmt.Sprintf("Venta registrada. Folio: %s - Total: %s", r.Folio, pricing.FormatCLP(r.Amount().InexactFloat64()))
	if r.HasChange() {
		msg += " - Vuelto: " + pricing.FormatCLP(r.Vuelto.Decimal.InexactFloat64())
	}
	return msg
}

func (s *Service) buildRequest(items []cart.Item, in Input) posapi.CheckoutRequest {
	lines := make([]posapi.CheckoutItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, posapi.CheckoutItem{
			ProductoID:     it.ID.String(),
			Cantidad:       it.Qty,
			PrecioUnitario: it.Precio,
			DescuentoPct:   it.DescuentoPct,
		})
	}
	var monto *float64
	if in.MontoPagado != nil && *in.MontoPagado != 0 && !math.IsNaN(*in.MontoPagado) {
		v := *in.MontoPagado
		monto = &v
	}
	method := strings.TrimSpace(in.MetodoPago)
	if method == "" {
		method = valueOr(s.DefaultMethod, "efectivo")
	}
	return posapi.CheckoutRequest{
		CanalVenta:  valueOr(s.Channel, "presencial"),
		MontoPagado: monto,
		MetodoPago:  method,
		Items:       lines,
	}
}

func (s *Service) taxBps() int {
	return pricing.EffectiveTaxBps(s.TaxBps)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func valueOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
