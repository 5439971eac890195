package posapi

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// CheckoutItem is one line of a checkout payload.
type CheckoutItem struct {
	ProductoID     string  `json:"producto_id"`
	Cantidad       int     `json:"cantidad"`
	PrecioUnitario float64 `json:"precio_unitario"`
	DescuentoPct   float64 `json:"descuento_pct"`
}

// CheckoutRequest is the body of POST /pos/checkout/. A nil MontoPagado is
// sent as null.
type CheckoutRequest struct {
	CanalVenta  string         `json:"canal_venta"`
	MontoPagado *float64       `json:"monto_pagado"`
	MetodoPago  string         `json:"metodo_pago,omitempty"`
	Items       []CheckoutItem `json:"items"`
}

// Receipt is the backend's answer to an accepted checkout. Amounts arrive
// either as JSON numbers or as decimal strings.
type Receipt struct {
	ID          Text                `json:"id"`
	Folio       Text                `json:"folio"`
	Total       decimal.NullDecimal `json:"total"`
	TotalConIVA decimal.NullDecimal `json:"total_con_iva"`
	Vuelto      decimal.NullDecimal `json:"vuelto"`
}

// Amount is total when the backend sent it, otherwise total_con_iva.
func (r Receipt) Amount() decimal.Decimal {
	if r.Total.Valid {
		return r.Total.Decimal
	}
	if r.TotalConIVA.Valid {
		return r.TotalConIVA.Decimal
	}
	return decimal.Zero
}

// HasChange reports whether the receipt carries a non-zero vuelto.
func (r Receipt) HasChange() bool {
	return r.Vuelto.Valid && !r.Vuelto.Decimal.IsZero()
}

// Product is the detail returned by GET /pos/productos/{id}/.
type Product struct {
	Nombre      string              `json:"nombre"`
	Descripcion string              `json:"descripcion"`
	Precio      decimal.NullDecimal `json:"precio"`
	StockTotal  int                 `json:"stock_total"`
}

type serverTime struct {
	Formatted string `json:"formatted"`
}

type errorBody struct {
	Detail Text `json:"detail"`
}

// Text decodes a JSON string, number or null into its textual form.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
	default:
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string { return string(t) }
