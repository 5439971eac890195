package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/forneria-pos/internal/common"
	"github.com/noah-isme/forneria-pos/internal/pricing"
)

// Handler exposes the cart store over HTTP.
type Handler struct {
	Store  *Store
	TaxBps int
}

type addItemRequest struct {
	ID     ProductID       `json:"id" validate:"required"`
	Nombre string          `json:"nombre" validate:"required"`
	Precio json.RawMessage `json:"precio"`
}

// View is the cart as rendered to clients.
type View struct {
	Items  []Item          `json:"items"`
	Count  int             `json:"count"`
	Totals pricing.Summary `json:"totals"`
	Change *int64          `json:"vuelto,omitempty"`
}

// Get returns the cart with its totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	items := h.Store.Load(r.Context())
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(items, nil)})
}

// AddItem upserts one unit of a product.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req addItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	items, err := h.Store.Add(r.Context(), string(req.ID), strings.TrimSpace(req.Nombre), decodePrice(req.Precio))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(items, nil)})
}

// RemoveItem deletes the line for the product in the path.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	items, err := h.Store.Remove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(items, nil)})
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if err := h.Store.Clear(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Totals returns subtotal, IVA and total, plus the change when ?paid= is given.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var paid *float64
	if raw := strings.TrimSpace(r.URL.Query().Get("paid")); raw != "" {
		v := ParsePrice(raw)
		paid = &v
	}
	view := h.view(h.Store.Load(r.Context()), paid)
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"totals": view.Totals,
			"vuelto": view.Change,
		},
	})
}

func (h *Handler) view(items []Item, paid *float64) View {
	summary := pricing.Compute(PricingItems(items), h.taxBps())
	count := 0
	for _, it := range items {
		count += it.Qty
	}
	v := View{Items: items, Count: count, Totals: summary}
	if paid != nil {
		change := pricing.Change(*paid, summary.Total)
		v.Change = &change
	}
	return v
}

func (h *Handler) taxBps() int {
	return pricing.EffectiveTaxBps(h.TaxBps)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidInput) {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "STORAGE_UNAVAILABLE", "no se pudo guardar el carrito", nil)
}

// PricingItems adapts cart lines to the totals calculator.
func PricingItems(items []Item) []pricing.Item {
	out := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		out = append(out, pricing.Item{Name: it.Nombre, Qty: it.Qty, UnitPrice: it.Precio})
	}
	return out
}

// decodePrice accepts a JSON number or a string holding a number.
func decodePrice(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		return ParsePrice(s)
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return 0
	}
	return sanitizePrice(d.InexactFloat64())
}
