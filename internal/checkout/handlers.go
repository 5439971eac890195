package checkout

import (
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/forneria-pos/internal/cart"
	"github.com/noah-isme/forneria-pos/internal/common"
	"github.com/noah-isme/forneria-pos/internal/posapi"
)

// Messages surfaced to the cashier.
const (
	MsgEmptyCart   = "Carrito vacío"
	MsgUnavailable = "Error comunicándose con el servidor"
	MsgInProgress  = "Venta en curso, espere la respuesta del servidor"
)

type Handler struct {
	Svc *Service
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	paid := cart.ParsePrice(r.URL.Query().Get("paid"))
	preview, err := h.Svc.Preview(r.Context(), paid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": preview})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in Input
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &in); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	res, err := h.Svc.Submit(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": res})
}

func (h *Handler) ServerTime(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Svc.Timestamp(r.Context())})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *posapi.APIError
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", MsgEmptyCart, nil)
	case errors.Is(err, ErrInProgress):
		common.JSONError(w, http.StatusConflict, "CHECKOUT_IN_PROGRESS", MsgInProgress, nil)
	case errors.As(err, &apiErr):
		common.JSONError(w, http.StatusUnprocessableEntity, "CHECKOUT_REJECTED", "Error: "+strings.TrimSpace(apiErr.Detail), map[string]any{
			"status": apiErr.Status,
			"detail": apiErr.Detail,
		})
	case errors.Is(err, posapi.ErrUnavailable):
		common.JSONError(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE", MsgUnavailable, nil)
	default:
		common.WriteError(w, err)
	}
}
