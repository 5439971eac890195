package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/forneria-pos/internal/common"
)

// Handler serves product details.
type Handler struct {
	Svc *Service
}

// Product always answers 200; "available" tells the placeholder apart.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var detail ProductDetail
	if h == nil || h.Svc == nil {
		detail = Placeholder(id)
	} else {
		detail = h.Svc.Detail(r.Context(), id)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}
