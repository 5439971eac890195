package catalog

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/forneria-pos/internal/posapi"
)

// PlaceholderName is shown when a product detail cannot be fetched.
const PlaceholderName = "Detalle no disponible"

// Source looks up product details on the backend.
type Source interface {
	Product(ctx context.Context, id string) (posapi.Product, error)
}

// Price is a decimal that encodes as a bare JSON number.
type Price struct {
	decimal.Decimal
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.Decimal.String()), nil
}

// ProductDetail is what the terminal renders for a product.
type ProductDetail struct {
	ID          string          `json:"id"`
	Nombre      string          `json:"nombre"`
	Descripcion string          `json:"descripcion"`
	Precio      Price           `json:"precio"`
	StockTotal  int             `json:"stock_total"`
	Available   bool            `json:"available"`
}

// Placeholder is the detail used when the lookup fails.
func Placeholder(id string) ProductDetail {
	return ProductDetail{ID: id, Nombre: PlaceholderName, Precio: Price{decimal.Zero}}
}

type Service struct {
	Source Source
	Cache  *Cache
	Logger zerolog.Logger
}

// Detail never fails: any lookup error yields the placeholder.
func (s *Service) Detail(ctx context.Context, id string) ProductDetail {
	id = strings.TrimSpace(id)
	if s == nil || s.Source == nil || id == "" {
		return Placeholder(id)
	}

	var cached ProductDetail
	if ok, err := s.Cache.GetJSON(ctx, id, &cached); err != nil {
		s.Logger.Warn().Err(err).Str("product_id", id).Msg("product cache read failed")
	} else if ok {
		return cached
	}

	p, err := s.Source.Product(ctx, id)
	if err != nil {
		s.Logger.Info().Err(err).Str("product_id", id).Msg("product detail unavailable")
		return Placeholder(id)
	}
	detail := ProductDetail{
		ID:          id,
		Nombre:      p.Nombre,
		Descripcion: p.Descripcion,
		Precio:      Price{decimal.Zero},
		StockTotal:  p.StockTotal,
		Available:   true,
	}
	if p.Precio.Valid {
		detail.Precio = Price{p.Precio.Decimal}
	}
	if err := s.Cache.SetJSON(ctx, id, detail); err != nil {
		s.Logger.Warn().Err(err).Str("product_id", id).Msg("product cache write failed")
	}
	return detail
}
