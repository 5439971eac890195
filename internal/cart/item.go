package cart

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ProductID is a product identifier compared as text. It decodes from either
// a JSON string or a JSON number and always encodes as a string.
type ProductID string

func (p *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ProductID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = ProductID(n.String())
	return nil
}

func (p ProductID) String() string { return string(p) }

// Item is one cart line as persisted under the cart key.
type Item struct {
	ID           ProductID `json:"id"`
	Nombre       string    `json:"nombre"`
	Precio       float64   `json:"precio"`
	Qty          int       `json:"qty"`
	DescuentoPct float64   `json:"descuento_pct,omitempty"`
}

// Subtotal is precio × qty, unrounded.
func (it Item) Subtotal() float64 {
	return it.Precio * float64(it.Qty)
}

var pricePrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParsePrice reads the leading decimal number of s, ignoring anything after
// it. Text without a numeric prefix, and negative or non-finite values, give 0.
func ParsePrice(s string) float64 {
	m := pricePrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return sanitizePrice(v)
}

func sanitizePrice(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
