package pricing

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultTaxBps is the Chilean IVA rate (19%) in basis points.
const DefaultTaxBps = 1900

// EffectiveTaxBps maps an unset or zero rate to DefaultTaxBps. Every caller
// that prices a cart goes through it so the CLI and HTTP agree.
func EffectiveTaxBps(bps int) int {
	if bps <= 0 {
		return DefaultTaxBps
	}
	return bps
}

// Item describes a line item used for pricing calculation.
type Item struct {
	Name      string
	Qty       int
	UnitPrice float64
}

// Summary aggregates computed pricing components. Subtotal is left unrounded;
// Tax and Total are rounded independently, so Subtotal+Tax may differ from
// Total by one unit for fractional inputs.
type Summary struct {
	Subtotal float64 `json:"subtotal"`
	Tax      int64   `json:"iva"`
	Total    int64   `json:"total"`
}

// Compute calculates cart totals given the provided inputs.
func Compute(items []Item, taxBps int) Summary {
	var subtotal float64
	for _, it := range items {
		subtotal += it.UnitPrice * float64(it.Qty)
	}
	if taxBps < 0 {
		taxBps = 0
	}
	tax := Round(subtotal * float64(taxBps) / 10000)
	total := Round(subtotal + float64(tax))
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    total,
	}
}

// Change returns the amount to hand back for paid against total, never negative.
func Change(paid float64, total int64) int64 {
	change := Round(paid) - total
	if change < 0 {
		return 0
	}
	return change
}

// Round rounds half toward positive infinity: 2.5 becomes 3, -2.5 becomes -2.
func Round(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	r := math.Floor(v)
	if v-r >= 0.5 {
		r++
	}
	return int64(r)
}

var (
	clpOnce    sync.Once
	clpPrinter *message.Printer
)

// FormatCLP renders v as Chilean pesos, rounded and grouped with "." as
// thousands separator. The sign follows the "$": -5 renders as "$-5".
func FormatCLP(v float64) string {
	clpOnce.Do(func() {
		clpPrinter = message.NewPrinter(language.MustParse("es-CL"))
	})
	return "$" + clpPrinter.Sprintf("%d", Round(v))
}

// Lines renders the per-line breakdown shown before checkout.
func Lines(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, fmt.Sprintf("%s x%d — %s", it.Name, it.Qty, FormatCLP(it.UnitPrice*float64(it.Qty))))
	}
	return out
}
