package pricing

import "testing"

func TestComputeTotals(t *testing.T) {
	items := []Item{
		{Name: "Marraqueta", Qty: 2, UnitPrice: 1000},
		{Name: "Torta", Qty: 1, UnitPrice: 2500},
	}
	summary := Compute(items, DefaultTaxBps)
	if summary.Subtotal != 4500 {
		t.Fatalf("expected subtotal 4500, got %v", summary.Subtotal)
	}
	if summary.Tax != 855 {
		t.Fatalf("expected tax 855, got %d", summary.Tax)
	}
	if summary.Total != 5355 {
		t.Fatalf("expected total 5355, got %d", summary.Total)
	}
}

func TestComputeEmpty(t *testing.T) {
	summary := Compute(nil, DefaultTaxBps)
	if summary.Subtotal != 0 || summary.Tax != 0 || summary.Total != 0 {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

func TestComputeRoundsIndependently(t *testing.T) {
	// 10.5 * 0.19 = 1.995 -> tax 2; 10.5 + 2 = 12.5 -> total 13, not 12.
	summary := Compute([]Item{{Qty: 1, UnitPrice: 10.5}}, DefaultTaxBps)
	if summary.Tax != 2 {
		t.Fatalf("expected tax 2, got %d", summary.Tax)
	}
	if summary.Total != 13 {
		t.Fatalf("expected total 13, got %d", summary.Total)
	}
}

func TestChange(t *testing.T) {
	cases := []struct {
		paid  float64
		total int64
		want  int64
	}{
		{paid: 5000, total: 5355, want: 0},
		{paid: 6000, total: 5355, want: 645},
		{paid: 5355, total: 5355, want: 0},
		{paid: 5355.5, total: 5355, want: 1},
		{paid: 0, total: 0, want: 0},
	}
	for _, tc := range cases {
		if got := Change(tc.paid, tc.total); got != tc.want {
			t.Fatalf("Change(%v, %d) = %d, want %d", tc.paid, tc.total, got, tc.want)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	if Round(2.5) != 3 {
		t.Fatalf("expected 3")
	}
	if Round(-2.5) != -2 {
		t.Fatalf("expected -2")
	}
	if Round(2.49) != 2 {
		t.Fatalf("expected 2")
	}
	if got := Round(0.49999999999999994); got != 0 {
		t.Fatalf("expected 0 for the largest double below 0.5, got %d", got)
	}
	if got := Round(-0.5); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestEffectiveTaxBps(t *testing.T) {
	cases := map[int]int{0: DefaultTaxBps, -10: DefaultTaxBps, 1000: 1000}
	for in, want := range cases {
		if got := EffectiveTaxBps(in); got != want {
			t.Fatalf("EffectiveTaxBps(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestFormatCLP(t *testing.T) {
	if got := FormatCLP(1234567); got != "$1.234.567" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := FormatCLP(999.6); got != "$1.000" && got != "$1000" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := FormatCLP(0); got != "$0" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := FormatCLP(-5); got != "$-5" {
		t.Fatalf("unexpected format %q", got)
	}
}

func TestLines(t *testing.T) {
	lines := Lines([]Item{{Name: "Pan", Qty: 3, UnitPrice: 150}})
	if len(lines) != 1 || lines[0] != "Pan x3 — $450" {
		t.Fatalf("unexpected lines %v", lines)
	}
}
