package scanner

import (
	"testing"

	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

func TestFormatPct_HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{10.0, "10.0%"},
		{5.88235, "5.9%"},
		{2.25, "2.3%"},  // fmt %.1f would give 2.2
		{-2.25, "-2.3%"},
		{0.0, "0.0%"},
	}
	for _, tc := range cases {
		if got := formatPct(tc.in); got != tc.want {
			t.Fatalf("formatPct(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatRows(t *testing.T) {
	rows := FormatRows([]types.CandidateRow{
		{Symbol: "BTCUSDT", LDPct: 0, HDPct: 10, ProfitPct: 10},
	})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	if got.Symbol != "BTCUSDT" || got.LD != "0.0%" || got.HD != "10.0%" || got.Profit != "10.0%" {
		t.Fatalf("unexpected formatted row: %+v", got)
	}
}
