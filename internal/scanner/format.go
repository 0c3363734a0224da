package scanner

import (
	"github.com/shopspring/decimal"

	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

// FormattedRow is the presentation shape of a candidate: percentages
// rendered to one decimal place with a trailing percent sign.
type FormattedRow struct {
	Symbol string `json:"Symbol"`
	LD     string `json:"LD"`
	HD     string `json:"HD"`
	Profit string `json:"Profit"`
}

// FormatRows renders candidate rows for presentation. Rounding is half away
// from zero, which decimal gives us and fmt's %.1f (half to even) does not.
func FormatRows(rows []types.CandidateRow) []FormattedRow {
	out := make([]FormattedRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, FormattedRow{
			Symbol: row.Symbol,
			LD:     formatPct(row.LDPct),
			HD:     formatPct(row.HDPct),
			Profit: formatPct(row.ProfitPct),
		})
	}
	return out
}

func formatPct(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(1) + "%"
}
