package scanner

import (
	"math"
	"sort"

	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

// Policy holds the candidate filter thresholds. All bounds are inclusive
// at full float64 precision.
type Policy struct {
	PMinPct float64 // minimum 24h range percent
	PMaxPct float64 // optional maximum range percent, 0 disables
	LMaxPct float64 // maximum distance above the 24h low, percent
}

// DefaultPolicy is the "near-low, wide-range" heuristic: a 24h spread of at
// least ~7% while the price sits within 2% of the low.
func DefaultPolicy() Policy {
	return Policy{PMinPct: 7.0, LMaxPct: 2.0}
}

// NearLowPolicy keeps every symbol within 2% of its 24h low regardless of
// range width.
func NearLowPolicy() Policy {
	return Policy{PMinPct: 0, LMaxPct: 2.0}
}

// Scan derives the per-symbol metrics over a store view, applies the
// candidate filter and returns the survivors ordered by profit descending,
// symbol ascending on ties. Pure and deterministic; safe over arbitrary
// maps, so record invariants are re-checked here.
func Scan(view map[string]types.TickerRecord, policy Policy) []types.CandidateRow {
	rows := make([]types.CandidateRow, 0, len(view))
	for symbol, rec := range view {
		if rec.Low <= 0 || rec.High <= 0 || rec.Last <= 0 || rec.High < rec.Low {
			continue
		}

		ld := (rec.Last - rec.Low) / rec.Low * 100
		hd := (rec.High - rec.Last) / rec.Last * 100
		profit := (rec.High - rec.Low) / rec.Low * 100

		if !finite(ld) || !finite(hd) || !finite(profit) {
			continue
		}
		if profit < policy.PMinPct || ld > policy.LMaxPct {
			continue
		}
		if policy.PMaxPct > 0 && profit > policy.PMaxPct {
			continue
		}

		rows = append(rows, types.CandidateRow{
			Symbol:    symbol,
			LDPct:     ld,
			HDPct:     hd,
			ProfitPct: profit,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProfitPct != rows[j].ProfitPct {
			return rows[i].ProfitPct > rows[j].ProfitPct
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
