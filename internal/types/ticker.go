package types

import "time"

// TickerRecord is the normalized 24h rolling observation for one symbol.
// Both transport adapters translate exchange-native field names into this
// shape before anything downstream sees the data.
type TickerRecord struct {
	Symbol     string
	Last       float64 // last traded price
	High       float64 // rolling-24h high
	Low        float64 // rolling-24h low
	ChangePct  float64 // exchange-reported 24h change, informational
	ObservedAt time.Time
}

// BatchKind tags whether an UpdateBatch carries the complete universe or a
// subset of symbols.
type BatchKind int

const (
	BatchFull    BatchKind = iota // complete current universe
	BatchPartial                  // upsert of one or more symbols
)

// String implements the fmt.Stringer interface for BatchKind.
func (k BatchKind) String() string {
	switch k {
	case BatchFull:
		return "Full"
	case BatchPartial:
		return "Partial"
	default:
		return "UnknownBatchKind"
	}
}

// UpdateBatch is the unit of ingest produced by both transport adapters.
type UpdateBatch struct {
	Kind    BatchKind
	Records []TickerRecord
}

// CandidateRow is one scanner result. The percentages are kept in numeric
// form; presentation formatting happens at the boundary.
type CandidateRow struct {
	Symbol    string
	LDPct     float64 // distance of last above the 24h low, percent of low
	HDPct     float64 // headroom from last to the 24h high, percent of last
	ProfitPct float64 // full 24h range, percent of low
}
