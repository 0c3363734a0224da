package transport

import (
	"strconv"

	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

// normalize translates exchange-native decimal strings into a TickerRecord.
// Returns false when any numeric field fails to parse; the caller drops
// that single record and keeps the batch.
func normalize(symbol, last, high, low, changePct string) (types.TickerRecord, bool) {
	lastF, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return types.TickerRecord{}, false
	}
	highF, err := strconv.ParseFloat(high, 64)
	if err != nil {
		return types.TickerRecord{}, false
	}
	lowF, err := strconv.ParseFloat(low, 64)
	if err != nil {
		return types.TickerRecord{}, false
	}
	changeF, err := strconv.ParseFloat(changePct, 64)
	if err != nil {
		return types.TickerRecord{}, false
	}
	return types.TickerRecord{
		Symbol:    symbol,
		Last:      lastF,
		High:      highF,
		Low:       lowF,
		ChangePct: changeF,
	}, true
}
