package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

func rec(symbol string, last, high, low float64) types.TickerRecord {
	return types.TickerRecord{Symbol: symbol, Last: last, High: high, Low: low}
}

func full(records ...types.TickerRecord) types.UpdateBatch {
	return types.UpdateBatch{Kind: types.BatchFull, Records: records}
}

func partial(records ...types.TickerRecord) types.UpdateBatch {
	return types.UpdateBatch{Kind: types.BatchPartial, Records: records}
}

func TestIngest_Invariants(t *testing.T) {
	s := NewStore("USDT")
	s.Ingest(full(
		rec("BTCUSDT", 100, 110, 100), // ok
		rec("ETHUSDT", 102, 108, 100), // ok
		rec("FOOBTC", 1, 2, 1),        // wrong quote asset
		rec("ZEROUSDT", 100, 110, 0),  // low = 0
		rec("NEGUSDT", 100, 110, -1),  // low < 0
		rec("INVUSDT", 7, 5, 10),      // high < low
	))

	if s.Size() != 2 {
		t.Fatalf("store size = %d, want 2", s.Size())
	}
	view, _ := s.Snapshot()
	for symbol, r := range view {
		if r.Low <= 0 || r.High < r.Low || r.Last <= 0 {
			t.Fatalf("stored record violates invariants: %s %+v", symbol, r)
		}
	}
	if _, ok := view["FOOBTC"]; ok {
		t.Fatal("non-USDT symbol must never be stored")
	}
}

func TestIngest_FullReplacesUniverse(t *testing.T) {
	s := NewStore("USDT")
	s.Ingest(full(rec("XUSDT", 1, 2, 1), rec("YUSDT", 1, 2, 1)))
	s.Ingest(full(rec("YUSDT", 2, 3, 2), rec("ZUSDT", 1, 2, 1)))

	view, _ := s.Snapshot()
	if len(view) != 2 {
		t.Fatalf("universe size = %d, want 2", len(view))
	}
	if _, ok := view["XUSDT"]; ok {
		t.Fatal("XUSDT should have been replaced away")
	}
	if view["YUSDT"].Last != 2 {
		t.Fatalf("YUSDT not updated: %+v", view["YUSDT"])
	}
	if _, ok := view["ZUSDT"]; !ok {
		t.Fatal("ZUSDT missing after replacement")
	}
}

func TestIngest_PartialUpserts(t *testing.T) {
	s := NewStore("USDT")
	s.Ingest(full(rec("XUSDT", 1, 2, 1), rec("YUSDT", 1, 2, 1)))
	t1 := s.UpdatedAt()

	s.Ingest(partial(rec("XUSDT", 1.5, 2, 1)))
	t2 := s.UpdatedAt()

	view, _ := s.Snapshot()
	if len(view) != 2 {
		t.Fatalf("partial must not shrink the universe, size = %d", len(view))
	}
	if view["XUSDT"].Last != 1.5 {
		t.Fatalf("XUSDT not upserted: %+v", view["XUSDT"])
	}
	if view["YUSDT"].Last != 1 {
		t.Fatalf("YUSDT should be untouched: %+v", view["YUSDT"])
	}
	if !t2.After(t1) {
		t.Fatalf("store timestamp must advance on each ingest: %v then %v", t1, t2)
	}
}

func TestIngest_Idempotent(t *testing.T) {
	s := NewStore("USDT")
	batch := full(rec("AUSDT", 1, 2, 1), rec("BUSDT", 3, 4, 3))
	s.Ingest(batch)
	before, t1 := s.Snapshot()
	s.Ingest(batch)
	after, t2 := s.Snapshot()

	if len(before) != len(after) {
		t.Fatalf("sizes differ: %d vs %d", len(before), len(after))
	}
	for symbol, r := range before {
		got := after[symbol]
		if got.Symbol != r.Symbol || got.Last != r.Last || got.High != r.High || got.Low != r.Low {
			t.Fatalf("record changed on re-ingest: %+v vs %+v", r, got)
		}
	}
	if !t2.After(t1) {
		t.Fatal("timestamp must bump on each ingest")
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := NewStore("USDT")
	s.Ingest(full(rec("AUSDT", 1, 2, 1)))
	view, _ := s.Snapshot()
	s.Ingest(full(rec("BUSDT", 1, 2, 1)))
	if _, ok := view["AUSDT"]; !ok {
		t.Fatal("snapshot must not be mutated by later ingests")
	}
}

// Full ingest is atomic at the universe level: a concurrent reader sees the
// pre-image or the post-image, never a mixture.
func TestIngest_AtomicReplace(t *testing.T) {
	s := NewStore("USDT")

	mk := func(gen int) types.UpdateBatch {
		records := make([]types.TickerRecord, 0, 50)
		for i := 0; i < 50; i++ {
			records = append(records, rec(fmt.Sprintf("G%dN%dUSDT", gen, i), 1, 2, 1))
		}
		return full(records...)
	}
	isGen := func(view map[string]types.TickerRecord, gen int) bool {
		if len(view) != 50 {
			return false
		}
		prefix := fmt.Sprintf("G%dN", gen)
		for symbol := range view {
			if symbol[:len(prefix)] != prefix {
				return false
			}
		}
		return true
	}

	s.Ingest(mk(0))
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for gen := 1; gen <= 200; gen++ {
			s.Ingest(mk(gen))
		}
		close(done)
	}()

	for {
		select {
		case <-done:
			wg.Wait()
			return
		default:
		}
		view, _ := s.Snapshot()
		ok := false
		for gen := 0; gen <= 200; gen++ {
			if isGen(view, gen) {
				ok = true
				break
			}
		}
		if !ok {
			t.Fatalf("snapshot is a mixture of universes: %d symbols", len(view))
		}
	}
}

func TestUpdatedAt_Monotonic(t *testing.T) {
	s := NewStore("USDT")
	if !s.UpdatedAt().IsZero() {
		t.Fatal("fresh store should have zero timestamp")
	}
	var prev time.Time
	for i := 0; i < 5; i++ {
		s.Ingest(partial(rec("AUSDT", 1, 2, 1)))
		now := s.UpdatedAt()
		if now.Before(prev) {
			t.Fatalf("timestamp went backwards: %v after %v", now, prev)
		}
		prev = now
	}
}
