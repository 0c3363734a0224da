package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

// Store keeps the latest normalized ticker per symbol. Exactly one writer
// (the active producer) and any number of readers; a Full ingest swaps the
// whole map under the write lock so readers see either the old universe or
// the new one, never a mix.
type Store struct {
	mu          sync.RWMutex
	records     map[string]types.TickerRecord
	updatedAt   time.Time
	quoteSuffix string
}

// NewStore creates an empty store. quoteSuffix is the quote-asset suffix
// predicate applied on insert, e.g. "USDT".
func NewStore(quoteSuffix string) *Store {
	return &Store{
		records:     make(map[string]types.TickerRecord),
		quoteSuffix: quoteSuffix,
	}
}

// Ingest applies an update batch. A Full batch replaces the universe, a
// Partial batch upserts its symbols. Records violating the store invariants
// are dropped silently. The store timestamp advances on every call.
func (s *Store) Ingest(batch types.UpdateBatch) {
	now := time.Now()
	dropped := 0

	if batch.Kind == types.BatchFull {
		next := make(map[string]types.TickerRecord, len(batch.Records))
		for _, rec := range batch.Records {
			if !s.valid(rec) {
				dropped++
				continue
			}
			rec.ObservedAt = now
			next[rec.Symbol] = rec
		}
		s.mu.Lock()
		s.records = next
		s.updatedAt = now
		s.mu.Unlock()
	} else {
		s.mu.Lock()
		for _, rec := range batch.Records {
			if !s.valid(rec) {
				dropped++
				continue
			}
			rec.ObservedAt = now
			s.records[rec.Symbol] = rec
		}
		s.updatedAt = now
		s.mu.Unlock()
	}

	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Stringer("kind", batch.Kind).
			Msg("Dropped invalid ticker records")
	}
}

// valid enforces the insert invariants: positive prices, high >= low and
// the quote-asset suffix predicate.
func (s *Store) valid(rec types.TickerRecord) bool {
	if !strings.HasSuffix(rec.Symbol, s.quoteSuffix) {
		return false
	}
	if rec.Last <= 0 || rec.High <= 0 || rec.Low <= 0 {
		return false
	}
	if rec.High < rec.Low {
		return false
	}
	return true
}

// Snapshot returns a copy of the current universe and the store timestamp.
// The copy is the caller's to keep; later ingests do not touch it.
func (s *Store) Snapshot() (map[string]types.TickerRecord, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := make(map[string]types.TickerRecord, len(s.records))
	for sym, rec := range s.records {
		view[sym] = rec
	}
	return view, s.updatedAt
}

// Size returns the number of symbols currently stored.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// UpdatedAt returns the time of the last ingest, zero if none happened yet.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
