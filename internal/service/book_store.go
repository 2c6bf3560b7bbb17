package service

import (
	"log/slog"
	"sort"
	"sync"

	"lightning_go/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultDisplayDepth is the number of rows per side returned when no depth is configured.
const DefaultDisplayDepth = 24

// BookStore holds the bid/ask depth of one product and reconciles the board
// snapshot with the delta stream.
//
// While locked, deltas are queued whole in arrival order instead of applied.
// SetSnapshot always applies immediately. Unlock replays the queue through
// the same merge used for live deltas, so a snapshot fetched inside a lock
// window is never overwritten by older state and no delta is lost.
type BookStore struct {
	mu sync.Mutex

	bids map[string]domain.PriceLevel // keyed by canonical price string
	asks map[string]domain.PriceLevel

	locked  bool
	pending []*domain.BoardPayload

	factor decimal.Decimal
	depth  int

	onChange func()
	logger   *slog.Logger
}

// NewBookStore creates an empty, unlocked store.
func NewBookStore() *BookStore {
	return &BookStore{
		bids:   make(map[string]domain.PriceLevel),
		asks:   make(map[string]domain.PriceLevel),
		factor: decimal.Zero,
		depth:  DefaultDisplayDepth,
		logger: slog.Default().With("module", "book_store"),
	}
}

// OnChange registers the state-changed notification. It is invoked after
// every mutation that changes what queries return, outside the store lock.
func (s *BookStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetGroupingFactor sets the bucket width used by Bids/Asks. Zero disables grouping.
func (s *BookStore) SetGroupingFactor(f decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.IsNegative() {
		f = decimal.Zero
	}
	s.factor = f
}

// SetDisplayDepth sets the maximum rows per side. n <= 0 returns every level.
func (s *BookStore) SetDisplayDepth(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depth = n
}

// Lock enters buffering mode. Idempotent.
func (s *BookStore) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = true
}

// Unlock replays buffered deltas in arrival order and leaves buffering mode.
func (s *BookStore) Unlock() {
	s.mu.Lock()
	s.locked = false
	pending := s.pending
	s.pending = nil
	for _, p := range pending {
		s.merge(p)
	}
	fn := s.onChange
	s.mu.Unlock()

	if len(pending) > 0 {
		s.logger.Debug("Replayed buffered deltas", slog.Int("count", len(pending)))
	}
	notify(fn)
}

// Locked reports whether the store is buffering.
func (s *BookStore) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Pending returns the number of buffered deltas.
func (s *BookStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// SetSnapshot replaces both sides wholesale, regardless of lock state.
func (s *BookStore) SetSnapshot(p *domain.BoardPayload) {
	s.mu.Lock()
	s.bids = make(map[string]domain.PriceLevel, len(p.Bids))
	s.asks = make(map[string]domain.PriceLevel, len(p.Asks))
	s.merge(p)
	fn := s.onChange
	s.mu.Unlock()

	notify(fn)
}

// ApplyDelta merges a delta, or queues it whole while locked. It never
// blocks on the lock window; the return value reports whether it was queued.
func (s *BookStore) ApplyDelta(p *domain.BoardPayload) (buffered bool) {
	if p == nil {
		return false
	}

	s.mu.Lock()
	if s.locked {
		s.pending = append(s.pending, p)
		s.mu.Unlock()
		return true
	}
	s.merge(p)
	fn := s.onChange
	s.mu.Unlock()

	notify(fn)
	return false
}

// merge applies every valid entry of p. Must be called with lock held.
func (s *BookStore) merge(p *domain.BoardPayload) {
	skipped := mergeSide(s.bids, p.Bids) + mergeSide(s.asks, p.Asks)
	if skipped > 0 {
		s.logger.Debug("Skipped malformed board entries", slog.Int("count", skipped))
	}
}

func mergeSide(side map[string]domain.PriceLevel, entries []domain.BoardEntry) (skipped int) {
	for _, e := range entries {
		if !e.Valid() {
			skipped++
			continue
		}
		key := e.Price.String()
		// a level never exists with size <= 0
		if !e.Size.IsPositive() {
			delete(side, key)
			continue
		}
		side[key] = domain.PriceLevel{Price: *e.Price, Size: *e.Size}
	}
	return skipped
}

// Len returns the raw number of bid and ask levels.
func (s *BookStore) Len() (bids, asks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bids), len(s.asks)
}

// Bids returns the display view of the bid side: highest prices first,
// grouped by flooring to the grouping factor, truncated to the display depth.
func (s *BookStore) Bids() []domain.PriceLevel {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := sortDesc(groupLevels(s.bids, s.factor, false))
	if s.depth > 0 && len(rows) > s.depth {
		rows = rows[:s.depth]
	}
	return rows
}

// Asks returns the display view of the ask side. Levels are ordered by price
// descending like Bids and the lowest prices are kept, so the best ask is last.
func (s *BookStore) Asks() []domain.PriceLevel {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := sortDesc(groupLevels(s.asks, s.factor, true))
	if s.depth > 0 && len(rows) > s.depth {
		rows = rows[len(rows)-s.depth:]
	}
	return rows
}

// groupLevels buckets levels to multiples of factor, rounding down for bids
// and up for asks. A zero factor returns the levels unchanged.
func groupLevels(side map[string]domain.PriceLevel, factor decimal.Decimal, roundUp bool) []domain.PriceLevel {
	if !factor.IsPositive() {
		out := make([]domain.PriceLevel, 0, len(side))
		for _, lv := range side {
			out = append(out, lv)
		}
		return out
	}

	buckets := make(map[string]domain.PriceLevel)
	for _, lv := range side {
		b := Bucket(lv.Price, factor, roundUp)
		key := b.String()
		acc, ok := buckets[key]
		if !ok {
			acc = domain.PriceLevel{Price: b, Size: decimal.Zero}
		}
		acc.Size = acc.Size.Add(lv.Size)
		buckets[key] = acc
	}

	out := make([]domain.PriceLevel, 0, len(buckets))
	for _, lv := range buckets {
		out = append(out, lv)
	}
	return out
}

// Bucket returns floor(price/factor)*factor, or the ceiling when roundUp is set.
func Bucket(price, factor decimal.Decimal, roundUp bool) decimal.Decimal {
	q, r := price.QuoRem(factor, 0)
	switch {
	case roundUp && r.IsPositive():
		q = q.Add(decimal.NewFromInt(1))
	case !roundUp && r.IsNegative():
		q = q.Sub(decimal.NewFromInt(1))
	}
	return q.Mul(factor)
}

func sortDesc(rows []domain.PriceLevel) []domain.PriceLevel {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Price.GreaterThan(rows[j].Price)
	})
	return rows
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}
