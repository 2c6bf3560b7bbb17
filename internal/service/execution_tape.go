package service

import (
	"log/slog"
	"sync"

	"lightning_go/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultTapeCapacity is the tape length used when none is configured.
const DefaultTapeCapacity = 48

// TapeStats summarizes the tape by taker side.
type TapeStats struct {
	BuyVolume  decimal.Decimal `json:"buy_volume"`
	SellVolume decimal.Decimal `json:"sell_volume"`
	// Ratio is BuyVolume/SellVolume in float64: +Inf when only buys, NaN when empty.
	Ratio float64 `json:"ratio"`
}

// ExecutionTape is a bounded oldest-first log of recent executions for one
// product. It follows the same lock/replay protocol as BookStore.
type ExecutionTape struct {
	mu sync.Mutex

	capacity int
	data     []domain.Execution

	locked  bool
	pending [][]domain.ExecutionPayload

	onChange func()
	logger   *slog.Logger
}

// NewExecutionTape creates an empty, unlocked tape.
func NewExecutionTape(capacity int) *ExecutionTape {
	if capacity <= 0 {
		capacity = DefaultTapeCapacity
	}
	return &ExecutionTape{
		capacity: capacity,
		logger:   slog.Default().With("module", "execution_tape"),
	}
}

// OnChange registers the state-changed notification.
func (t *ExecutionTape) OnChange(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// SetCapacity changes the bound, dropping the oldest entries if needed.
func (t *ExecutionTape) SetCapacity(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.capacity = n
	t.trim()
}

// Capacity returns the current bound.
func (t *ExecutionTape) Capacity() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.capacity
}

// Lock enters buffering mode. Idempotent.
func (t *ExecutionTape) Lock() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locked = true
}

// Unlock replays queued batches in arrival order and leaves buffering mode.
func (t *ExecutionTape) Unlock() {
	t.mu.Lock()
	t.locked = false
	pending := t.pending
	t.pending = nil
	for _, batch := range pending {
		t.appendBatch(batch)
	}
	fn := t.onChange
	t.mu.Unlock()

	notify(fn)
}

// Locked reports whether the tape is buffering.
func (t *ExecutionTape) Locked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.locked
}

// Set replaces the tape with the given history, applied immediately
// regardless of lock state.
func (t *ExecutionTape) Set(batch []domain.ExecutionPayload) {
	t.mu.Lock()
	t.data = nil
	t.appendBatch(batch)
	fn := t.onChange
	t.mu.Unlock()

	notify(fn)
}

// Add appends a single execution or a batch, or queues the batch while locked.
func (t *ExecutionTape) Add(batch ...domain.ExecutionPayload) (buffered bool) {
	if len(batch) == 0 {
		return false
	}

	t.mu.Lock()
	if t.locked {
		t.pending = append(t.pending, append([]domain.ExecutionPayload(nil), batch...))
		t.mu.Unlock()
		return true
	}
	t.appendBatch(batch)
	fn := t.onChange
	t.mu.Unlock()

	notify(fn)
	return false
}

// appendBatch converts, orders oldest-first and appends. Must be called with lock held.
func (t *ExecutionTape) appendBatch(batch []domain.ExecutionPayload) {
	rows := make([]domain.Execution, 0, len(batch))
	for _, p := range batch {
		ex, err := p.ToExecution()
		if err != nil {
			t.logger.Debug("Skipped malformed execution", slog.Any("error", err))
			continue
		}
		rows = append(rows, ex)
	}

	if newestFirst(rows) {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	if len(rows) > t.capacity {
		rows = rows[len(rows)-t.capacity:]
	}

	t.data = append(t.data, rows...)
	t.trim()
}

func (t *ExecutionTape) trim() {
	if len(t.data) > t.capacity {
		t.data = append([]domain.Execution(nil), t.data[len(t.data)-t.capacity:]...)
	}
}

// newestFirst reports whether a batch is ordered newest to oldest, judged by
// execution id and falling back to time.
func newestFirst(rows []domain.Execution) bool {
	if len(rows) < 2 {
		return false
	}
	first, last := rows[0], rows[len(rows)-1]
	if first.ID != 0 && last.ID != 0 && first.ID != last.ID {
		return first.ID > last.ID
	}
	return first.Time.After(last.Time)
}

// Len returns the number of executions held.
func (t *ExecutionTape) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.data)
}

// Entries returns a copy of the tape, oldest first.
func (t *ExecutionTape) Entries() []domain.Execution {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.Execution(nil), t.data...)
}

// Stats sums sizes per side over the whole tape.
func (t *ExecutionTape) Stats() TapeStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	buy, sell := decimal.Zero, decimal.Zero
	for _, ex := range t.data {
		switch ex.Side {
		case domain.SideBuy:
			buy = buy.Add(ex.Size)
		case domain.SideSell:
			sell = sell.Add(ex.Size)
		}
	}

	return TapeStats{
		BuyVolume:  buy,
		SellVolume: sell,
		Ratio:      buy.InexactFloat64() / sell.InexactFloat64(),
	}
}
