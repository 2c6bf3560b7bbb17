package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// ExecutionPayload is one trade as delivered by GET /v1/getexecutions or the
// lightning_executions_<code> channel.
type ExecutionPayload struct {
	ID       int64            `json:"id"`
	ExecDate string           `json:"exec_date"`
	Side     string           `json:"side"`
	Price    *decimal.Decimal `json:"price"`
	Size     *decimal.Decimal `json:"size"`
}

// Execution is the tape's internal record.
type Execution struct {
	ID    int64           `json:"id"`
	Time  time.Time       `json:"time"`
	Side  string          `json:"side"`
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
	Total decimal.Decimal `json:"total"` // Price * Size
}

// execDateLayouts covers exec_date with and without the trailing Z; the
// exchange has sent both over time.
var execDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// ToExecution converts the wire shape into a tape record.
func (p ExecutionPayload) ToExecution() (Execution, error) {
	if p.Price == nil || p.Size == nil {
		return Execution{}, fmt.Errorf("execution %d: %w: missing price or size", p.ID, ErrMalformedPayload)
	}
	if p.Side != SideBuy && p.Side != SideSell {
		return Execution{}, fmt.Errorf("execution %d: %w: side %q", p.ID, ErrMalformedPayload, p.Side)
	}

	var ts time.Time
	var err error
	for _, layout := range execDateLayouts {
		if ts, err = time.Parse(layout, p.ExecDate); err == nil {
			break
		}
	}
	if err != nil {
		return Execution{}, fmt.Errorf("execution %d: %w: exec_date %q", p.ID, ErrMalformedPayload, p.ExecDate)
	}

	return Execution{
		ID:    p.ID,
		Time:  ts.UTC(),
		Side:  p.Side,
		Price: *p.Price,
		Size:  *p.Size,
		Total: p.Price.Mul(*p.Size),
	}, nil
}

// ParseExecutions decodes either a JSON array of executions or a single
// execution object.
func ParseExecutions(raw []byte) ([]ExecutionPayload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrMalformedPayload
	}

	if raw[0] == '[' {
		var batch []ExecutionPayload
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return batch, nil
	}

	var single ExecutionPayload
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return []ExecutionPayload{single}, nil
}
