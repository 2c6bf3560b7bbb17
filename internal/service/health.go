package service

import (
	"sync"
	"time"

	"lightning_go/internal/domain"
)

// HealthState holds the last polled board state of a product.
type HealthState struct {
	mu        sync.RWMutex
	health    domain.HealthPayload
	updatedAt time.Time
	onChange  func()
}

func NewHealthState() *HealthState {
	return &HealthState{}
}

func (h *HealthState) OnChange(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

func (h *HealthState) Update(p domain.HealthPayload) {
	h.mu.Lock()
	h.health = p
	h.updatedAt = time.Now()
	fn := h.onChange
	h.mu.Unlock()

	notify(fn)
}

// Get returns the last payload and when it was received (zero if never).
func (h *HealthState) Get() (domain.HealthPayload, time.Time) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.health, h.updatedAt
}
