package scheduler

import (
	"sync"

	"github.com/wonny/folio/backend/internal/contracts"
)

// DefaultHistorySize is the number of runs kept in memory
const DefaultHistorySize = 50

// RunHistory keeps the most recent run snapshots
type RunHistory struct {
	mu    sync.RWMutex
	runs  []*contracts.RunStats
	limit int
}

// NewRunHistory creates a history holding up to limit runs
func NewRunHistory(limit int) *RunHistory {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &RunHistory{limit: limit}
}

// Add appends a finished run, dropping the oldest beyond the limit
func (h *RunHistory) Add(run *contracts.RunStats) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.runs = append(h.runs, run)
	if len(h.runs) > h.limit {
		h.runs = h.runs[len(h.runs)-h.limit:]
	}
}

// Latest returns up to n runs, newest first
func (h *RunHistory) Latest(n int) []*contracts.RunStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.runs) {
		n = len(h.runs)
	}

	out := make([]*contracts.RunStats, 0, n)
	for i := len(h.runs) - 1; i >= len(h.runs)-n; i-- {
		out = append(out, h.runs[i])
	}
	return out
}

// Last returns the newest run or nil
func (h *RunHistory) Last() *contracts.RunStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.runs) == 0 {
		return nil
	}
	return h.runs[len(h.runs)-1]
}

// FailureRate is failed users over all users across the kept runs (0.0 - 1.0)
func (h *RunHistory) FailureRate() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total, failed := 0, 0
	for _, r := range h.runs {
		total += r.TotalUsers
		failed += r.Failed
	}
	if total == 0 {
		return 0.0
	}
	return float64(failed) / float64(total)
}
