package services

import (
	"sync"

	"github.com/google/uuid"
)

// ItemFailure records one failed item of a best-effort fan-out.
type ItemFailure struct {
	ItemID uuid.UUID `json:"itemID"`
	Kind   string    `json:"kind"`
	Error  string    `json:"error"`
}

// BatchResult aggregates the outcome of a batch of independent per-item
// operations. One item's failure never cancels its siblings; callers get
// every outcome and can distinguish "fully succeeded" from "succeeded with
// N failures". Safe for concurrent use by the goroutines of one batch.
type BatchResult struct {
	mu        sync.Mutex
	Succeeded int           `json:"succeeded"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

func (r *BatchResult) Success() {
	r.mu.Lock()
	r.Succeeded++
	r.mu.Unlock()
}

func (r *BatchResult) Fail(kind string, itemID uuid.UUID, err error) {
	r.mu.Lock()
	r.Failures = append(r.Failures, ItemFailure{ItemID: itemID, Kind: kind, Error: err.Error()})
	r.mu.Unlock()
}

func (r *BatchResult) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Failures)
}
