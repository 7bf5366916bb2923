package reportjob

import (
	"context"
	"sync"

	"github.com/goliatone/go-chartpdf/report"
)

// CancelRegistry tracks running export jobs for cancellation.
type CancelRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewCancelRegistry creates a new registry for job cancellation.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{cancels: make(map[string]context.CancelFunc)}
}

// Register associates a cancel func with a job key.
func (r *CancelRegistry) Register(key string, cancel context.CancelFunc) func() {
	if r == nil || key == "" || cancel == nil {
		return func() {}
	}
	r.mu.Lock()
	r.cancels[key] = cancel
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.cancels, key)
		r.mu.Unlock()
	}
}

// Cancel stops a running export. The export surfaces a canceled error.
func (r *CancelRegistry) Cancel(ctx context.Context, key string) error {
	_ = ctx
	if r == nil {
		return report.NewError(report.KindUnexpected, "cancel registry is nil", nil)
	}
	if key == "" {
		return report.NewError(report.KindValidation, "job key is required", nil)
	}

	r.mu.Lock()
	cancel, ok := r.cancels[key]
	r.mu.Unlock()
	if !ok {
		return report.NewError(report.KindNotFound, "export not running", nil)
	}
	cancel()
	return nil
}
