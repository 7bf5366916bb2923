package reportjob

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-chartpdf/report"
	job "github.com/goliatone/go-job"
)

// RunState is the lifecycle state of a queued export.
type RunState string

const (
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunCanceled  RunState = "canceled"
)

// RunStatus reports a queued export.
type RunStatus struct {
	Key        string           `json:"key"`
	State      RunState         `json:"state"`
	Result     *report.Result   `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	ErrorKind  report.ErrorKind `json:"error_kind,omitempty"`
	QueuedAt   time.Time        `json:"queued_at"`
	FinishedAt time.Time        `json:"finished_at,omitzero"`
}

func (s RunStatus) active() bool {
	return s.State == RunQueued || s.State == RunRunning
}

// LocalQueueConfig configures an in-process queue.
type LocalQueueConfig struct {
	// Dispatch runs export requests; defaults to the command dispatcher.
	Dispatch Dispatch
	Logger   report.Logger
	Now      func() time.Time
}

// LocalQueue is an Enqueuer that runs each message on its own goroutine
// through an ExportTask. Runs stop when the base context is canceled.
type LocalQueue struct {
	base    context.Context
	task    *ExportTask
	cancels *CancelRegistry
	logger  report.Logger
	now     func() time.Time

	mu   sync.Mutex
	runs map[string]*RunStatus
	wg   sync.WaitGroup
}

// NewLocalQueue creates a queue whose runs derive from ctx.
func NewLocalQueue(ctx context.Context, cfg LocalQueueConfig) *LocalQueue {
	logger := cfg.Logger
	if logger == nil {
		logger = report.NopLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	q := &LocalQueue{
		base:    ctx,
		cancels: NewCancelRegistry(),
		logger:  logger,
		now:     now,
		runs:    make(map[string]*RunStatus),
	}
	q.task = NewExportTask(TaskConfig{
		CancelRegistry: q.cancels,
		Logger:         logger,
		Dispatch:       cfg.Dispatch,
		OnResult:       q.storeResult,
	})
	return q
}

// Enqueue starts msg in the background. A message carrying a merge dedup
// policy joins an active run with the same key instead of starting another.
func (q *LocalQueue) Enqueue(ctx context.Context, msg *job.ExecutionMessage) error {
	if q == nil {
		return report.NewError(report.KindUnexpected, "queue is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}
	if payload.Key == "" {
		return report.NewError(report.KindValidation, "job key is required", nil)
	}

	q.mu.Lock()
	if run, ok := q.runs[payload.Key]; ok && run.active() {
		q.mu.Unlock()
		if msg.DedupPolicy == job.DedupPolicyMerge {
			q.logger.Debugf("job %s already %s, merged", payload.Key, run.State)
			return nil
		}
		return report.NewError(report.KindValidation, fmt.Sprintf("job %q is already %s", payload.Key, run.State), nil)
	}
	q.runs[payload.Key] = &RunStatus{Key: payload.Key, State: RunQueued, QueuedAt: q.now()}
	q.wg.Add(1)
	q.mu.Unlock()

	go q.run(payload.Key, msg)
	return nil
}

// Status returns the state of a run.
func (q *LocalQueue) Status(ctx context.Context, key string) (RunStatus, error) {
	_ = ctx
	if q == nil {
		return RunStatus{}, report.NewError(report.KindUnexpected, "queue is nil", nil)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	run, ok := q.runs[key]
	if !ok {
		return RunStatus{}, report.NewError(report.KindNotFound, fmt.Sprintf("job %q not found", key), nil)
	}
	return *run, nil
}

// Cancel stops a running export.
func (q *LocalQueue) Cancel(ctx context.Context, key string) error {
	if q == nil {
		return report.NewError(report.KindUnexpected, "queue is nil", nil)
	}
	return q.cancels.Cancel(ctx, key)
}

// Wait blocks until every started run has finished.
func (q *LocalQueue) Wait() {
	if q != nil {
		q.wg.Wait()
	}
}

func (q *LocalQueue) run(key string, msg *job.ExecutionMessage) {
	defer q.wg.Done()
	q.update(key, func(run *RunStatus) { run.State = RunRunning })

	err := q.task.Execute(q.base, msg)
	q.update(key, func(run *RunStatus) {
		run.FinishedAt = q.now()
		switch kind := report.KindFromError(err); {
		case err == nil:
			run.State = RunCompleted
		case kind == report.KindCanceled:
			run.State = RunCanceled
			run.ErrorKind = kind
			run.Error = err.Error()
		default:
			run.State = RunFailed
			run.ErrorKind = kind
			run.Error = err.Error()
		}
	})
}

func (q *LocalQueue) storeResult(key string, result report.Result) {
	q.update(key, func(run *RunStatus) { run.Result = &result })
}

func (q *LocalQueue) update(key string, fn func(*RunStatus)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if run, ok := q.runs[key]; ok {
		fn(run)
	}
}
