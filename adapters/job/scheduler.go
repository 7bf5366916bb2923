package reportjob

import (
	"context"

	"github.com/goliatone/go-chartpdf/report"
	job "github.com/goliatone/go-job"
	"github.com/google/uuid"
)

// Enqueuer delivers execution messages to go-job.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg *job.ExecutionMessage) error
}

// EnqueuerFunc adapts a function to an Enqueuer.
type EnqueuerFunc func(ctx context.Context, msg *job.ExecutionMessage) error

func (f EnqueuerFunc) Enqueue(ctx context.Context, msg *job.ExecutionMessage) error {
	if f == nil {
		return report.NewError(report.KindUnexpected, "enqueuer is nil", nil)
	}
	return f(ctx, msg)
}

// Config configures the export scheduler.
type Config struct {
	Enqueuer Enqueuer
	TaskID   string
	TaskPath string
	Config   job.Config
	Logger   report.Logger
	// KeyGenerator names payloads that arrive without a key.
	KeyGenerator func() string
}

// Scheduler validates exports and enqueues them for an ExportTask.
type Scheduler struct {
	enqueuer Enqueuer
	taskID   string
	taskPath string
	config   job.Config
	logger   report.Logger
	newKey   func() string
}

// NewScheduler creates a new job scheduler adapter.
func NewScheduler(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = report.NopLogger{}
	}
	taskID := cfg.TaskID
	if taskID == "" {
		taskID = DefaultExportTaskID
	}
	taskPath := cfg.TaskPath
	if taskPath == "" {
		taskPath = DefaultExportTaskPath
	}
	newKey := cfg.KeyGenerator
	if newKey == nil {
		newKey = uuid.NewString
	}

	return &Scheduler{
		enqueuer: cfg.Enqueuer,
		taskID:   taskID,
		taskPath: taskPath,
		config:   cfg.Config,
		logger:   logger,
		newKey:   newKey,
	}
}

// BuildMessage validates payload and wraps it in an execution message. A
// caller-supplied key also deduplicates queued runs.
func (s *Scheduler) BuildMessage(payload Payload) (*job.ExecutionMessage, error) {
	msg, _, err := s.build(payload)
	return msg, err
}

func (s *Scheduler) build(payload Payload) (*job.ExecutionMessage, string, error) {
	if s == nil {
		return nil, "", report.NewError(report.KindUnexpected, "scheduler is nil", nil)
	}
	req, err := payload.Request()
	if err != nil {
		return nil, "", err
	}
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	dedup := payload.Key != ""
	if !dedup {
		payload.Key = s.newKey()
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return nil, "", err
	}

	msg := &job.ExecutionMessage{
		JobID:      s.taskID,
		ScriptPath: s.taskPath,
		Config:     s.config,
		Parameters: map[string]any{"payload": encoded},
	}
	if dedup {
		msg.IdempotencyKey = payload.Key
		msg.DedupPolicy = job.DedupPolicyMerge
	}
	return msg, payload.Key, nil
}

// Schedule enqueues payload and returns the job key.
func (s *Scheduler) Schedule(ctx context.Context, payload Payload) (string, error) {
	if s == nil {
		return "", report.NewError(report.KindUnexpected, "scheduler is nil", nil)
	}
	if s.enqueuer == nil {
		return "", report.NewError(report.KindValidation, "job enqueuer not configured", nil)
	}
	msg, key, err := s.build(payload)
	if err != nil {
		return "", err
	}
	if err := s.enqueuer.Enqueue(ctx, msg); err != nil {
		s.logger.Errorf("enqueue %s failed: %v", key, err)
		return "", err
	}
	return key, nil
}
