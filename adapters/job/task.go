// Package reportjob runs chart exports as go-job tasks.
package reportjob

import (
	"context"
	"encoding/json"

	"github.com/goliatone/go-chartpdf/command"
	"github.com/goliatone/go-chartpdf/report"
	job "github.com/goliatone/go-job"
)

const (
	DefaultExportTaskID   = "chartpdf:export"
	DefaultExportTaskPath = "chartpdf:export"
)

// Payload captures one export for queued execution.
type Payload struct {
	// Key identifies the run for cancellation and deduplication.
	Key string `json:"key"`
	command.ExportSpec
}

// MessageBuilderFunc builds an execution message for non-queue paths.
type MessageBuilderFunc func(ctx context.Context) (*job.ExecutionMessage, error)

// Dispatch runs an export request.
type Dispatch func(ctx context.Context, req command.Request) (report.Result, error)

// TaskConfig configures the export task.
type TaskConfig struct {
	ID             string
	Path           string
	Config         job.Config
	HandlerOptions job.HandlerOptions
	CancelRegistry *CancelRegistry
	Logger         report.Logger
	Dispatch       Dispatch
	MessageBuilder MessageBuilderFunc
	// OnResult receives each completed export.
	OnResult func(key string, result report.Result)
}

// ExportTask executes queued chart exports.
type ExportTask struct {
	id             string
	path           string
	config         job.Config
	handlerOptions job.HandlerOptions
	cancelRegistry *CancelRegistry
	logger         report.Logger
	dispatch       Dispatch
	messageBuilder MessageBuilderFunc
	onResult       func(key string, result report.Result)
}

// NewExportTask creates an export task. Requests go through the command
// dispatcher unless Dispatch is set.
func NewExportTask(cfg TaskConfig) *ExportTask {
	logger := cfg.Logger
	if logger == nil {
		logger = report.NopLogger{}
	}
	id := cfg.ID
	if id == "" {
		id = DefaultExportTaskID
	}
	path := cfg.Path
	if path == "" {
		path = DefaultExportTaskPath
	}
	dispatch := cfg.Dispatch
	if dispatch == nil {
		dispatch = command.DispatchRequest
	}

	return &ExportTask{
		id:             id,
		path:           path,
		config:         cfg.Config,
		handlerOptions: cfg.HandlerOptions,
		cancelRegistry: cfg.CancelRegistry,
		logger:         logger,
		dispatch:       dispatch,
		messageBuilder: cfg.MessageBuilder,
		onResult:       cfg.OnResult,
	}
}

// GetID returns the task identifier.
func (t *ExportTask) GetID() string { return t.id }

// GetHandler returns a handler for non-queue execution paths.
func (t *ExportTask) GetHandler() func() error {
	return func() error {
		if t == nil {
			return report.NewError(report.KindUnexpected, "task is nil", nil)
		}
		if t.messageBuilder == nil {
			return report.NewError(report.KindValidation, "job message builder not configured", nil)
		}

		ctx := context.Background()
		msg, err := t.messageBuilder(ctx)
		if err != nil {
			return err
		}
		if msg == nil {
			return report.NewError(report.KindValidation, "execution message is required", nil)
		}
		return t.Execute(ctx, msg)
	}
}

// GetHandlerConfig returns scheduler options for the task.
func (t *ExportTask) GetHandlerConfig() job.HandlerOptions { return t.handlerOptions }

// GetConfig returns task config defaults.
func (t *ExportTask) GetConfig() job.Config { return t.config }

// GetPath returns the task path.
func (t *ExportTask) GetPath() string { return t.path }

// GetEngine returns nil because this task is code-driven.
func (t *ExportTask) GetEngine() job.Engine { return nil }

// Execute runs the export described by the message payload. Failures are
// returned as is; the task does not retry.
func (t *ExportTask) Execute(ctx context.Context, msg *job.ExecutionMessage) error {
	if t == nil {
		return report.NewError(report.KindUnexpected, "task is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}
	req, err := payload.Request()
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	execCtx := ctx
	if t.cancelRegistry != nil && payload.Key != "" {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithCancel(ctx)
		defer cancel()
		release := t.cancelRegistry.Register(payload.Key, cancel)
		defer release()
	}

	result, err := t.dispatch(execCtx, req)
	if err != nil {
		t.logger.Errorf("job %s: %s failed: %v", payload.Key, req.Type(), err)
		return err
	}
	t.logger.Infof("job %s: wrote %s (%d pages)", payload.Key, result.Filename, result.Pages)
	if t.onResult != nil {
		t.onResult(payload.Key, result)
	}
	return nil
}

func encodePayload(payload Payload) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, report.NewError(report.KindValidation, "payload is not serializable", err)
	}
	return json.RawMessage(raw), nil
}

func decodePayload(msg *job.ExecutionMessage) (Payload, error) {
	if msg == nil || msg.Parameters == nil {
		return Payload{}, report.NewError(report.KindValidation, "job payload is required", nil)
	}

	raw, ok := msg.Parameters["payload"]
	if !ok {
		return Payload{}, report.NewError(report.KindValidation, "job payload missing", nil)
	}

	switch value := raw.(type) {
	case Payload:
		return value, nil
	case *Payload:
		if value == nil {
			return Payload{}, report.NewError(report.KindValidation, "job payload is nil", nil)
		}
		return *value, nil
	case json.RawMessage:
		return unmarshalPayload(value)
	case []byte:
		return unmarshalPayload(value)
	case string:
		return unmarshalPayload([]byte(value))
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return Payload{}, report.NewError(report.KindValidation, "job payload is invalid", err)
		}
		return unmarshalPayload(data)
	}
}

func unmarshalPayload(data []byte) (Payload, error) {
	if len(data) == 0 {
		return Payload{}, report.NewError(report.KindValidation, "job payload is empty", nil)
	}
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Payload{}, report.NewError(report.KindValidation, "job payload is invalid", err)
	}
	return payload, nil
}
