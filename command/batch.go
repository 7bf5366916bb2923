package command

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-chartpdf/report"
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-errors"
)

// BatchLoader loads export requests from a source.
type BatchLoader func(ctx context.Context) ([]Request, error)

// BatchFileLoader loads export requests from a job file.
type BatchFileLoader func(path string) ([]Request, error)

// BatchExecutor runs one export request.
type BatchExecutor interface {
	ExecuteRequest(ctx context.Context, req Request) (report.Result, error)
}

// BatchExecutorFunc adapts a function to a BatchExecutor.
type BatchExecutorFunc func(ctx context.Context, req Request) (report.Result, error)

func (f BatchExecutorFunc) ExecuteRequest(ctx context.Context, req Request) (report.Result, error) {
	if f == nil {
		return report.Result{}, errors.New("batch executor is required", errors.CategoryInternal).
			WithTextCode("BATCH_EXECUTOR_NIL")
	}
	return f(ctx, req)
}

// DispatchRequest sends req through the command dispatcher and returns the
// export result stored by its handler.
func DispatchRequest(ctx context.Context, req Request) (report.Result, error) {
	switch msg := req.(type) {
	case ExportChart:
		return dispatcher.DispatchWithResult[ExportChart, report.Result](ctx, msg)
	case ExportCharts:
		return dispatcher.DispatchWithResult[ExportCharts, report.Result](ctx, msg)
	case ExportPanel:
		return dispatcher.DispatchWithResult[ExportPanel, report.Result](ctx, msg)
	default:
		return report.Result{}, errors.New("unsupported batch request", errors.CategoryValidation).
			WithTextCode("BATCH_REQUEST_UNSUPPORTED")
	}
}

// BatchLimits bounds batch execution.
type BatchLimits struct {
	MaxRequests int
	MinInterval time.Duration
	// ContinueOnError records failures and keeps going instead of stopping.
	ContinueOnError bool
}

// BatchOutcome is the result of one request in a batch run.
type BatchOutcome struct {
	Request Request
	Result  report.Result
	Err     error
}

// BatchCommand wires CLI/Cron execution for batches of export jobs.
type BatchCommand struct {
	executor   BatchExecutor
	loader     BatchLoader
	fileLoader BatchFileLoader
	cliConfig  gcmd.CLIConfig
	cronConfig gcmd.HandlerConfig
	limits     BatchLimits
	logger     report.Logger
	sleep      func(time.Duration)
}

// BatchOption customizes batch commands.
type BatchOption func(*BatchCommand)

// WithBatchCLIConfig overrides CLI configuration.
func WithBatchCLIConfig(cfg gcmd.CLIConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cliConfig = cfg
	}
}

// WithBatchCronConfig overrides cron configuration.
func WithBatchCronConfig(cfg gcmd.HandlerConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cronConfig = cfg
	}
}

// WithBatchLimits overrides batch execution limits.
func WithBatchLimits(limits BatchLimits) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.limits = limits
	}
}

// WithBatchExecutor replaces dispatcher-based execution.
func WithBatchExecutor(executor BatchExecutor) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.executor = executor
	}
}

// WithBatchFileLoader sets how the CLI --from flag is read.
func WithBatchFileLoader(loader BatchFileLoader) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.fileLoader = loader
	}
}

// WithBatchLogger sets the logger for per-request outcomes.
func WithBatchLogger(logger report.Logger) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.logger = logger
	}
}

// NewBatchCommand creates a batch export CLI/Cron command. Requests go
// through the dispatcher unless an executor is configured.
func NewBatchCommand(loader BatchLoader, opts ...BatchOption) *BatchCommand {
	cmd := &BatchCommand{
		executor: BatchExecutorFunc(DispatchRequest),
		loader:   loader,
		cliConfig: gcmd.CLIConfig{
			Path:        []string{"charts-batch"},
			Description: "Run batch chart exports",
			Group:       "charts",
		},
		cronConfig: gcmd.HandlerConfig{Expression: "0 6 * * *"},
		logger:     report.NopLogger{},
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cmd)
		}
	}
	return cmd
}

// Run loads and executes the batch.
func (c *BatchCommand) Run(ctx context.Context) ([]BatchOutcome, error) {
	return c.run(ctx, "")
}

// RunFile executes the batch read from path.
func (c *BatchCommand) RunFile(ctx context.Context, path string) ([]BatchOutcome, error) {
	return c.run(ctx, path)
}

// CronHandler executes scheduled batch exports.
func (c *BatchCommand) CronHandler() func() error {
	return func() error {
		_, err := c.run(context.Background(), "")
		return err
	}
}

// CronOptions returns cron configuration.
func (c *BatchCommand) CronOptions() gcmd.HandlerConfig {
	if c == nil {
		return gcmd.HandlerConfig{}
	}
	return c.cronConfig
}

// CLIHandler exposes the CLI handler.
func (c *BatchCommand) CLIHandler() any {
	return &batchCLI{cmd: c}
}

// CLIOptions returns CLI configuration.
func (c *BatchCommand) CLIOptions() gcmd.CLIConfig {
	if c == nil {
		return gcmd.CLIConfig{}
	}
	return c.cliConfig
}

func (c *BatchCommand) run(ctx context.Context, from string) ([]BatchOutcome, error) {
	if c == nil {
		return nil, errors.New("batch command is nil", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	if c.executor == nil {
		return nil, errors.New("batch executor is required", errors.CategoryValidation).
			WithTextCode("EXECUTOR_REQUIRED")
	}
	logger := c.logger
	if logger == nil {
		logger = report.NopLogger{}
	}

	requests, err := c.loadRequests(ctx, from)
	if err != nil {
		return nil, err
	}

	outcomes := make([]BatchOutcome, 0, len(requests))
	var firstErr error
	for i, req := range requests {
		if c.limits.MaxRequests > 0 && i >= c.limits.MaxRequests {
			logger.Warnf("batch limit of %d reached, %d requests not run", c.limits.MaxRequests, len(requests)-i)
			break
		}
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		if i > 0 && c.limits.MinInterval > 0 && c.sleep != nil {
			c.sleep(c.limits.MinInterval)
		}

		outcome := BatchOutcome{Request: req}
		if err := req.Validate(); err != nil {
			outcome.Err = err
		} else {
			outcome.Result, outcome.Err = c.executor.ExecuteRequest(ctx, req)
		}
		outcomes = append(outcomes, outcome)

		if outcome.Err != nil {
			logger.Errorf("batch %s failed: %v", req.Type(), outcome.Err)
			if !c.limits.ContinueOnError {
				return outcomes, outcome.Err
			}
			if firstErr == nil {
				firstErr = outcome.Err
			}
			continue
		}
		logger.Infof("batch %s wrote %s (%d pages)", req.Type(), outcome.Result.Filename, outcome.Result.Pages)
	}
	return outcomes, firstErr
}

func (c *BatchCommand) loadRequests(ctx context.Context, from string) ([]Request, error) {
	if strings.TrimSpace(from) != "" {
		if c.fileLoader == nil {
			return nil, errors.New("batch file loader not configured", errors.CategoryValidation).
				WithTextCode("FILE_LOADER_REQUIRED")
		}
		return c.fileLoader(from)
	}
	if c.loader == nil {
		return nil, errors.New("batch loader not configured", errors.CategoryValidation).
			WithTextCode("LOADER_REQUIRED")
	}
	return c.loader(ctx)
}

type batchCLI struct {
	cmd  *BatchCommand
	From string `kong:"name='from',help='Path to a YAML batch job file'"`
}

func (c *batchCLI) Run() error {
	if c == nil || c.cmd == nil {
		return errors.New("batch command is required", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	_, err := c.cmd.run(context.Background(), c.From)
	return err
}
