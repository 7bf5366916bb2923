// Command chartpdf runs chart, comparison and dashboard PDF exports described
// by a YAML job file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	reportchromium "github.com/goliatone/go-chartpdf/adapters/chromium"
	reporthttp "github.com/goliatone/go-chartpdf/adapters/http"
	reportjob "github.com/goliatone/go-chartpdf/adapters/job"
	reportpdf "github.com/goliatone/go-chartpdf/adapters/pdf"
	storefs "github.com/goliatone/go-chartpdf/adapters/store/fs"
	trackerbun "github.com/goliatone/go-chartpdf/adapters/tracker/bun"
	"github.com/goliatone/go-chartpdf/command"
	"github.com/goliatone/go-chartpdf/config"
	"github.com/goliatone/go-chartpdf/query"
	"github.com/goliatone/go-chartpdf/report"
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "Config file path (default: built-in settings)")
	jobPath := flag.String("job", "", "YAML job file with the exports to run")
	infoKey := flag.String("info", "", "Print metadata for a stored document and exit")
	deleteKey := flag.String("delete", "", "Delete a stored document and exit")
	serveAddr := flag.String("serve", "", "Serve the HTTP API on this address instead of running a job")
	historyLimit := flag.Int("history", 0, "Print the most recent N exports from the history database and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		configPath:   *configPath,
		jobPath:      *jobPath,
		infoKey:      *infoKey,
		deleteKey:    *deleteKey,
		serveAddr:    *serveAddr,
		historyLimit: *historyLimit,
	}
	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "chartpdf: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath   string
	jobPath      string
	infoKey      string
	deleteKey    string
	serveAddr    string
	historyLimit int
}

func run(ctx context.Context, opts runOptions) error {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	store := storefs.NewStore(cfg.Output.Dir)
	tracker, closeHistory, err := openHistory(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer closeHistory()

	switch {
	case opts.historyLimit > 0:
		return printHistory(ctx, tracker, opts.historyLimit)
	case opts.infoKey != "":
		return printInfo(ctx, store, opts.infoKey)
	case opts.deleteKey != "":
		if err := store.Delete(ctx, opts.deleteKey); err != nil {
			return err
		}
		logger.Infof("deleted %s", opts.deleteKey)
		return nil
	case opts.jobPath == "" && opts.serveAddr == "":
		flag.Usage()
		return fmt.Errorf("-job or -serve is required")
	}

	job := &jobFile{}
	if opts.jobPath != "" {
		if job, err = loadJobFile(opts.jobPath); err != nil {
			return err
		}
	}

	sources, panels, closeSources, err := openSources(ctx, cfg, job, logger)
	if err != nil {
		return err
	}
	defer closeSources()

	exporter := report.NewExporter(report.ExporterConfig{
		Sources:   sources,
		Panels:    panels,
		Store:     store,
		NewCanvas: reportpdf.Factory(reportpdf.Options{}),
		Logger:    logger,
		Document:  cfg.DocumentConfig(),
	})

	var exp command.Exporter = exporter
	if tracker != nil {
		exp = trackerbun.Track(exporter, tracker, logger)
	}

	subs, err := command.RegisterHandlers(gcmd.NewRegistry(), exp, store)
	if err != nil {
		return err
	}
	defer unsubscribe(subs)

	if opts.serveAddr != "" {
		return serve(ctx, opts.serveAddr, store, logger)
	}

	batch := command.NewBatchCommand(
		func(context.Context) ([]command.Request, error) {
			return job.requests(cfg.Output.Workbook)
		},
		command.WithBatchLogger(logger),
		command.WithBatchLimits(command.BatchLimits{
			MaxRequests:     job.MaxRequests,
			ContinueOnError: job.ContinueOnError,
		}),
	)

	outcomes, err := batch.Run(ctx)
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			continue
		}
		for _, id := range outcome.Result.Skipped {
			logger.Warnf("%s: skipped %s", outcome.Result.Filename, id)
		}
		if outcome.Result.Workbook != nil {
			logger.Infof("%s: workbook %s", outcome.Result.Filename, outcome.Result.Workbook.Key)
		}
	}
	return err
}

func serve(ctx context.Context, addr string, store *storefs.Store, logger *logrus.Logger) error {
	queue := reportjob.NewLocalQueue(ctx, reportjob.LocalQueueConfig{Logger: logger})
	defer queue.Wait()

	handler := reporthttp.NewHandler(reporthttp.Config{
		Store:     store,
		Scheduler: reportjob.NewScheduler(reportjob.Config{Enqueuer: queue, Logger: logger}),
		Runs:      queue,
		Logger:    logger,
	})
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("serving %s on %s", handler.BasePath(), addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func newLogger(cfg config.Log) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Level != "" {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, report.NewError(report.KindValidation, "log.level", err)
		}
		logger.SetLevel(level)
	}
	return logger, nil
}

// openSources returns static sources for jobs that list images, otherwise a
// chromium session on the configured page.
func openSources(ctx context.Context, cfg config.Config, job *jobFile, logger report.Logger) (report.ContentSource, report.PanelRasterizer, func(), error) {
	if len(job.Images) > 0 {
		source, err := job.staticSource()
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Debugf("loaded %d images from job file", len(job.Images))
		return source, source, func() {}, nil
	}

	url := cfg.Chromium.URL
	if job.URL != "" {
		url = job.URL
	}
	engine := &reportchromium.Engine{
		BrowserPath:  cfg.Chromium.BrowserPath,
		Headless:     cfg.Chromium.Headless,
		Timeout:      cfg.Chromium.Timeout,
		Args:         cfg.Chromium.Args,
		WindowWidth:  cfg.Chromium.WindowWidth,
		WindowHeight: cfg.Chromium.WindowHeight,
	}
	session, err := engine.Open(ctx, url, reportchromium.OpenOptions{
		WaitSelector: cfg.Chromium.WaitSelector,
		Settle:       cfg.Chromium.Settle,
	})
	if err != nil {
		_ = engine.Close()
		return nil, nil, nil, err
	}
	logger.Infof("opened %s", url)
	return session, session, func() {
		_ = session.Close()
		_ = engine.Close()
	}, nil
}

func printInfo(ctx context.Context, store query.ArtifactReader, key string) error {
	meta, err := query.NewArtifactMetadataHandler(store).Query(ctx, query.ArtifactMetadata{Key: key})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func unsubscribe(subs []dispatcher.Subscription) {
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
