// Package reporthttp exposes chart exports and stored documents over HTTP.
package reporthttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	reportjob "github.com/goliatone/go-chartpdf/adapters/job"
	"github.com/goliatone/go-chartpdf/command"
	"github.com/goliatone/go-chartpdf/query"
	"github.com/goliatone/go-chartpdf/report"
	errorslib "github.com/goliatone/go-errors"
)

const (
	defaultBasePath     = "/charts"
	defaultMaxBodyBytes = 4 << 20
)

// Artifacts is the store surface served by the handler.
type Artifacts interface {
	query.ArtifactReader
	command.ArtifactDeleter
}

// Scheduler queues exports for background execution.
type Scheduler interface {
	Schedule(ctx context.Context, payload reportjob.Payload) (string, error)
}

// Runs reports on and cancels queued exports.
type Runs interface {
	Status(ctx context.Context, key string) (reportjob.RunStatus, error)
	Cancel(ctx context.Context, key string) error
}

// Config configures the HTTP handler.
type Config struct {
	BasePath string
	// Dispatch runs export requests; defaults to the command dispatcher.
	Dispatch func(ctx context.Context, req command.Request) (report.Result, error)
	Store    Artifacts
	// Scheduler and Runs enable the {base}/jobs routes.
	Scheduler Scheduler
	Runs      Runs
	Logger    report.Logger
	// MaxBodyBytes caps export request bodies, which may carry tables.
	MaxBodyBytes int64
}

// Handler serves:
//
//	POST   {base}/exports          run an export described by a JSON command.ExportSpec
//	GET    {base}/artifacts/{key}  download a stored document (?meta=1 for metadata only)
//	DELETE {base}/artifacts/{key}  delete a stored document
//	POST   {base}/jobs             queue an export (reportjob.Payload), 202 with its key
//	GET    {base}/jobs/{key}       status of a queued export
//	DELETE {base}/jobs/{key}       cancel a running export
type Handler struct {
	base      string
	dispatch  func(ctx context.Context, req command.Request) (report.Result, error)
	store     Artifacts
	scheduler Scheduler
	runs      Runs
	logger    report.Logger
	maxBody   int64
	mux       *http.ServeMux
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		base:      strings.TrimRight(cfg.BasePath, "/"),
		dispatch:  cfg.Dispatch,
		store:     cfg.Store,
		scheduler: cfg.Scheduler,
		runs:      cfg.Runs,
		logger:    cfg.Logger,
		maxBody:   cfg.MaxBodyBytes,
	}
	if h.base == "" {
		h.base = defaultBasePath
	}
	if h.dispatch == nil {
		h.dispatch = command.DispatchRequest
	}
	if h.logger == nil {
		h.logger = report.NopLogger{}
	}
	if h.maxBody <= 0 {
		h.maxBody = defaultMaxBodyBytes
	}

	h.mux = http.NewServeMux()
	h.mux.HandleFunc("POST "+h.base+"/exports", h.handleExport)
	h.mux.HandleFunc("GET "+h.base+"/artifacts/{key...}", h.handleDownload)
	h.mux.HandleFunc("DELETE "+h.base+"/artifacts/{key...}", h.handleDelete)
	if h.scheduler != nil {
		h.mux.HandleFunc("POST "+h.base+"/jobs", h.handleSchedule)
	}
	if h.runs != nil {
		h.mux.HandleFunc("GET "+h.base+"/jobs/{key}", h.handleJobStatus)
		h.mux.HandleFunc("DELETE "+h.base+"/jobs/{key}", h.handleJobCancel)
	}
	return h
}

// BasePath returns the mount path.
func (h *Handler) BasePath() string { return h.base }

// RegisterRoutes registers the handler on a compatible router.
func (h *Handler) RegisterRoutes(router interface{ Handle(string, http.Handler) }) {
	router.Handle(h.base+"/", h)
}

// ServeHTTP routes export endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.mux == nil {
		writeError(w, report.NewError(report.KindUnexpected, "handler is nil", nil))
		return
	}
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	var spec command.ExportSpec
	dec := json.NewDecoder(io.LimitReader(r.Body, h.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		writeError(w, report.NewError(report.KindValidation, "invalid export request body", err))
		return
	}

	req, err := spec.Request()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.dispatch(r.Context(), req)
	if err != nil {
		h.logger.Errorf("http %s failed: %v", req.Type(), err)
		writeError(w, err)
		return
	}
	w.Header().Set("Location", h.base+"/artifacts/"+result.Artifact.Key)
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, report.NewError(report.KindUnexpected, "artifact store not configured", nil))
		return
	}
	key := r.PathValue("key")

	if r.URL.Query().Get("meta") != "" {
		meta, err := query.NewArtifactMetadataHandler(h.store).Query(r.Context(), query.ArtifactMetadata{Key: key})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, meta)
		return
	}

	body, meta, err := h.store.Open(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename := meta.Filename
	if filename == "" {
		filename = path.Base(key)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if meta.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", meta.Size))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warnf("http download %s interrupted: %v", key, err)
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, report.NewError(report.KindUnexpected, "artifact store not configured", nil))
		return
	}
	msg := command.DeleteArtifact{Key: r.PathValue("key")}
	if err := msg.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := command.NewDeleteArtifactHandler(h.store).Execute(r.Context(), msg); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var payload reportjob.Payload
	dec := json.NewDecoder(io.LimitReader(r.Body, h.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		writeError(w, report.NewError(report.KindValidation, "invalid job request body", err))
		return
	}

	key, err := h.scheduler.Schedule(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", h.base+"/jobs/"+key)
	writeJSON(w, http.StatusAccepted, map[string]string{"key": key})
}

func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.runs.Status(r.Context(), r.PathValue("key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleJobCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.runs.Cancel(r.Context(), r.PathValue("key")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	ge := report.AsGoError(err)
	writeJSON(w, statusForError(ge), errorResponse{
		Error: errorBody{Message: ge.Message, Code: ge.TextCode},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func statusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.Category {
	case errorslib.CategoryValidation:
		return http.StatusBadRequest
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	case errorslib.CategoryOperation:
		if err.TextCode == "canceled" {
			return http.StatusConflict
		}
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
