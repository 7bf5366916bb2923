package trackerbun

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-chartpdf/report"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record states.
const (
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Record is one finished export attempt.
type Record struct {
	ID          string
	Mode        string
	Layout      string
	ContentIDs  []string
	State       string
	Filename    string
	Pages       int
	Bytes       int64
	Skipped     []string
	ArtifactKey string
	WorkbookKey string
	ErrorKind   report.ErrorKind
	Error       string
	CreatedAt   time.Time
	Duration    time.Duration
}

// Filter narrows List results.
type Filter struct {
	Mode  string
	State string
	Since time.Time
	Until time.Time
	Limit int
}

// Tracker stores export history in a Bun-backed database.
type Tracker struct {
	DB          *bun.DB
	Now         func() time.Time
	IDGenerator func() string
}

// NewTracker creates a Bun-backed tracker.
func NewTracker(db *bun.DB) *Tracker {
	return &Tracker{DB: db, Now: time.Now, IDGenerator: uuid.NewString}
}

// CreateTable creates the history table if it does not exist.
func (t *Tracker) CreateTable(ctx context.Context) error {
	if t == nil || t.DB == nil {
		return notConfigured()
	}
	_, err := t.DB.NewCreateTable().Model((*recordModel)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Record inserts a history record and returns its ID.
func (t *Tracker) Record(ctx context.Context, record Record) (string, error) {
	if t == nil || t.DB == nil {
		return "", notConfigured()
	}
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.State == "" {
		record.State = StateCompleted
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = t.now()
	}

	model, err := modelFromRecord(record)
	if err != nil {
		return "", err
	}
	if _, err := t.DB.NewInsert().Model(&model).Exec(ctx); err != nil {
		return "", err
	}
	return record.ID, nil
}

// Status returns a record by ID.
func (t *Tracker) Status(ctx context.Context, id string) (Record, error) {
	if t == nil || t.DB == nil {
		return Record{}, notConfigured()
	}
	if id == "" {
		return Record{}, report.NewError(report.KindValidation, "export ID is required", nil)
	}

	model := new(recordModel)
	err := t.DB.NewSelect().Model(model).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, report.NewError(report.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
		}
		return Record{}, err
	}
	return model.toRecord()
}

// List returns records matching a filter, newest first.
func (t *Tracker) List(ctx context.Context, filter Filter) ([]Record, error) {
	if t == nil || t.DB == nil {
		return nil, notConfigured()
	}

	models := make([]recordModel, 0)
	query := t.DB.NewSelect().Model(&models)
	if filter.Mode != "" {
		query = query.Where("mode = ?", filter.Mode)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at <= ?", filter.Until)
	}
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(models))
	for _, model := range models {
		record, err := model.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Delete removes a record from the tracker.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	if t == nil || t.DB == nil {
		return notConfigured()
	}
	if id == "" {
		return report.NewError(report.KindValidation, "export ID is required", nil)
	}

	res, err := t.DB.NewDelete().Model((*recordModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return report.NewError(report.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	return nil
}

type recordModel struct {
	bun.BaseModel `bun:"table:chart_exports,alias:chart_exports"`

	ID          string    `bun:",pk"`
	Mode        string    `bun:",notnull"`
	Layout      string    `bun:"layout"`
	ContentIDs  []byte    `bun:"content_ids"`
	State       string    `bun:",notnull"`
	Filename    string    `bun:"filename"`
	Pages       int       `bun:"pages"`
	Bytes       int64     `bun:"bytes"`
	Skipped     []byte    `bun:"skipped"`
	ArtifactKey string    `bun:"artifact_key"`
	WorkbookKey string    `bun:"workbook_key"`
	ErrorKind   string    `bun:"error_kind"`
	Error       string    `bun:"error"`
	CreatedAt   time.Time `bun:"created_at"`
	DurationMS  int64     `bun:"duration_ms"`
}

func modelFromRecord(record Record) (recordModel, error) {
	ids, err := json.Marshal(record.ContentIDs)
	if err != nil {
		return recordModel{}, err
	}
	skipped, err := json.Marshal(record.Skipped)
	if err != nil {
		return recordModel{}, err
	}

	return recordModel{
		ID:          record.ID,
		Mode:        record.Mode,
		Layout:      record.Layout,
		ContentIDs:  ids,
		State:       record.State,
		Filename:    record.Filename,
		Pages:       record.Pages,
		Bytes:       record.Bytes,
		Skipped:     skipped,
		ArtifactKey: record.ArtifactKey,
		WorkbookKey: record.WorkbookKey,
		ErrorKind:   string(record.ErrorKind),
		Error:       record.Error,
		CreatedAt:   record.CreatedAt,
		DurationMS:  record.Duration.Milliseconds(),
	}, nil
}

func (m recordModel) toRecord() (Record, error) {
	record := Record{
		ID:          m.ID,
		Mode:        m.Mode,
		Layout:      m.Layout,
		State:       m.State,
		Filename:    m.Filename,
		Pages:       m.Pages,
		Bytes:       m.Bytes,
		ArtifactKey: m.ArtifactKey,
		WorkbookKey: m.WorkbookKey,
		ErrorKind:   report.ErrorKind(m.ErrorKind),
		Error:       m.Error,
		CreatedAt:   m.CreatedAt,
		Duration:    time.Duration(m.DurationMS) * time.Millisecond,
	}
	if len(m.ContentIDs) > 0 {
		if err := json.Unmarshal(m.ContentIDs, &record.ContentIDs); err != nil {
			return Record{}, err
		}
	}
	if len(m.Skipped) > 0 {
		if err := json.Unmarshal(m.Skipped, &record.Skipped); err != nil {
			return Record{}, err
		}
	}
	return record, nil
}

func notConfigured() error {
	return report.NewError(report.KindUnexpected, "tracker database not configured", nil)
}

func (t *Tracker) now() time.Time {
	if t != nil && t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Tracker) nextID() string {
	if t != nil && t.IDGenerator != nil {
		return t.IDGenerator()
	}
	return uuid.NewString()
}
