package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"

	trackerbun "github.com/goliatone/go-chartpdf/adapters/tracker/bun"
	"github.com/goliatone/go-chartpdf/config"
	"github.com/goliatone/go-chartpdf/report"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// openHistory opens the export history database. It returns a nil tracker
// when no DSN is configured.
func openHistory(ctx context.Context, cfg config.History) (*trackerbun.Tracker, func(), error) {
	if cfg.DSN == "" {
		return nil, func() {}, nil
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		return nil, nil, report.NewError(report.KindUnexpected, "open history database", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	tracker := trackerbun.NewTracker(db)
	if err := tracker.CreateTable(ctx); err != nil {
		_ = db.Close()
		return nil, nil, report.NewError(report.KindUnexpected, "create history table", err)
	}
	return tracker, func() { _ = db.Close() }, nil
}

func printHistory(ctx context.Context, tracker *trackerbun.Tracker, limit int) error {
	if tracker == nil {
		return report.NewError(report.KindValidation, "history.dsn is not configured", nil)
	}
	records, err := tracker.List(ctx, trackerbun.Filter{Limit: limit})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
