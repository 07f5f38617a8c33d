// Package syncer orchestrates one full-refresh run: fetch the feed, infer a
// schema per table, rebuild the destination table, and load the rows. Tables
// are isolated from each other; one failing table never aborts the run.
package syncer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"sheetsync/internal/feed"
	"sheetsync/internal/infer"
	"sheetsync/internal/metrics"
	"sheetsync/internal/storage"
)

// Logger is the minimal logging interface used across the service.
type Logger interface {
	Printf(format string, v ...any)
}

// FeedSource produces the feed for one run.
type FeedSource interface {
	Fetch(ctx context.Context) (feed.Feed, error)
}

// Per-table outcome statuses.
const (
	StatusOK          = "ok"
	StatusSkipped     = "skipped"
	StatusSchemaError = "schema_error"
	StatusLoadError   = "load_error"
)

// TableResult is the outcome of syncing one table.
type TableResult struct {
	Table  string
	Status string
	Rows   int64
	Err    error
}

// Report summarizes one run.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Tables    []TableResult
}

// Failed reports whether any table ended in an error status.
func (r Report) Failed() bool {
	for _, t := range r.Tables {
		if t.Status == StatusSchemaError || t.Status == StatusLoadError {
			return true
		}
	}
	return false
}

// Syncer runs full-refresh syncs against one destination repository.
type Syncer struct {
	Source FeedSource
	Repo   storage.Repository
	Logger Logger

	// SettleDelay is the pause between rebuilding a table and loading rows,
	// giving any schema cache in front of the database time to catch up.
	SettleDelay time.Duration

	// sleep is swapped in tests to avoid real waiting.
	sleep func(time.Duration)
}

func (s *Syncer) pause(d time.Duration) {
	if d <= 0 {
		return
	}
	if s.sleep != nil {
		s.sleep(d)
		return
	}
	time.Sleep(d)
}

func (s *Syncer) logf(format string, v ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, v...)
	}
}

// Run performs one full sync. A fetch failure is fatal (there is nothing to
// load); every later failure is scoped to its table and recorded in the
// report.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	s.logf("run=%s stage=fetch", report.RunID)
	fetchStart := time.Now()
	f, err := s.Source.Fetch(ctx)
	fetchDur := time.Since(fetchStart)
	metrics.ObserveHistogram("sheetsync_fetch_duration_seconds", fetchDur.Seconds(), nil)
	if err != nil {
		return report, fmt.Errorf("fetch feed: %w", err)
	}
	s.logf("run=%s stage=fetch tables=%d duration=%s", report.RunID, len(f), fetchDur)

	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := s.syncTable(ctx, name, f[name])
		report.Tables = append(report.Tables, res)
		metrics.IncCounter("sheetsync_tables_total", 1, metrics.Labels{"status": res.Status})
		if res.Rows > 0 {
			metrics.IncCounter("sheetsync_rows_total", float64(res.Rows), nil)
		}
		if res.Err != nil {
			s.logf("run=%s table=%s status=%s err=%v", report.RunID, res.Table, res.Status, res.Err)
		} else {
			s.logf("run=%s table=%s status=%s rows=%d", report.RunID, res.Table, res.Status, res.Rows)
		}
	}

	report.Duration = time.Since(report.StartedAt)
	metrics.ObserveHistogram("sheetsync_run_duration_seconds", report.Duration.Seconds(), nil)
	s.logf("run=%s stage=done tables=%d duration=%s", report.RunID, len(report.Tables), report.Duration)
	return report, nil
}

// syncTable rebuilds and loads one destination table.
func (s *Syncer) syncTable(ctx context.Context, srcName string, rows []feed.Row) TableResult {
	name := storage.SanitizeIdent(srcName)
	res := TableResult{Table: name}

	if lostIdent(name) {
		res.Table = srcName
		res.Status = StatusSkipped
		return res
	}

	clean := sanitizeRows(rows)
	if len(clean) == 0 {
		res.Status = StatusSkipped
		return res
	}

	levels := infer.ResolveColumns(clean)
	if len(levels) == 0 {
		res.Status = StatusSkipped
		return res
	}

	columns := make([]storage.Column, 0, len(levels))
	for col, lvl := range levels {
		columns = append(columns, storage.Column{Name: col, Level: lvl})
	}
	sort.Slice(columns, func(i, j int) bool { return columns[i].Name < columns[j].Name })

	spec := storage.TableSpec{Name: name, Columns: columns}
	if err := s.Repo.ReplaceTable(ctx, spec); err != nil {
		res.Status = StatusSchemaError
		res.Err = err
		return res
	}

	// The destination may cache table definitions; give it a moment before
	// the first insert hits the fresh table.
	s.pause(s.SettleDelay)

	colNames := make([]string, len(columns))
	for i, c := range columns {
		colNames[i] = c.Name
	}

	values := make([][]any, 0, len(clean))
	for _, row := range clean {
		rec := make([]any, len(columns))
		for i, c := range columns {
			raw, ok := row[c.Name]
			if !ok {
				rec[i] = nil
				continue
			}
			rec[i] = infer.Normalize(raw, c.Level)
		}
		values = append(values, rec)
	}

	n, err := s.Repo.UpsertRows(ctx, name, colNames, values)
	if err != nil {
		res.Status = StatusLoadError
		res.Err = err
		return res
	}

	res.Status = StatusOK
	res.Rows = n
	return res
}

// lostIdent reports whether sanitization erased the whole name: nothing left,
// or nothing but filler characters.
func lostIdent(name string) bool {
	return strings.Trim(name, "_") == ""
}

// sanitizeRows folds each row's keys through the identifier sanitizer and
// drops keys that sanitize away entirely. Two source columns colliding after
// sanitization keep the later value; source sheets with such headers are
// already ambiguous.
func sanitizeRows(rows []feed.Row) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		clean := make(map[string]string, len(row))
		for k, v := range row {
			ck := storage.SanitizeIdent(k)
			if lostIdent(ck) {
				continue
			}
			clean[ck] = v
		}
		if len(clean) == 0 {
			continue
		}
		out = append(out, clean)
	}
	return out
}
