package datadog

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"sheetsync/internal/metrics"
)

// fakeSubmitter records submitted payloads instead of doing HTTP.
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, nil
}

func (f *fakeSubmitter) series() []datadogV2.MetricSeries {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []datadogV2.MetricSeries
	for _, p := range f.payloads {
		out = append(out, p.Series...)
	}
	return out
}

func newTestBackend(t *testing.T) (*Backend, *fakeSubmitter) {
	t.Helper()

	fake := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		JobName:    "test",
		FlushEvery: time.Hour, // the test drives Flush() explicitly
		now:        func() time.Time { return time.Unix(1700000000, 0) },
		submitter:  fake,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b, fake
}

func TestFlushSubmitsBufferedCounters(t *testing.T) {
	t.Parallel()

	b, fake := newTestBackend(t)

	b.IncCounter("sheetsync_tables_total", 2, metrics.Labels{"status": "ok"})
	b.IncCounter("sheetsync_tables_total", 1, metrics.Labels{"status": "schema_error"})
	b.IncCounter("sheetsync_rows_total", 42, nil)
	b.ObserveHistogram("sheetsync_run_duration_seconds", 1.5, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	series := fake.series()
	var names []string
	for _, s := range series {
		names = append(names, s.Metric)
	}
	sort.Strings(names)

	for _, want := range []string{
		"sheetsync.tables.total",
		"sheetsync.rows.total",
		"sheetsync.run.duration_seconds.p50",
		"sheetsync.run.duration_seconds.max",
	} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("metric %q missing from flush; got %v", want, names)
		}
	}

	// Status tags must survive into the payload.
	foundStatus := false
	for _, s := range series {
		if s.Metric != "sheetsync.tables.total" {
			continue
		}
		for _, tag := range s.Tags {
			if tag == "status:schema_error" {
				foundStatus = true
			}
		}
	}
	if !foundStatus {
		t.Fatal("status:schema_error tag missing from tables.total series")
	}
}

func TestFlushResetsBuffers(t *testing.T) {
	t.Parallel()

	b, fake := newTestBackend(t)

	b.IncCounter("sheetsync_rows_total", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("first Flush: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}

	if got := len(fake.payloads); got != 1 {
		t.Fatalf("empty snapshot still submitted: %d payloads, want 1", got)
	}
}

func TestUnknownMetricsIgnored(t *testing.T) {
	t.Parallel()

	b, fake := newTestBackend(t)

	b.IncCounter("something_else_total", 5, nil)
	b.ObserveHistogram("something_else_seconds", 1, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(fake.payloads) != 0 {
		t.Fatalf("unknown metrics produced a payload: %+v", fake.payloads)
	}
}

func TestPercentileNearestRank(t *testing.T) {
	t.Parallel()

	s := []float64{1, 2, 3, 4, 5}
	if got := percentileNearestRank(s, 0.5); got != 3 {
		t.Fatalf("p50 = %v, want 3", got)
	}
	if got := percentileNearestRank(s, 1); got != 5 {
		t.Fatalf("p100 = %v, want 5", got)
	}
	if got := percentileNearestRank(nil, 0.5); got != 0 {
		t.Fatalf("empty = %v, want 0", got)
	}
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	got := ParseTagsCSV(" env:prod , service:sync ,, ")
	want := "env:prod,service:sync"
	if strings.Join(got, ",") != want {
		t.Fatalf("ParseTagsCSV = %v, want %v", got, want)
	}
	if ParseTagsCSV("") != nil {
		t.Fatal("ParseTagsCSV(\"\") should be nil")
	}
}
