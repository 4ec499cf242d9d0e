package telemetry_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cognicore/matchtag/internal/telemetry"
)

func TestRecordArticle(t *testing.T) {
	p := telemetry.NewProvider()

	p.RecordArticle(telemetry.OutcomeProcessed, 10*time.Millisecond)
	p.RecordArticle(telemetry.OutcomeProcessed, 20*time.Millisecond)
	p.RecordArticle(telemetry.OutcomeFailed, 0)

	if got := testutil.ToFloat64(p.Metrics.Articles.WithLabelValues(telemetry.OutcomeProcessed)); got != 2 {
		t.Errorf("processed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.Metrics.Articles.WithLabelValues(telemetry.OutcomeFailed)); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
}

func TestRecordRunAndUpload(t *testing.T) {
	p := telemetry.NewProvider()

	p.RecordRun(nil, time.Second, 7)
	p.RecordRun(errors.New("disk full"), time.Second, -1)
	p.RecordUpload(errors.New("timeout"))

	if got := testutil.ToFloat64(p.Metrics.LedgerEntries); got != 7 {
		t.Errorf("ledger entries = %v, want 7", got)
	}
	if got := testutil.ToFloat64(p.Metrics.Runs.WithLabelValues("error")); got != 1 {
		t.Errorf("error runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.Metrics.Uploads.WithLabelValues("error")); got != 1 {
		t.Errorf("failed uploads = %v, want 1", got)
	}
}

func TestNilProviderIsNoop(t *testing.T) {
	var p *telemetry.Provider

	// Should not panic
	p.RecordArticle(telemetry.OutcomeSkipped, 0)
	p.RecordRun(nil, 0, 0)
	p.RecordUpload(nil)
	p.RecordRefresh()
	p.RecordHTTP("/health", 200, 0)
}

func TestHandlerServesMetrics(t *testing.T) {
	p := telemetry.NewProvider()
	p.RecordRefresh()

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "matchtag_corpus_refresh_total 1") {
		t.Errorf("metrics output missing refresh counter")
	}
}
