package prompush

import (
	"errors"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"dsmetl/internal/metrics"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := NewBackend("dsm_ingest", "http://localhost:9091")
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	b.pushFn = func() error { return nil }
	return b
}

func gather(t *testing.T, b *Backend) []*dto.MetricFamily {
	t.Helper()
	fams, err := b.registry.Gather()
	if err != nil {
		t.Fatalf("Gather() err=%v", err)
	}
	return fams
}

func findFamily(fams []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range fams {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestNewBackend_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("", "http://localhost:9091"); err == nil {
		t.Fatalf("NewBackend with empty job: err=nil, want error")
	}
	if _, err := NewBackend("job", "   "); err == nil {
		t.Fatalf("NewBackend with blank URL: err=nil, want error")
	}
}

func TestIncCounter_AccumulatesPerLabelSet(t *testing.T) {
	t.Parallel()
	b := newTestBackend(t)

	b.IncCounter("dsmetl_ingest_rows_inserted_total", 3, metrics.Labels{"mode": "overwrite"})
	b.IncCounter("dsmetl_ingest_rows_inserted_total", 2, metrics.Labels{"mode": "overwrite"})
	b.IncCounter("dsmetl_ingest_rows_inserted_total", 7, metrics.Labels{"mode": "skip"})
	b.IncCounter("dsmetl_ingest_rows_inserted_total", 0, metrics.Labels{"mode": "skip"})  // ignored
	b.IncCounter("dsmetl_ingest_rows_inserted_total", -1, metrics.Labels{"mode": "skip"}) // ignored

	fam := findFamily(gather(t, b), "dsmetl_ingest_rows_inserted_total")
	if fam == nil {
		t.Fatalf("counter family not registered")
	}
	got := map[string]float64{}
	for _, m := range fam.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "mode" {
				got[l.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	if got["overwrite"] != 5 {
		t.Fatalf("overwrite counter=%v, want 5", got["overwrite"])
	}
	if got["skip"] != 7 {
		t.Fatalf("skip counter=%v, want 7", got["skip"])
	}
}

func TestObserveHistogram_CountsSamples(t *testing.T) {
	t.Parallel()
	b := newTestBackend(t)

	b.ObserveHistogram("dsmetl_ingest_duration_seconds", 0.2, nil)
	b.ObserveHistogram("dsmetl_ingest_duration_seconds", 1.8, nil)

	fam := findFamily(gather(t, b), "dsmetl_ingest_duration_seconds")
	if fam == nil {
		t.Fatalf("histogram family not registered")
	}
	h := fam.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Fatalf("sample count=%d, want 2", h.GetSampleCount())
	}
	if h.GetSampleSum() != 2.0 {
		t.Fatalf("sample sum=%v, want 2.0", h.GetSampleSum())
	}
}

func TestLabelKeyMismatchDropped(t *testing.T) {
	t.Parallel()
	b := newTestBackend(t)

	b.IncCounter("dsmetl_ingest_attempts_total", 1, metrics.Labels{"status": "success"})
	// Same name, different key set: registration conflicts and the sample is
	// dropped instead of panicking.
	b.IncCounter("dsmetl_ingest_attempts_total", 1, metrics.Labels{"mode": "skip"})

	fam := findFamily(gather(t, b), "dsmetl_ingest_attempts_total")
	if fam == nil {
		t.Fatalf("counter family not registered")
	}
	if n := len(fam.GetMetric()); n != 1 {
		t.Fatalf("metric count=%d, want 1", n)
	}
}

func TestFlush_ReportsPushError(t *testing.T) {
	t.Parallel()
	b := newTestBackend(t)

	wantErr := errors.New("gateway down")
	b.pushFn = func() error { return wantErr }

	if err := b.Flush(); !errors.Is(err, wantErr) {
		t.Fatalf("Flush() err=%v, want %v", err, wantErr)
	}
}
