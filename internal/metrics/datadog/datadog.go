// Package datadog implements a Datadog submitter for the internal/metrics
// facade.
//
// Submission model:
//   - pipeline goroutines record points into in-memory buffers (lock-protected)
//   - a flush loop submits buffered series periodically (default: once per
//     minute), so long ingestion runs produce a real time series
//   - Close() stops the loop and submits one final time, covering short-lived
//     CLI invocations
//
// If the process dies with SIGKILL/OOM the final flush never runs; no
// backend can fix that.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"dsmetl/internal/metrics"
)

// Options controls backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to "dsmetl".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls the submit interval. If <= 0, defaults to 60s.
	FlushEvery time.Duration

	// Unexported test seams: production never sets them; unit tests use them
	// to avoid real clocks, tickers and HTTP.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal slice of the Datadog SDK we need. The SDK
// exposes a concrete *datadogV2.MetricsApi, which cannot be stubbed without
// real HTTP; depending on this interface keeps tests deterministic.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu         sync.Mutex
	counters   map[seriesKey]float64
	histograms map[seriesKey][]float64
}

// seriesKey identifies one buffered series: metric name plus canonical tag
// string ("a:1,b:2", sorted).
type seriesKey struct {
	name string
	tags string
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client. API
// credentials come from the standard DD_API_KEY/DD_APP_KEY environment;
// network errors surface from Flush, not from construction.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "dsmetl"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		counters:   make(map[seriesKey]float64),
		histograms: make(map[seriesKey][]float64),
	}
	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)
	t := b.newTicker(b.flushEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and submits one final time. Call once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	k := seriesKey{name: name, tags: canonicalTags(labels)}
	b.mu.Lock()
	b.counters[k] += delta
	b.mu.Unlock()
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	k := seriesKey{name: name, tags: canonicalTags(labels)}
	b.mu.Lock()
	b.histograms[k] = append(b.histograms[k], value)
	b.mu.Unlock()
}

type snapshot struct {
	counters   map[seriesKey]float64
	histograms map[seriesKey][]float64
}

func (s snapshot) isEmpty() bool {
	return len(s.counters) == 0 && len(s.histograms) == 0
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := snapshot{counters: b.counters, histograms: b.histograms}
	b.counters = make(map[seriesKey]float64)
	b.histograms = make(map[seriesKey][]float64)
	return s
}

// Flush submits buffered series. Buffers are snapshotted and reset under the
// lock; the network call happens outside it.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}
	series := b.buildSeries(snap, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries is pure (no locks, clocks or network) so tests can assert the
// naming/tagging contract directly. Counters become COUNT series; histograms
// become avg/max gauges plus a sample COUNT.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	point := func(value float64) []datadogV2.MetricPoint {
		return []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)}}
	}

	series := make([]datadogV2.MetricSeries, 0, len(s.counters)+3*len(s.histograms))

	for k, v := range s.counters {
		series = append(series, datadogV2.MetricSeries{
			Metric: k.name,
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: point(v),
			Tags:   b.mergeTags(k.tags),
		})
	}

	for k, samples := range s.histograms {
		if len(samples) == 0 {
			continue
		}
		sum, max := 0.0, samples[0]
		for _, v := range samples {
			sum += v
			if v > max {
				max = v
			}
		}
		tags := b.mergeTags(k.tags)
		series = append(series,
			datadogV2.MetricSeries{
				Metric: k.name + ".avg",
				Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
				Points: point(sum / float64(len(samples))),
				Tags:   tags,
			},
			datadogV2.MetricSeries{
				Metric: k.name + ".max",
				Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
				Points: point(max),
				Tags:   tags,
			},
			datadogV2.MetricSeries{
				Metric: k.name + ".count",
				Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
				Points: point(float64(len(samples))),
				Tags:   tags,
			},
		)
	}

	return series
}

func (b *Backend) mergeTags(canonical string) []string {
	out := make([]string, 0, len(b.baseTags)+4)
	out = append(out, b.baseTags...)
	if canonical != "" {
		out = append(out, strings.Split(canonical, ",")...)
	}
	return out
}

func canonicalTags(labels metrics.Labels) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		parts = append(parts, k+":"+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// ParseTagsCSV splits a comma-separated tag list from the environment,
// dropping empty entries.
func ParseTagsCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var _ metrics.Backend = (*Backend)(nil)
