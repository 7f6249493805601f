// Package prompush implements a Prometheus Pushgateway backend for the
// internal/metrics facade.
//
// Counters and histograms are registered lazily on first use, keyed by metric
// name plus label-key set; Flush pushes the whole registry to the gateway
// under one job grouping. Batch jobs call Flush (via metrics.Flush) before
// exit so the final run's series reach the gateway.
package prompush

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"dsmetl/internal/metrics"
)

// Backend implements metrics.Backend against a Pushgateway.
type Backend struct {
	job      string
	registry *prometheus.Registry

	// pushFn is swapped out by unit tests to avoid real HTTP.
	pushFn func() error

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewBackend builds a backend pushing to gatewayURL under the given job name.
func NewBackend(job, gatewayURL string) (*Backend, error) {
	if strings.TrimSpace(job) == "" {
		return nil, fmt.Errorf("prompush: job name is required")
	}
	if strings.TrimSpace(gatewayURL) == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}

	reg := prometheus.NewRegistry()
	pusher := push.New(gatewayURL, job).Gatherer(reg)

	return &Backend{
		job:        job,
		registry:   reg,
		pushFn:     pusher.Push,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	keys, values := splitLabels(labels)

	b.mu.Lock()
	vec, ok := b.counters[vecKey(name, keys)]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, keys)
		if err := b.registry.Register(vec); err != nil {
			b.mu.Unlock()
			return
		}
		b.counters[vecKey(name, keys)] = vec
	}
	b.mu.Unlock()

	vec.WithLabelValues(values...).Add(delta)
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	keys, values := splitLabels(labels)

	b.mu.Lock()
	vec, ok := b.histograms[vecKey(name, keys)]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Buckets: prometheus.DefBuckets,
		}, keys)
		if err := b.registry.Register(vec); err != nil {
			b.mu.Unlock()
			return
		}
		b.histograms[vecKey(name, keys)] = vec
	}
	b.mu.Unlock()

	vec.WithLabelValues(values...).Observe(value)
}

// Flush pushes the registry to the gateway.
func (b *Backend) Flush() error {
	return b.pushFn()
}

// vecKey identifies a metric vector by name and label-key set. Prometheus
// forbids re-registering the same name with a different key set; the first
// key set a name is used with wins, later mismatches are dropped.
func vecKey(name string, keys []string) string {
	return name + "|" + strings.Join(keys, ",")
}

func splitLabels(labels metrics.Labels) (keys, values []string) {
	if len(labels) == 0 {
		return nil, nil
	}
	keys = make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values = make([]string, len(keys))
	for i, k := range keys {
		values[i] = labels[k]
	}
	return keys, values
}

var _ metrics.Backend = (*Backend)(nil)
