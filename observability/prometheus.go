package observability

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusFactory is a MetricFactory backed by a Prometheus registerer.
// Dotted metric names are mapped to underscores.
type PrometheusFactory struct {
	reg       prometheus.Registerer
	namespace string

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// NewPrometheusFactory creates a factory registering on reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewPrometheusFactory(reg prometheus.Registerer, namespace string) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusFactory{
		reg:        reg,
		namespace:  namespace,
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: f.namespace,
		Name:      metricName(name) + "_total",
		Help:      "Count of " + name + ".",
	})
	c = register(f.reg, c)
	f.counters[name] = c
	return c
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: f.namespace,
		Name:      metricName(name),
		Help:      "Distribution of " + name + ".",
		Buckets:   prometheus.ExponentialBuckets(1, 10, 20),
	})
	h = register(f.reg, h)
	f.histograms[name] = h
	return h
}

// register returns the already registered collector when one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
