package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the search service collectors. A nil *Metrics records nothing.
type Metrics struct {
	Searches        *prometheus.CounterVec
	SearchDuration  prometheus.Histogram
	SearchResults   prometheus.Histogram
	Suggests        prometheus.Counter
	SuggestDuration prometheus.Histogram
	IndexedProducts prometheus.Gauge
	Reindexes       *prometheus.CounterVec
}

// NewMetrics registers the search service collectors on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Total number of executed searches by outcome",
		}, []string{"outcome"}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of search execution in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		SearchResults: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results_total_count",
			Help:      "Number of matching products per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		}),
		Suggests: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggest_queries_total",
			Help:      "Total number of autocomplete requests",
		}),
		SuggestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suggest_duration_seconds",
			Help:      "Duration of autocomplete lookups in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		IndexedProducts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_products",
			Help:      "Number of products currently in the search index",
		}),
		Reindexes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_runs_total",
			Help:      "Total number of full catalog reindex runs by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) searched(outcome string, d time.Duration, total int) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(outcome).Inc()
	if outcome == outcomeOK {
		m.SearchDuration.Observe(d.Seconds())
		m.SearchResults.Observe(float64(total))
	}
}

func (m *Metrics) suggested(d time.Duration) {
	if m != nil {
		m.Suggests.Inc()
		m.SuggestDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) indexSize(n int) {
	if m != nil {
		m.IndexedProducts.Set(float64(n))
	}
}

func (m *Metrics) reindexed(outcome string) {
	if m != nil {
		m.Reindexes.WithLabelValues(outcome).Inc()
	}
}
