package forest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports training and evaluation counters. A nil *Metrics records
// nothing.
type Metrics struct {
	TreesTrained prometheus.Counter
	BuildSeconds prometheus.Histogram
	TreeNodes    prometheus.Histogram
	Accuracy     prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TreesTrained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trees_trained_total",
			Help:      "Decision trees built.",
		}),
		BuildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tree_build_seconds",
			Help:      "Time to bootstrap and grow one tree.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		TreeNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tree_nodes",
			Help:      "Nodes per trained tree.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}),
		Accuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "accuracy_ratio",
			Help:      "Accuracy of the last evaluation.",
		}),
	}
}

// Register adds every collector to r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.TreesTrained, m.BuildSeconds, m.TreeNodes, m.Accuracy} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observeTree(t *Tree, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TreesTrained.Inc()
	m.BuildSeconds.Observe(elapsed.Seconds())
	m.TreeNodes.Observe(float64(len(t.Nodes)))
}

func (m *Metrics) observeAccuracy(acc float64) {
	if m == nil {
		return
	}
	m.Accuracy.Set(acc)
}
