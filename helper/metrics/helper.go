package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric the storage engine exports.
const DefaultNamespace = "dagchain"

// ParseLabels turns a flat key/value list into const labels.
func ParseLabels(labelsWithValues ...string) prometheus.Labels {
	if len(labelsWithValues)%2 != 0 {
		panic("invalid labels")
	}

	constLabels := make(prometheus.Labels, len(labelsWithValues)/2)

	for i := 1; i < len(labelsWithValues); i += 2 {
		constLabels[labelsWithValues[i-1]] = labelsWithValues[i]
	}

	return constLabels
}

// NewCounter builds and registers a counter under the given namespace
// and subsystem.
func NewCounter(namespace, subsystem, name, help string, constLabels prometheus.Labels) prometheus.Counter {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: constLabels,
	})

	prometheus.MustRegister(counter)

	return counter
}

// NewGauge builds and registers a gauge under the given namespace and
// subsystem.
func NewGauge(namespace, subsystem, name, help string, constLabels prometheus.Labels) prometheus.Gauge {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: constLabels,
	})

	prometheus.MustRegister(gauge)

	return gauge
}

// CounterInc increments the counter when metrics are enabled.
func CounterInc(counter prometheus.Counter) {
	if counter == nil {
		return
	}

	counter.Inc()
}

// SetGauge sets the gauge when metrics are enabled.
func SetGauge(gauge prometheus.Gauge, v float64) {
	if gauge == nil {
		return
	}

	gauge.Set(v)
}
