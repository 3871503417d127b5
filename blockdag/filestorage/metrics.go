package filestorage

import (
	"github.com/dagchain-lab/dagchain/helper/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "blockdag"

// Metrics represents the DAG storage metrics
type Metrics struct {
	// Blocks inserted
	blocksInserted prometheus.Counter
	// Blocks inserted as invalid
	invalidBlocks prometheus.Counter
	// Latest-messages log squashes
	squashes prometheus.Counter
	// Checkpoint snapshot loads
	checkpointLoads prometheus.Counter
	// Live topological sort length
	topoLength prometheus.Gauge
	// Tracked validators
	latestMessagesCount prometheus.Gauge
}

func (m *Metrics) BlockInsertedInc() {
	metrics.CounterInc(m.blocksInserted)
}

func (m *Metrics) InvalidBlockInc() {
	metrics.CounterInc(m.invalidBlocks)
}

func (m *Metrics) SquashInc() {
	metrics.CounterInc(m.squashes)
}

func (m *Metrics) CheckpointLoadInc() {
	metrics.CounterInc(m.checkpointLoads)
}

func (m *Metrics) SetTopoLength(v float64) {
	metrics.SetGauge(m.topoLength, v)
}

func (m *Metrics) SetLatestMessagesCount(v float64) {
	metrics.SetGauge(m.latestMessagesCount, v)
}

// GetPrometheusMetrics return the DAG storage metrics instance
func GetPrometheusMetrics(namespace string, labelsWithValues ...string) *Metrics {
	if namespace == "" {
		namespace = metrics.DefaultNamespace
	}

	constLabels := metrics.ParseLabels(labelsWithValues...)

	return &Metrics{
		blocksInserted: metrics.NewCounter(namespace, subsystem,
			"blocks_inserted", "number of blocks inserted into the DAG", constLabels),
		invalidBlocks: metrics.NewCounter(namespace, subsystem,
			"invalid_blocks", "number of blocks inserted as invalid", constLabels),
		squashes: metrics.NewCounter(namespace, subsystem,
			"latest_messages_squashes", "number of latest-messages log squashes", constLabels),
		checkpointLoads: metrics.NewCounter(namespace, subsystem,
			"checkpoint_loads", "number of checkpoint snapshot loads", constLabels),
		topoLength: metrics.NewGauge(namespace, subsystem,
			"topo_length", "live topological sort length", constLabels),
		latestMessagesCount: metrics.NewGauge(namespace, subsystem,
			"latest_messages_count", "number of tracked validators", constLabels),
	}
}

// NilMetrics will return the non operational DAG storage metrics
func NilMetrics() *Metrics {
	return &Metrics{}
}
