// Package metrics exposes the Prometheus counters the pub-sub subsystem
// is observed through, named after the counters the original Java
// implementation's Subscriber actor records.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every counter emitted by the pub-sub subsystem.
type Registry struct {
	TruePositives  *prometheus.CounterVec
	FalsePositives *prometheus.CounterVec
	PublishTotal   *prometheus.CounterVec
	WriteTotal     *prometheus.CounterVec
	WriteFailures  *prometheus.CounterVec
}

// NewRegistry builds a Registry and registers every counter with reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		TruePositives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_true_positive_total",
			Help: "Messages forwarded to a node that were actually delivered to a local subscriber.",
		}, []string{"node"}),
		FalsePositives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_false_positive_total",
			Help: "Messages forwarded to a node due to hash collision that matched no local subscriber.",
		}, []string{"node"}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_publish_total",
			Help: "Publish calls, labeled by whether any candidate node was found.",
		}, []string{"node", "result"}),
		WriteTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_ddata_write_total",
			Help: "Writes to a replicated ddata store, labeled by consistency level.",
		}, []string{"node", "consistency"}),
		WriteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_ddata_write_failure_total",
			Help: "Failed writes to a replicated ddata store, labeled by failure kind.",
		}, []string{"node", "kind"}),
	}

	reg.MustRegister(r.TruePositives, r.FalsePositives, r.PublishTotal, r.WriteTotal, r.WriteFailures)
	return r
}

// RecordTruePositive increments the true-positive counter for node.
func (r *Registry) RecordTruePositive(node string) {
	r.TruePositives.WithLabelValues(node).Inc()
}

// RecordFalsePositive increments the false-positive counter for node.
func (r *Registry) RecordFalsePositive(node string) {
	r.FalsePositives.WithLabelValues(node).Inc()
}

// RecordPublish increments the publish counter for node, labeled by
// whether the publish found at least one candidate destination.
func (r *Registry) RecordPublish(node string, delivered bool) {
	result := "no_candidates"
	if delivered {
		result = "forwarded"
	}
	r.PublishTotal.WithLabelValues(node, result).Inc()
}

// RecordWrite increments the write counter for node at the given
// consistency level.
func (r *Registry) RecordWrite(node, consistency string) {
	r.WriteTotal.WithLabelValues(node, consistency).Inc()
}

// RecordWriteFailure increments the write-failure counter for node,
// labeled by the kind of failure (e.g. "timeout", "unreachable").
func (r *Registry) RecordWriteFailure(node, kind string) {
	r.WriteFailures.WithLabelValues(node, kind).Inc()
}
