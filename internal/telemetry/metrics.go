package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DocumentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_writes_total",
		Help: "Document store writes by collection and operation.",
	}, []string{"collection", "op"})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docstore_active_subscriptions",
		Help: "Live subscriptions currently registered.",
	})

	SnapshotsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_snapshots_emitted_total",
		Help: "Snapshots delivered to subscribers by collection.",
	}, []string{"collection"})

	BlobOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blob_operations_total",
		Help: "Blob storage operations by kind and outcome.",
	}, []string{"op", "outcome"})
)

// Outcome labels an operation result for BlobOperations.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
