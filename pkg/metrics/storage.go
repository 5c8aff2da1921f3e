package metrics

import "github.com/prometheus/client_golang/prometheus"

// StorageMetrics counts best-effort object deletions per backend.
type StorageMetrics struct {
	deleted *prometheus.CounterVec
	failed  *prometheus.CounterVec
}

// NewStorageMetrics registers the storage cleanup counters.
func NewStorageMetrics(reg prometheus.Registerer) *StorageMetrics {
	if reg == nil {
		return &StorageMetrics{}
	}
	deleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_cleanup_deleted_total",
		Help: "Objects removed by cleanup.",
	}, []string{"backend"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_cleanup_failed_total",
		Help: "Object removals that failed during cleanup.",
	}, []string{"backend"})
	reg.MustRegister(deleted, failed)
	return &StorageMetrics{deleted: deleted, failed: failed}
}

// IncDeleted counts a successful removal.
func (s *StorageMetrics) IncDeleted(backend string) {
	if s == nil || s.deleted == nil {
		return
	}
	s.deleted.WithLabelValues(normalizeLabel(backend)).Inc()
}

// IncFailed counts a failed removal.
func (s *StorageMetrics) IncFailed(backend string) {
	if s == nil || s.failed == nil {
		return
	}
	s.failed.WithLabelValues(normalizeLabel(backend)).Inc()
}
