package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics records the contention-sensitive operations of the core.
type WorkflowMetrics struct {
	conflicts      *prometheus.CounterVec
	invoicesIssued prometheus.Counter
	tablesAssigned prometheus.Counter
	cascadeRows    *prometheus.HistogramVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "entity_version_conflicts",
		Help: "Optimistic concurrency conflicts by operation.",
	}, []string{"operation"})
	invoicesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invoices_issued",
		Help: "Invoices successfully issued.",
	})
	tablesAssigned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tables_assigned",
		Help: "Successful table assignments.",
	})
	cascadeRows := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cascade_rows_deleted",
		Help:    "Rows soft-deleted per cascade by parent entity.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
	}, []string{"parent"})
	reg.MustRegister(conflicts, invoicesIssued, tablesAssigned, cascadeRows)
	return &WorkflowMetrics{
		conflicts:      conflicts,
		invoicesIssued: invoicesIssued,
		tablesAssigned: tablesAssigned,
		cascadeRows:    cascadeRows,
	}
}

// IncConflict counts a lost optimistic write for the named operation.
func (w *WorkflowMetrics) IncConflict(operation string) {
	if w == nil || w.conflicts == nil {
		return
	}
	w.conflicts.WithLabelValues(operation).Inc()
}

// IncInvoiceIssued counts a successful invoice issuance.
func (w *WorkflowMetrics) IncInvoiceIssued() {
	if w == nil || w.invoicesIssued == nil {
		return
	}
	w.invoicesIssued.Inc()
}

// IncTableAssigned counts a successful table assignment.
func (w *WorkflowMetrics) IncTableAssigned() {
	if w == nil || w.tablesAssigned == nil {
		return
	}
	w.tablesAssigned.Inc()
}

// ObserveCascade records the number of dependent rows tombstoned with a parent.
func (w *WorkflowMetrics) ObserveCascade(parent string, rows int) {
	if w == nil || w.cascadeRows == nil {
		return
	}
	w.cascadeRows.WithLabelValues(parent).Observe(float64(rows))
}
