package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/bodega-ledger/internal/application/inventory"
	"github.com/jhoicas/bodega-ledger/internal/domain"
)

var _ inventory.Observer = (*StockMetrics)(nil)

// Resultados posibles de una operación.
const (
	ResultOK        = "ok"
	ResultRejected  = "rejected"  // error de datos de entrada
	ResultRetryable = "retryable" // tiempo de espera de bloqueo
	ResultError     = "error"
)

// StockMetrics colectores Prometheus del motor de stock, en un registro propio.
type StockMetrics struct {
	registry    *prometheus.Registry
	operations  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	rowsRemoved *prometheus.CounterVec
}

// NewStockMetrics crea y registra los colectores.
func NewStockMetrics() *StockMetrics {
	m := &StockMetrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bodega",
				Name:      "stock_operations_total",
				Help:      "Operaciones de stock por tipo y resultado",
			},
			[]string{"op", "result"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bodega",
				Name:      "stock_operation_duration_seconds",
				Help:      "Duración de las operaciones de stock",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"op"},
		),
		rowsRemoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bodega",
				Name:      "ledger_rows_removed_total",
				Help:      "Filas del libro eliminadas (cero o duplicadas)",
			},
			[]string{"op"},
		),
	}
	m.registry.MustRegister(m.operations, m.latency, m.rowsRemoved)
	return m
}

// Registry registro para exponer en /metrics.
func (m *StockMetrics) Registry() *prometheus.Registry { return m.registry }

func (m *StockMetrics) OperationDone(op string, took time.Duration, err error) {
	m.operations.WithLabelValues(op, classify(err)).Inc()
	m.latency.WithLabelValues(op).Observe(took.Seconds())
}

func (m *StockMetrics) RowsRemoved(op string, n int) {
	m.rowsRemoved.WithLabelValues(op).Add(float64(n))
}

func classify(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, domain.ErrLockTimeout):
		return ResultRetryable
	case inventory.IsClientError(err):
		return ResultRejected
	default:
		return ResultError
	}
}
