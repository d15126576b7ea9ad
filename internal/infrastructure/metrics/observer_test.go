package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/bodega-ledger/internal/domain"
)

func TestStockMetrics_ClasificaResultados(t *testing.T) {
	m := NewStockMetrics()

	m.OperationDone("allocate", time.Millisecond, nil)
	m.OperationDone("allocate", time.Millisecond, fmt.Errorf("x: %w", domain.ErrInsufficientStock))
	m.OperationDone("allocate", time.Millisecond, domain.ErrLockTimeout)
	m.OperationDone("allocate", time.Millisecond, domain.ErrNegativeQuantity)
	m.RowsRemoved("allocate", 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("allocate", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("allocate", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("allocate", ResultRetryable)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("allocate", ResultError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rowsRemoved.WithLabelValues("allocate")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
}
