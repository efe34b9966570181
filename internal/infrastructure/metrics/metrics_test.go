package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/infrastructure/metrics"
)

func TestMetrics_Ledger(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.MovementRecorded(entity.MovementSalida)
	m.MovementRecorded(entity.MovementSalida)
	m.MovementRejected(entity.MovementSalida, "insufficient_stock")
	m.MovementRetried(entity.MovementEntrada)
	m.CodeAllocated("SV")
	m.ConsistencyViolation()

	expected := `
# HELP ledger_movements_recorded_total Movimientos confirmados por tipo
# TYPE ledger_movements_recorded_total counter
ledger_movements_recorded_total{type="SALIDA"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ledger_movements_recorded_total"))
	assert.Equal(t, 5, testutil.CollectAndCount(reg,
		"ledger_movements_recorded_total", "ledger_movements_rejected_total", "ledger_movement_retries_total",
		"ledger_codes_allocated_total", "ledger_consistency_violations_total"))
}

func TestMetrics_HTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	done := m.RequestStarted()
	done(http.MethodGet, "/api/v1/movements/:id", http.StatusOK)

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v1/movements/:id",status="200"} 1`)
	assert.Contains(t, body, "http_requests_in_flight 0")
}

func TestMetrics_RegistrosIndependientes(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.New(prometheus.NewRegistry())
		metrics.New(prometheus.NewRegistry())
	})
}
