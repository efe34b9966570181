// Package metrics expone en Prometheus los contadores del ledger y de HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Muestras-api/internal/application/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
)

var _ inventory.Metrics = (*Metrics)(nil)

// Metrics colectores registrados en un Registerer propio (uno por proceso, uno por test).
type Metrics struct {
	movementsRecorded    *prometheus.CounterVec
	movementsRejected    *prometheus.CounterVec
	movementRetries      *prometheus.CounterVec
	codesAllocated       *prometheus.CounterVec
	consistencyFailures  prometheus.Counter
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
}

// New registra los colectores en reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		movementsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_movements_recorded_total",
			Help: "Movimientos confirmados por tipo",
		}, []string{"type"}),
		movementsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_movements_rejected_total",
			Help: "Movimientos rechazados por tipo y motivo",
		}, []string{"type", "reason"}),
		movementRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_movement_retries_total",
			Help: "Reintentos por conflicto de concurrencia",
		}, []string{"type"}),
		codesAllocated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_codes_allocated_total",
			Help: "Códigos de producto asignados por país",
		}, []string{"country"}),
		consistencyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_consistency_violations_total",
			Help: "Kardex cuyo saldo reconstruido no coincide con el producto",
		}),
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total de requests HTTP",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duración de los requests HTTP en segundos",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests HTTP en curso",
		}),
	}
}

func (m *Metrics) MovementRecorded(t entity.MovementType) {
	m.movementsRecorded.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) MovementRejected(t entity.MovementType, reason string) {
	m.movementsRejected.WithLabelValues(string(t), reason).Inc()
}

func (m *Metrics) MovementRetried(t entity.MovementType) {
	m.movementRetries.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) CodeAllocated(countryCode string) {
	m.codesAllocated.WithLabelValues(countryCode).Inc()
}

func (m *Metrics) ConsistencyViolation() {
	m.consistencyFailures.Inc()
}

// RequestStarted marca un request en curso; devuelve la función que lo cierra y registra.
// path debe ser el patrón de ruta, no la URL, para acotar la cardinalidad.
func (m *Metrics) RequestStarted() func(method, path string, status int) {
	start := time.Now()
	m.httpRequestsInFlight.Inc()
	return func(method, path string, status int) {
		m.httpRequestsInFlight.Dec()
		code := strconv.Itoa(status)
		m.httpRequestsTotal.WithLabelValues(method, path, code).Inc()
		m.httpRequestDuration.WithLabelValues(method, path, code).Observe(time.Since(start).Seconds())
	}
}

// Handler expone el registro en formato Prometheus.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
