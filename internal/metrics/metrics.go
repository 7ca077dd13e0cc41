// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "minimarket"

// Metricas is a private registry plus the service collectors. A nil
// *Metricas is valid and records nothing, which keeps unit tests free of
// registry setup.
type Metricas struct {
	registry *prometheus.Registry

	ventasRegistradas     prometheus.Counter
	stockInsuficiente     prometheus.Counter
	margenEstimaciones    prometheus.Counter
	reversionesRecortadas prometheus.Counter
	lotesVencidos         prometheus.Gauge
	lotesPorVencer        prometheus.Gauge
	httpRequests          *prometheus.CounterVec
	httpDuration          *prometheus.HistogramVec
}

func New() *Metricas {
	m := &Metricas{
		registry: prometheus.NewRegistry(),
		ventasRegistradas: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ventas_registradas_total",
			Help: "Ventas confirmadas con asignacion FIFO exitosa.",
		}),
		stockInsuficiente: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "stock_insuficiente_total",
			Help: "Ventas rechazadas por stock vendible insuficiente.",
		}),
		margenEstimaciones: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "margen_estimaciones_total",
			Help: "Lineas cuyo costo se estimo por ratio de categoria.",
		}),
		reversionesRecortadas: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reversiones_recortadas_total",
			Help: "Devoluciones cuyo reingreso se limito a la cantidad inicial del lote.",
		}),
		lotesVencidos: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "lotes_vencidos",
			Help: "Lotes vencidos con stock remanente en la ultima clasificacion.",
		}),
		lotesPorVencer: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "lotes_por_vencer",
			Help: "Lotes dentro del horizonte de vencimiento en la ultima clasificacion.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Solicitudes HTTP por metodo, ruta y estado.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "Latencia de solicitudes HTTP.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	m.registry.MustRegister(
		m.ventasRegistradas,
		m.stockInsuficiente,
		m.margenEstimaciones,
		m.reversionesRecortadas,
		m.lotesVencidos,
		m.lotesPorVencer,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metricas) VentaRegistrada() {
	if m != nil {
		m.ventasRegistradas.Inc()
	}
}

func (m *Metricas) StockInsuficiente() {
	if m != nil {
		m.stockInsuficiente.Inc()
	}
}

func (m *Metricas) MargenEstimado(lineas int) {
	if m != nil && lineas > 0 {
		m.margenEstimaciones.Add(float64(lineas))
	}
}

func (m *Metricas) ReversionRecortada() {
	if m != nil {
		m.reversionesRecortadas.Inc()
	}
}

// Vencimientos publishes the latest classification counts.
func (m *Metricas) Vencimientos(vencidos, porVencer int) {
	if m != nil {
		m.lotesVencidos.Set(float64(vencidos))
		m.lotesPorVencer.Set(float64(porVencer))
	}
}

// Middleware records request count and latency per route template.
func (m *Metricas) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metricas) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
