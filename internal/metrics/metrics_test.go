package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricasIsNoop(t *testing.T) {
	var m *Metricas
	assert.NotPanics(t, func() {
		m.VentaRegistrada()
		m.StockInsuficiente()
		m.MargenEstimado(3)
		m.ReversionRecortada()
		m.Vencimientos(1, 2)
	})
}

func TestCounters(t *testing.T) {
	m := New()
	m.VentaRegistrada()
	m.VentaRegistrada()
	m.MargenEstimado(3)
	m.MargenEstimado(0)
	m.Vencimientos(4, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ventasRegistradas))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.margenEstimaciones))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.lotesVencidos))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.lotesPorVencer))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/v1/lotes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/lotes/abc", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `minimarket_http_requests_total{method="GET",path="/v1/lotes/:id",status="200"} 1`), body)
}
