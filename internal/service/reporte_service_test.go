package service_test

import (
	"context"
	"testing"

	"minimarket/internal/clock"
	"minimarket/internal/dto"
	"minimarket/internal/inventario"
	"minimarket/internal/model"
	"minimarket/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reporteFixture struct {
	*ventaFixture
	reportes service.ReporteService
	agua     model.Producto
	muestra  model.Producto
}

func newReporteFixture(t *testing.T) *reporteFixture {
	t.Helper()
	agua := nuevoProducto("Agua", "bebidas", "1.50")
	muestra := nuevoProducto("Muestra", "bebidas", "1.00")
	sinLotes := nuevoProducto("Gaseosa", "bebidas", "2.50")
	vf := newVentaFixture(
		[]model.Producto{agua, muestra, sinLotes},
		[]model.Lote{
			nuevoLote(agua.ID, 24, 24, "2026-01-01", "0.60"),
			nuevoLote(muestra.ID, 10, 10, "2026-01-01", "0"),
			nuevoLote(agua.ID, 6, 6, "2025-03-01", "0.55"),
		},
	)
	vf.caja.abrir(vf.usuarioID, decimal.Zero)

	estimador := inventario.NewEstimadorMargen(inventario.RatiosPorDefecto(), decimal.RequireFromString("0.70"))
	reportes := service.NewReporteService(
		vf.ventas, vf.lotes, vf.productos, estimador, inventario.NewClasificador(7),
		clock.Fijo{T: hoyFijo}, clock.Zona(-5), nil, nil, 0,
	)
	return &reporteFixture{ventaFixture: vf, reportes: reportes, agua: agua, muestra: muestra}
}

func (f *reporteFixture) vender(t *testing.T, p model.Producto, cantidad int) *dto.VentaResponse {
	t.Helper()
	v, err := f.svc.Registrar(context.Background(), f.usuarioID, dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{item(p.ID, cantidad)}, MetodoPago: "yape",
	})
	require.NoError(t, err)
	return v
}

func TestMargen_ExactAndEstimatedLines(t *testing.T) {
	f := newReporteFixture(t)
	f.vender(t, f.agua, 2)
	f.vender(t, f.muestra, 1)

	m, err := f.reportes.Margen(context.Background(), dto.RangoFechasFilter{})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", m.Desde)
	assert.Equal(t, "2025-03-10", m.Hasta)
	assert.True(t, m.Ingresos.Equal(decimal.NewFromInt(4)), m.Ingresos.String())
	assert.True(t, m.Costos.Equal(decimal.RequireFromString("1.80")), m.Costos.String())
	assert.True(t, m.Margen.Equal(decimal.RequireFromString("2.20")), m.Margen.String())
	assert.Equal(t, 1, m.LineasExactas)
	assert.Equal(t, 1, m.LineasEstimadas)
	require.Len(t, m.PorCategoria, 1)
	assert.Equal(t, "bebidas", m.PorCategoria[0].Categoria)
}

func TestMargen_ExcludesReturnedSales(t *testing.T) {
	f := newReporteFixture(t)
	f.vender(t, f.agua, 2)
	devuelta := f.vender(t, f.agua, 5)
	devoluciones, _ := newDevolucionService(f.ventaFixture)
	_, err := devoluciones.Registrar(context.Background(), f.usuarioID, dto.DevolucionRequest{
		VentaID: devuelta.ID, Motivo: "error de cobro",
	})
	require.NoError(t, err)

	m, err := f.reportes.Margen(context.Background(), dto.RangoFechasFilter{Desde: "2025-03-01", Hasta: "2025-03-31"})
	require.NoError(t, err)
	assert.True(t, m.Ingresos.Equal(decimal.NewFromInt(3)), m.Ingresos.String())
	assert.Equal(t, 1, m.LineasExactas)
}

func TestMargen_EmptyRangeHasZeroPct(t *testing.T) {
	f := newReporteFixture(t)
	m, err := f.reportes.Margen(context.Background(), dto.RangoFechasFilter{Desde: "2024-01-01"})
	require.NoError(t, err)
	assert.True(t, m.MargenPct.IsZero())
	assert.Empty(t, m.PorCategoria)
}

func TestDashboard(t *testing.T) {
	f := newReporteFixture(t)
	f.vender(t, f.agua, 2)
	f.vender(t, f.muestra, 1)

	d, err := f.reportes.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", d.Fecha)
	assert.EqualValues(t, 2, d.VentasHoy)
	assert.True(t, d.IngresosHoy.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, 1, d.Margen.LineasEstimadas)
	assert.Equal(t, 1, d.Lotes.Vencidos)
	assert.Equal(t, 1, d.ProductosBajoStock)
}

func TestVencimientos(t *testing.T) {
	f := newReporteFixture(t)
	v, err := f.reportes.Vencimientos(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v.DiasPorVencer)
	require.Len(t, v.Vencidos, 1)
	assert.Empty(t, v.PorVencer)
	assert.True(t, v.Resumen.PerdidaEstimada.Equal(decimal.RequireFromString("3.30")))
	assert.Equal(t, "vencido", v.Vencidos[0].Estado)
}

