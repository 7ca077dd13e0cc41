package service_test

import (
	"context"
	"math"
	"regexp"
	"testing"

	"minimarket/internal/clock"
	"minimarket/internal/dto"
	"minimarket/internal/inventario"
	"minimarket/internal/model"
	"minimarket/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoteService(productos []model.Producto, lotes []model.Lote) (service.LoteService, *stubLoteRepo, *stubMovRepo) {
	lr := newStubLoteRepo(lotes...)
	movs := &stubMovRepo{}
	svc := service.NewLoteService(lr, newStubProductoRepo(productos...), movs,
		inventario.NewClasificador(7), clock.Fijo{T: hoyFijo})
	return svc, lr, movs
}

func TestCrearLote_GeneratesCodeAndRecordsIngreso(t *testing.T) {
	p := nuevoProducto("Atun", "conservas", "6.00")
	svc, lr, movs := newLoteService([]model.Producto{p}, nil)

	resp, err := svc.Crear(context.Background(), uuid.New(), dto.CrearLoteRequest{
		ProductoID:       p.ID.String(),
		CantidadInicial:  24,
		FechaVencimiento: "2026-03-10",
		PrecioCompra:     decimal.RequireFromString("3.20"),
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^L-20250310-[0-9A-F]{6}$`), resp.CodigoLote)
	assert.Equal(t, 24, resp.CantidadRestante)
	assert.Equal(t, "2026-03-10", resp.FechaVencimiento)
	assert.Equal(t, string(inventario.EstadoActivo), resp.Estado)
	assert.Equal(t, "Atun", resp.Producto)

	ingresos := movs.porTipo("ingreso_lote")
	require.Len(t, ingresos, 1)
	assert.Equal(t, 24, ingresos[0].Cantidad)

	all, _ := lr.ListAll(context.Background())
	assert.Len(t, all, 1)
}

func TestCrearLote_Validations(t *testing.T) {
	p := nuevoProducto("Atun", "conservas", "6.00")
	inactivo := nuevoProducto("Viejo", "conservas", "6.00")
	inactivo.Activo = false
	base := dto.CrearLoteRequest{
		ProductoID:       p.ID.String(),
		CantidadInicial:  10,
		FechaVencimiento: "2026-01-01",
		PrecioCompra:     decimal.NewFromInt(2),
	}
	cases := map[string]func(r *dto.CrearLoteRequest){
		"cantidad cero":           func(r *dto.CrearLoteRequest) { r.CantidadInicial = 0 },
		"precio cero":             func(r *dto.CrearLoteRequest) { r.PrecioCompra = decimal.Zero },
		"fecha mal formada":       func(r *dto.CrearLoteRequest) { r.FechaVencimiento = "01/01/2026" },
		"vence hoy":               func(r *dto.CrearLoteRequest) { r.FechaVencimiento = "2025-03-10" },
		"producto inactivo":       func(r *dto.CrearLoteRequest) { r.ProductoID = inactivo.ID.String() },
		"producto no es uuid":     func(r *dto.CrearLoteRequest) { r.ProductoID = "abc" },
		"cantidad excede integer": func(r *dto.CrearLoteRequest) { r.CantidadInicial = math.MaxInt32 + 1 },
		"precio excede columna":   func(r *dto.CrearLoteRequest) { r.PrecioCompra = decimal.RequireFromString("100000000") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _, _ := newLoteService([]model.Producto{p, inactivo}, nil)
			req := base
			mutate(&req)
			_, err := svc.Crear(context.Background(), uuid.New(), req)
			var ve *inventario.ValidacionError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestListarPorProducto_FIFOOrder(t *testing.T) {
	p := nuevoProducto("Huevos", "huevos", "0.50")
	tarde := nuevoLote(p.ID, 30, 30, "2025-04-20", "0.30")
	pronto := nuevoLote(p.ID, 30, 30, "2025-03-15", "0.30")
	medio := nuevoLote(p.ID, 30, 30, "2025-04-01", "0.30")
	svc, _, _ := newLoteService([]model.Producto{p}, []model.Lote{tarde, pronto, medio})

	lotes, err := svc.ListarPorProducto(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, lotes, 3)
	assert.Equal(t, pronto.ID.String(), lotes[0].ID)
	assert.Equal(t, medio.ID.String(), lotes[1].ID)
	assert.Equal(t, tarde.ID.String(), lotes[2].ID)
	assert.Equal(t, string(inventario.EstadoPorVencer), lotes[0].Estado)
	assert.Equal(t, 5, lotes[0].DiasParaVencer)
}

func TestAlertasYVencidos(t *testing.T) {
	p := nuevoProducto("Pollo", "carnes", "9.00")
	vencido := nuevoLote(p.ID, 10, 4, "2025-03-08", "5.00")
	porVencer := nuevoLote(p.ID, 10, 10, "2025-03-12", "5.00")
	lejano := nuevoLote(p.ID, 10, 10, "2025-05-30", "5.00")
	svc, _, _ := newLoteService([]model.Producto{p}, []model.Lote{vencido, porVencer, lejano})

	alertas, err := svc.Alertas(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, alertas.Dias)
	require.Equal(t, 1, alertas.Total)
	assert.Equal(t, porVencer.ID.String(), alertas.Data[0].ID)

	amplio, err := svc.Alertas(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, 365, amplio.Dias)
	assert.Equal(t, 2, amplio.Total)

	vencidos, err := svc.Vencidos(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, vencidos.Total)
	assert.True(t, vencidos.PerdidaEstimada.Equal(decimal.NewFromInt(20)))

	resumen, err := svc.Resumen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resumen.Vencidos)
	assert.Equal(t, 1, resumen.PorVencer)
	assert.Equal(t, 1, resumen.Activos)
}

func TestVencidos_CountsEveryLotBeyondOnePage(t *testing.T) {
	p := nuevoProducto("Yogur", "lacteos", "3.50")
	lotes := make([]model.Lote, 0, 600)
	for i := 0; i < 600; i++ {
		lotes = append(lotes, nuevoLote(p.ID, 10, 4, "2025-03-01", "2.00"))
	}
	svc, _, _ := newLoteService([]model.Producto{p}, lotes)

	vencidos, err := svc.Vencidos(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 600, vencidos.Total)
	assert.Len(t, vencidos.Data, 600)
	assert.True(t, vencidos.PerdidaEstimada.Equal(decimal.NewFromInt(4800)), vencidos.PerdidaEstimada.String())

	resumen, err := svc.Resumen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 600, resumen.Vencidos)
}

func TestAlertas_CountsEveryLotBeyondOnePage(t *testing.T) {
	p := nuevoProducto("Pan", "panaderia", "0.30")
	lotes := make([]model.Lote, 0, 520)
	for i := 0; i < 520; i++ {
		lotes = append(lotes, nuevoLote(p.ID, 5, 5, "2025-03-12", "0.10"))
	}
	svc, _, _ := newLoteService([]model.Producto{p}, lotes)

	alertas, err := svc.Alertas(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 520, alertas.Total)
	assert.Len(t, alertas.Data, 520)
}

func TestAjustarRestante(t *testing.T) {
	p := nuevoProducto("Pollo", "carnes", "9.00")
	lote := nuevoLote(p.ID, 10, 4, "2025-05-30", "5.00")
	svc, lr, movs := newLoteService([]model.Producto{p}, []model.Lote{lote})

	resp, err := svc.AjustarRestante(context.Background(), uuid.New(), lote.ID, dto.AjusteLoteRequest{Delta: 3, Motivo: "recuento"})
	require.NoError(t, err)
	assert.Equal(t, 7, resp.CantidadRestante)
	assert.Equal(t, 7, lr.restante(lote.ID))
	assert.Len(t, movs.porTipo("ajuste_lote"), 1)

	_, err = svc.AjustarRestante(context.Background(), uuid.New(), lote.ID, dto.AjusteLoteRequest{Delta: 4, Motivo: "recuento"})
	var ie *inventario.InvarianteError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 7, lr.restante(lote.ID))

	_, err = svc.AjustarRestante(context.Background(), uuid.New(), lote.ID, dto.AjusteLoteRequest{Delta: -8, Motivo: "recuento"})
	assert.ErrorAs(t, err, &ie)

	_, err = svc.AjustarRestante(context.Background(), uuid.New(), uuid.New(), dto.AjusteLoteRequest{Delta: 1, Motivo: "recuento"})
	assert.ErrorIs(t, err, inventario.ErrNoEncontrado)
}
