package service

import (
	"context"
	"fmt"
	"time"

	"minimarket/internal/clock"
	"minimarket/internal/dto"
	"minimarket/internal/inventario"
	"minimarket/internal/metrics"
	"minimarket/internal/model"
	"minimarket/internal/repository"

	"github.com/redis/go-redis/v9"
)

type ReporteService interface {
	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
	Margen(ctx context.Context, filter dto.RangoFechasFilter) (*dto.MargenResponse, error)
	Vencimientos(ctx context.Context) (*dto.VencimientosResponse, error)
}

type reporteService struct {
	ventaRepo    repository.VentaRepository
	loteRepo     repository.LoteRepository
	productoRepo repository.ProductoRepository
	estimador    *inventario.EstimadorMargen
	clasificador inventario.Clasificador
	reloj        clock.Clock
	zona         *time.Location
	metricas     *metrics.Metricas
	cache        cacheJSON
}

// NewReporteService wires the reports. rdb may be nil; cacheTTL <= 0 disables
// caching.
func NewReporteService(
	ventaRepo repository.VentaRepository,
	loteRepo repository.LoteRepository,
	productoRepo repository.ProductoRepository,
	estimador *inventario.EstimadorMargen,
	clasificador inventario.Clasificador,
	reloj clock.Clock,
	zona *time.Location,
	metricas *metrics.Metricas,
	rdb *redis.Client,
	cacheTTL time.Duration,
) ReporteService {
	return &reporteService{
		ventaRepo:    ventaRepo,
		loteRepo:     loteRepo,
		productoRepo: productoRepo,
		estimador:    estimador,
		clasificador: clasificador,
		reloj:        reloj,
		zona:         zona,
		metricas:     metricas,
		cache:        cacheJSON{rdb: rdb, ttl: cacheTTL},
	}
}

func (s *reporteService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	hoy := s.reloj.Hoy()
	key := "reportes:dashboard:" + clock.FormatFecha(hoy)
	var cached dto.DashboardResponse
	if s.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	desde := clock.InicioDelDia(hoy, s.zona)
	hasta := clock.InicioDelDia(hoy.AddDate(0, 0, 1), s.zona)

	resumenVentas, err := s.ventaRepo.ResumenEntre(ctx, desde, hasta)
	if err != nil {
		return nil, err
	}
	margen, err := s.margenEntre(ctx, desde, hasta)
	if err != nil {
		return nil, err
	}
	lotes, err := s.loteRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	productos, err := s.productoRepo.ListActivos(ctx)
	if err != nil {
		return nil, err
	}

	resp := dto.DashboardResponse{
		Fecha:              clock.FormatFecha(hoy),
		VentasHoy:          resumenVentas.Cantidad,
		IngresosHoy:        resumenVentas.Total,
		Margen:             margen,
		Lotes:              s.clasificador.Resumir(lotes, hoy),
		ProductosBajoStock: len(alertasStock(productos, lotes, s.reloj)),
	}
	s.cache.set(ctx, key, resp)
	return &resp, nil
}

func (s *reporteService) Margen(ctx context.Context, filter dto.RangoFechasFilter) (*dto.MargenResponse, error) {
	hoy := s.reloj.Hoy()
	desde, hasta, err := rangoDeFechas(filter.Desde, filter.Hasta, hoy, s.zona)
	if err != nil {
		return nil, err
	}
	// hasta is exclusive; report the inclusive business date back.
	desdeFecha := clock.Fecha(desde)
	hastaFecha := clock.Fecha(hasta).AddDate(0, 0, -1)

	key := fmt.Sprintf("reportes:margen:%s:%s", clock.FormatFecha(desdeFecha), clock.FormatFecha(hastaFecha))
	var cached dto.MargenResponse
	if s.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	agg, err := s.margenEntre(ctx, desde, hasta)
	if err != nil {
		return nil, err
	}
	resp := dto.MargenResponse{
		Desde:          clock.FormatFecha(desdeFecha),
		Hasta:          clock.FormatFecha(hastaFecha),
		MargenAgregado: agg,
	}
	s.cache.set(ctx, key, resp)
	return &resp, nil
}

func (s *reporteService) margenEntre(ctx context.Context, desde, hasta time.Time) (inventario.MargenAgregado, error) {
	items, err := s.ventaRepo.ListItemsEntre(ctx, desde, hasta)
	if err != nil {
		return inventario.MargenAgregado{}, err
	}
	agg := s.estimador.Agregar(lineasDeVenta(items))
	if agg.LineasEstimadas > 0 {
		s.metricas.MargenEstimado(agg.LineasEstimadas)
	}
	return agg, nil
}

func lineasDeVenta(items []model.VentaItem) []inventario.LineaVenta {
	lineas := make([]inventario.LineaVenta, 0, len(items))
	for _, it := range items {
		categoria := ""
		if it.Producto != nil {
			categoria = it.Producto.Categoria
		}
		lineas = append(lineas, inventario.LineaVenta{
			ProductoID:     it.ProductoID,
			Categoria:      categoria,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			CostoUnitario:  it.CostoUnitario,
		})
	}
	return lineas
}

// Vencimientos is never cached: it reflects the lot table at request time.
func (s *reporteService) Vencimientos(ctx context.Context) (*dto.VencimientosResponse, error) {
	hoy := s.reloj.Hoy()
	lotes, err := s.loteRepo.ListConStock(ctx)
	if err != nil {
		return nil, err
	}
	resp := dto.VencimientosResponse{
		Fecha:         clock.FormatFecha(hoy),
		DiasPorVencer: s.clasificador.DiasPorVencer,
		Resumen:       s.clasificador.Resumir(lotes, hoy),
		Vencidos:      []dto.LoteResponse{},
		PorVencer:     []dto.LoteResponse{},
	}
	for _, l := range lotes {
		switch s.clasificador.Clasificar(l, hoy) {
		case inventario.EstadoVencido:
			resp.Vencidos = append(resp.Vencidos, loteToResponse(l, hoy, s.clasificador))
		case inventario.EstadoPorVencer:
			resp.PorVencer = append(resp.PorVencer, loteToResponse(l, hoy, s.clasificador))
		}
	}
	return &resp, nil
}
