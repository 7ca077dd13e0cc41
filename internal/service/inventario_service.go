package service

import (
	"context"
	"sort"

	"minimarket/internal/clock"
	"minimarket/internal/dto"
	"minimarket/internal/inventario"
	"minimarket/internal/model"
	"minimarket/internal/repository"

	"github.com/google/uuid"
)

// InventarioService covers product-level stock views: low-stock alerts and
// the stock movement ledger.
type InventarioService interface {
	ObtenerAlertas(ctx context.Context) ([]dto.AlertaStockResponse, error)
	ListarMovimientos(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error)
}

type inventarioService struct {
	productoRepo repository.ProductoRepository
	loteRepo     repository.LoteRepository
	movRepo      repository.MovimientoStockRepository
	reloj        clock.Clock
}

func NewInventarioService(
	productoRepo repository.ProductoRepository,
	loteRepo repository.LoteRepository,
	movRepo repository.MovimientoStockRepository,
	reloj clock.Clock,
) InventarioService {
	return &inventarioService{productoRepo: productoRepo, loteRepo: loteRepo, movRepo: movRepo, reloj: reloj}
}

// ObtenerAlertas returns active products whose sellable stock is below
// stock_minimo, lowest stock first.
func (s *inventarioService) ObtenerAlertas(ctx context.Context) ([]dto.AlertaStockResponse, error) {
	productos, err := s.productoRepo.ListActivos(ctx)
	if err != nil {
		return nil, err
	}
	lotes, err := s.loteRepo.ListConStock(ctx)
	if err != nil {
		return nil, err
	}
	return alertasStock(productos, lotes, s.reloj), nil
}

func alertasStock(productos []model.Producto, lotes []model.Lote, reloj clock.Clock) []dto.AlertaStockResponse {
	porProducto := make(map[uuid.UUID][]model.Lote)
	for _, l := range lotes {
		porProducto[l.ProductoID] = append(porProducto[l.ProductoID], l)
	}
	hoy := reloj.Hoy()
	alertas := []dto.AlertaStockResponse{}
	for _, p := range productos {
		vendible := inventario.StockVendible(porProducto[p.ID], hoy)
		if vendible >= p.StockMinimo {
			continue
		}
		alertas = append(alertas, dto.AlertaStockResponse{
			ProductoID:    p.ID.String(),
			Nombre:        p.Nombre,
			Categoria:     p.Categoria,
			StockVendible: vendible,
			StockFisico:   inventario.StockFisico(porProducto[p.ID]),
			StockMinimo:   p.StockMinimo,
		})
	}
	sort.SliceStable(alertas, func(i, j int) bool {
		return alertas[i].StockVendible < alertas[j].StockVendible
	})
	return alertas
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error) {
	f := repository.MovimientoStockFilter{Tipo: filter.Tipo, Page: filter.Page, Limit: filter.Limit}
	if filter.ProductoID != "" {
		id, err := parseID("producto_id", filter.ProductoID)
		if err != nil {
			return nil, err
		}
		f.ProductoID = &id
	}
	if filter.LoteID != "" {
		id, err := parseID("lote_id", filter.LoteID)
		if err != nil {
			return nil, err
		}
		f.LoteID = &id
	}
	movs, total, err := s.movRepo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoStockResponse, 0, len(movs))
	for _, m := range movs {
		r := dto.MovimientoStockResponse{
			ID:            m.ID.String(),
			ProductoID:    m.ProductoID.String(),
			LoteID:        uuidPtrString(m.LoteID),
			Tipo:          m.Tipo,
			Cantidad:      m.Cantidad,
			StockAnterior: m.StockAnterior,
			StockNuevo:    m.StockNuevo,
			Motivo:        m.Motivo,
			ReferenciaID:  uuidPtrString(m.ReferenciaID),
			CreatedAt:     formatTime(m.CreatedAt),
		}
		if m.Producto != nil {
			r.Producto = m.Producto.Nombre
		}
		data = append(data, r)
	}
	return &dto.MovimientoStockListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
