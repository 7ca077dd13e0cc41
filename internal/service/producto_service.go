package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"minimarket/internal/clock"
	"minimarket/internal/dto"
	"minimarket/internal/inventario"
	"minimarket/internal/model"
	"minimarket/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const precioCacheTTL = 5 * time.Minute

// ProductoService defines the business logic contract for products.
type ProductoService interface {
	Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error)
	Desactivar(ctx context.Context, id uuid.UUID) error
	Reactivar(ctx context.Context, id uuid.UUID) error
	// ConsultarPrecio backs the public price check. Only active products.
	ConsultarPrecio(ctx context.Context, barcode string) (*dto.ConsultaPreciosResponse, error)
}

type productoService struct {
	repo     repository.ProductoRepository
	loteRepo repository.LoteRepository
	reloj    clock.Clock
	cache    cacheJSON
}

func NewProductoService(repo repository.ProductoRepository, loteRepo repository.LoteRepository, reloj clock.Clock, rdb *redis.Client) ProductoService {
	return &productoService{
		repo:     repo,
		loteRepo: loteRepo,
		reloj:    reloj,
		cache:    cacheJSON{rdb: rdb, ttl: precioCacheTTL},
	}
}

func (s *productoService) Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	unidad := req.UnidadMedida
	if unidad == "" {
		unidad = "unidad"
	}
	p := &model.Producto{
		ID:           uuid.New(),
		CodigoBarras: strings.TrimSpace(req.CodigoBarras),
		Nombre:       strings.TrimSpace(req.Nombre),
		Descripcion:  req.Descripcion,
		Categoria:    strings.TrimSpace(req.Categoria),
		PrecioCompra: req.PrecioCompra.Round(2),
		PrecioVenta:  req.PrecioVenta.Round(2),
		StockMinimo:  req.StockMinimo,
		UnidadMedida: unidad,
		Activo:       true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, inventario.Validacion("codigo_barras", "ya existe un producto con ese codigo")
		}
		return nil, err
	}
	log.Info().Str("producto_id", p.ID.String()).Str("nombre", p.Nombre).Msg("producto creado")
	resp := productoToResponse(p, nil, s.reloj.Hoy())
	return &resp, nil
}

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, noEncontrado(err, "producto")
	}
	lotes, err := s.loteRepo.ListByProducto(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := productoToResponse(p, lotes, s.reloj.Hoy())
	return &resp, nil
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	productos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(productos))
	for _, p := range productos {
		ids = append(ids, p.ID)
	}
	porProducto := make(map[uuid.UUID][]model.Lote)
	if len(ids) > 0 {
		lotes, err := s.loteRepo.ListByProductos(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, l := range lotes {
			porProducto[l.ProductoID] = append(porProducto[l.ProductoID], l)
		}
	}

	hoy := s.reloj.Hoy()
	data := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		data = append(data, productoToResponse(&productos[i], porProducto[productos[i].ID], hoy))
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return &dto.ProductoListResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

func (s *productoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, noEncontrado(err, "producto")
	}
	if req.Nombre != nil {
		p.Nombre = strings.TrimSpace(*req.Nombre)
	}
	if req.Descripcion != nil {
		p.Descripcion = req.Descripcion
	}
	if req.Categoria != nil {
		p.Categoria = strings.TrimSpace(*req.Categoria)
	}
	if req.PrecioCompra != nil {
		if req.PrecioCompra.IsNegative() {
			return nil, inventario.Validacion("precio_compra", "no puede ser negativo")
		}
		p.PrecioCompra = req.PrecioCompra.Round(2)
	}
	if req.PrecioVenta != nil {
		if !req.PrecioVenta.IsPositive() {
			return nil, inventario.Validacion("precio_venta", "debe ser mayor a cero")
		}
		p.PrecioVenta = req.PrecioVenta.Round(2)
	}
	if req.StockMinimo != nil {
		p.StockMinimo = *req.StockMinimo
	}
	if req.UnidadMedida != nil {
		p.UnidadMedida = *req.UnidadMedida
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.cache.del(ctx, precioCacheKey(p.CodigoBarras))

	lotes, err := s.loteRepo.ListByProducto(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := productoToResponse(p, lotes, s.reloj.Hoy())
	return &resp, nil
}

func (s *productoService) Desactivar(ctx context.Context, id uuid.UUID) error {
	return s.setActivo(ctx, id, false)
}

func (s *productoService) Reactivar(ctx context.Context, id uuid.UUID) error {
	return s.setActivo(ctx, id, true)
}

func (s *productoService) setActivo(ctx context.Context, id uuid.UUID, activo bool) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return noEncontrado(err, "producto")
	}
	if err := s.repo.SetActivo(ctx, id, activo); err != nil {
		return noEncontrado(err, "producto")
	}
	s.cache.del(ctx, precioCacheKey(p.CodigoBarras))
	log.Info().Str("producto_id", id.String()).Bool("activo", activo).Msg("estado de producto actualizado")
	return nil
}

// ConsultarPrecio may serve a stock figure up to precioCacheTTL old.
func (s *productoService) ConsultarPrecio(ctx context.Context, barcode string) (*dto.ConsultaPreciosResponse, error) {
	barcode = strings.TrimSpace(barcode)
	key := precioCacheKey(barcode)

	var cached dto.ConsultaPreciosResponse
	if s.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	p, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, noEncontrado(err, "producto")
	}
	lotes, err := s.loteRepo.ListByProducto(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	resp := dto.ConsultaPreciosResponse{
		Nombre:        p.Nombre,
		PrecioVenta:   p.PrecioVenta,
		Categoria:     p.Categoria,
		StockVendible: inventario.StockVendible(lotes, s.reloj.Hoy()),
	}
	s.cache.set(ctx, key, resp)
	return &resp, nil
}

func precioCacheKey(barcode string) string { return "precio:" + barcode }

func productoToResponse(p *model.Producto, lotes []model.Lote, hoy time.Time) dto.ProductoResponse {
	vendible := inventario.StockVendible(lotes, hoy)
	return dto.ProductoResponse{
		ID:            p.ID.String(),
		CodigoBarras:  p.CodigoBarras,
		Nombre:        p.Nombre,
		Descripcion:   p.Descripcion,
		Categoria:     p.Categoria,
		PrecioCompra:  p.PrecioCompra,
		PrecioVenta:   p.PrecioVenta,
		StockMinimo:   p.StockMinimo,
		UnidadMedida:  p.UnidadMedida,
		Activo:        p.Activo,
		StockVendible: vendible,
		StockFisico:   inventario.StockFisico(lotes),
		BajoStock:     vendible < p.StockMinimo,
	}
}
