package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"minimarket/internal/clock"
	"minimarket/internal/dto"
	"minimarket/internal/inventario"
	"minimarket/internal/model"
	"minimarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxDiasAlerta caps GET /v1/lotes/alertas?dias=N.
const maxDiasAlerta = 365

// Column limits of lotes: cantidad_inicial INTEGER, precio_compra DECIMAL(10,2).
var (
	maxCantidadLote = math.MaxInt32
	maxPrecioCompra = decimal.RequireFromString("99999999.99")
)

type LoteService interface {
	Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearLoteRequest) (*dto.LoteResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.LoteResponse, error)
	Listar(ctx context.Context, filter dto.LoteFilter) (*dto.LoteListResponse, error)
	ListarPorProducto(ctx context.Context, productoID uuid.UUID) ([]dto.LoteResponse, error)
	Alertas(ctx context.Context, dias int) (*dto.AlertasLotesResponse, error)
	Vencidos(ctx context.Context) (*dto.LotesVencidosResponse, error)
	Resumen(ctx context.Context) (inventario.Resumen, error)
	AjustarRestante(ctx context.Context, usuarioID, id uuid.UUID, req dto.AjusteLoteRequest) (*dto.LoteResponse, error)
}

type loteService struct {
	repo         repository.LoteRepository
	productoRepo repository.ProductoRepository
	movRepo      repository.MovimientoStockRepository
	clasificador inventario.Clasificador
	reloj        clock.Clock
}

func NewLoteService(
	repo repository.LoteRepository,
	productoRepo repository.ProductoRepository,
	movRepo repository.MovimientoStockRepository,
	clasificador inventario.Clasificador,
	reloj clock.Clock,
) LoteService {
	return &loteService{
		repo:         repo,
		productoRepo: productoRepo,
		movRepo:      movRepo,
		clasificador: clasificador,
		reloj:        reloj,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────

func (s *loteService) Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearLoteRequest) (*dto.LoteResponse, error) {
	productoID, err := parseID("producto_id", req.ProductoID)
	if err != nil {
		return nil, err
	}
	if req.CantidadInicial <= 0 {
		return nil, inventario.Validacion("cantidad_inicial", "debe ser mayor a cero")
	}
	if req.CantidadInicial > maxCantidadLote {
		return nil, inventario.Validacion("cantidad_inicial", fmt.Sprintf("no puede superar %d", maxCantidadLote))
	}
	if !req.PrecioCompra.IsPositive() {
		return nil, inventario.Validacion("precio_compra", "debe ser mayor a cero")
	}
	if req.PrecioCompra.Round(2).GreaterThan(maxPrecioCompra) {
		return nil, inventario.Validacion("precio_compra", "no puede superar "+maxPrecioCompra.StringFixed(2))
	}
	vence, err := clock.ParseFecha(req.FechaVencimiento)
	if err != nil {
		return nil, inventario.Validacion("fecha_vencimiento", "formato esperado YYYY-MM-DD")
	}
	hoy := s.reloj.Hoy()
	if clock.DiasEntre(hoy, vence) <= 0 {
		return nil, inventario.Validacion("fecha_vencimiento", "debe ser posterior a la fecha actual")
	}

	producto, err := s.productoRepo.FindByID(ctx, productoID)
	if err != nil {
		return nil, noEncontrado(err, "producto")
	}
	if !producto.Activo {
		return nil, inventario.Validacion("producto_id", "el producto esta inactivo")
	}

	codigo := ""
	if req.CodigoLote != nil {
		codigo = strings.TrimSpace(*req.CodigoLote)
	}
	if codigo == "" {
		codigo = generarCodigoLote(s.reloj)
	}

	lote := &model.Lote{
		ID:               uuid.New(),
		CodigoLote:       codigo,
		ProductoID:       productoID,
		CantidadInicial:  req.CantidadInicial,
		CantidadRestante: req.CantidadInicial,
		FechaVencimiento: vence,
		PrecioCompra:     req.PrecioCompra.Round(2),
		FechaIngreso:     s.reloj.Now().UTC(),
		Proveedor:        req.Proveedor,
		Ubicacion:        req.Ubicacion,
		Notas:            req.Notas,
	}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, lote); err != nil {
			return err
		}
		loteID := lote.ID
		return s.movRepo.CreateTx(tx, &model.MovimientoStock{
			ID:            uuid.New(),
			ProductoID:    productoID,
			LoteID:        &loteID,
			Tipo:          "ingreso_lote",
			Cantidad:      lote.CantidadInicial,
			StockAnterior: 0,
			StockNuevo:    lote.CantidadInicial,
			Motivo:        fmt.Sprintf("Ingreso lote %s", lote.CodigoLote),
			ReferenciaID:  &loteID,
			UsuarioID:     &usuarioID,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("lote_id", lote.ID.String()).
		Str("codigo_lote", lote.CodigoLote).
		Str("producto_id", productoID.String()).
		Int("cantidad", lote.CantidadInicial).
		Msg("lote registrado")

	lote.Producto = producto
	resp := s.toResponse(*lote, hoy)
	return &resp, nil
}

// generarCodigoLote builds L-YYYYMMDD-XXXXXX from the business date.
func generarCodigoLote(reloj clock.Clock) string {
	sufijo := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("L-%s-%s", reloj.Hoy().Format("20060102"), sufijo)
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *loteService) Obtener(ctx context.Context, id uuid.UUID) (*dto.LoteResponse, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, noEncontrado(err, "lote")
	}
	resp := s.toResponse(*l, s.reloj.Hoy())
	return &resp, nil
}

func (s *loteService) Listar(ctx context.Context, filter dto.LoteFilter) (*dto.LoteListResponse, error) {
	hoy := s.reloj.Hoy()
	rf := repository.LoteFilter{Page: filter.Page, Limit: filter.Limit}
	if filter.ProductoID != "" {
		pid, err := parseID("producto_id", filter.ProductoID)
		if err != nil {
			return nil, err
		}
		rf.ProductoID = &pid
	}

	horizonte := hoy.AddDate(0, 0, s.clasificador.DiasPorVencer)
	switch {
	case filter.Vencidos && filter.PorVencer:
		rf.ConStock = true
		rf.VenceHasta = &horizonte
	case filter.Vencidos:
		rf.ConStock = true
		rf.VenceHasta = &hoy
	case filter.PorVencer:
		rf.ConStock = true
		rf.VenceDespuesDe = &hoy
		rf.VenceHasta = &horizonte
	}

	lotes, total, err := s.repo.List(ctx, rf)
	if err != nil {
		return nil, err
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return &dto.LoteListResponse{
		Data:  s.toResponses(lotes, hoy),
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func (s *loteService) ListarPorProducto(ctx context.Context, productoID uuid.UUID) ([]dto.LoteResponse, error) {
	if _, err := s.productoRepo.FindByID(ctx, productoID); err != nil {
		return nil, noEncontrado(err, "producto")
	}
	lotes, err := s.repo.ListByProducto(ctx, productoID)
	if err != nil {
		return nil, err
	}
	inventario.OrdenarFIFO(lotes)
	return s.toResponses(lotes, s.reloj.Hoy()), nil
}

// Alertas returns lots with stock expiring within dias days (1..dias).
func (s *loteService) Alertas(ctx context.Context, dias int) (*dto.AlertasLotesResponse, error) {
	if dias <= 0 {
		dias = s.clasificador.DiasPorVencer
	}
	if dias > maxDiasAlerta {
		dias = maxDiasAlerta
	}
	hoy := s.reloj.Hoy()
	hasta := hoy.AddDate(0, 0, dias)
	lotes, err := s.repo.ListConStockEntre(ctx, &hoy, hasta)
	if err != nil {
		return nil, err
	}
	data := s.toResponses(lotes, hoy)
	return &dto.AlertasLotesResponse{Dias: dias, Data: data, Total: len(data)}, nil
}

func (s *loteService) Vencidos(ctx context.Context) (*dto.LotesVencidosResponse, error) {
	hoy := s.reloj.Hoy()
	lotes, err := s.repo.ListConStockEntre(ctx, nil, hoy)
	if err != nil {
		return nil, err
	}
	perdida := decimal.Zero
	for _, l := range lotes {
		if s.clasificador.Clasificar(l, hoy) == inventario.EstadoVencido {
			perdida = perdida.Add(inventario.PerdidaLote(l))
		}
	}
	data := s.toResponses(lotes, hoy)
	return &dto.LotesVencidosResponse{Data: data, Total: len(data), PerdidaEstimada: perdida}, nil
}

func (s *loteService) Resumen(ctx context.Context) (inventario.Resumen, error) {
	lotes, err := s.repo.ListAll(ctx)
	if err != nil {
		return inventario.Resumen{}, err
	}
	return s.clasificador.Resumir(lotes, s.reloj.Hoy()), nil
}

// ── AjustarRestante ───────────────────────────────────────────────────────────

func (s *loteService) AjustarRestante(ctx context.Context, usuarioID, id uuid.UUID, req dto.AjusteLoteRequest) (*dto.LoteResponse, error) {
	if req.Delta == 0 {
		return nil, inventario.Validacion("delta", "no puede ser cero")
	}
	var actualizado model.Lote
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		l, err := s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return noEncontrado(err, "lote")
		}
		nuevo, err := inventario.AplicarDelta(*l, req.Delta)
		if err != nil {
			log.Error().Err(err).Str("lote_id", id.String()).Msg("violacion de invariante de lote")
			return err
		}
		if err := s.repo.ActualizarRestanteTx(tx, id, nuevo); err != nil {
			return err
		}
		loteID := l.ID
		if err := s.movRepo.CreateTx(tx, &model.MovimientoStock{
			ID:            uuid.New(),
			ProductoID:    l.ProductoID,
			LoteID:        &loteID,
			Tipo:          "ajuste_lote",
			Cantidad:      req.Delta,
			StockAnterior: l.CantidadRestante,
			StockNuevo:    nuevo,
			Motivo:        req.Motivo,
			UsuarioID:     &usuarioID,
		}); err != nil {
			return err
		}
		l.CantidadRestante = nuevo
		actualizado = *l
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(actualizado, s.reloj.Hoy())
	return &resp, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *loteService) toResponses(lotes []model.Lote, hoy time.Time) []dto.LoteResponse {
	out := make([]dto.LoteResponse, 0, len(lotes))
	for _, l := range lotes {
		out = append(out, s.toResponse(l, hoy))
	}
	return out
}

func (s *loteService) toResponse(l model.Lote, hoy time.Time) dto.LoteResponse {
	return loteToResponse(l, hoy, s.clasificador)
}

func loteToResponse(l model.Lote, hoy time.Time, c inventario.Clasificador) dto.LoteResponse {
	resp := dto.LoteResponse{
		ID:               l.ID.String(),
		CodigoLote:       l.CodigoLote,
		ProductoID:       l.ProductoID.String(),
		CantidadInicial:  l.CantidadInicial,
		CantidadRestante: l.CantidadRestante,
		FechaVencimiento: clock.FormatFecha(l.FechaVencimiento),
		PrecioCompra:     l.PrecioCompra,
		FechaIngreso:     formatTime(l.FechaIngreso),
		Proveedor:        l.Proveedor,
		Ubicacion:        l.Ubicacion,
		Notas:            l.Notas,
		Estado:           string(c.Clasificar(l, hoy)),
		DiasParaVencer:   inventario.DiasParaVencer(l, hoy),
		ValorRestante:    inventario.PerdidaLote(l),
	}
	if l.Producto != nil {
		resp.Producto = l.Producto.Nombre
	}
	return resp
}
