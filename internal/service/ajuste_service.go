package service

import (
	"context"
	"fmt"

	"minimarket/internal/clock"
	"minimarket/internal/dto"
	"minimarket/internal/inventario"
	"minimarket/internal/model"
	"minimarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type AjusteService interface {
	Registrar(ctx context.Context, usuarioID uuid.UUID, req dto.AjusteInventarioRequest) (*dto.AjusteInventarioResponse, error)
	Listar(ctx context.Context, filter dto.AjusteFilter) (*dto.AjusteListResponse, error)
}

type ajusteService struct {
	repo         repository.AjusteRepository
	loteRepo     repository.LoteRepository
	productoRepo repository.ProductoRepository
	movRepo      repository.MovimientoStockRepository
	locker       inventario.Locker
	reloj        clock.Clock
}

func NewAjusteService(
	repo repository.AjusteRepository,
	loteRepo repository.LoteRepository,
	productoRepo repository.ProductoRepository,
	movRepo repository.MovimientoStockRepository,
	locker inventario.Locker,
	reloj clock.Clock,
) AjusteService {
	return &ajusteService{
		repo:         repo,
		loteRepo:     loteRepo,
		productoRepo: productoRepo,
		movRepo:      movRepo,
		locker:       locker,
		reloj:        reloj,
	}
}

// Registrar sets a product's physical stock to CantidadNueva by spreading the
// difference over its lots, and keeps the audit record.
func (s *ajusteService) Registrar(ctx context.Context, usuarioID uuid.UUID, req dto.AjusteInventarioRequest) (*dto.AjusteInventarioResponse, error) {
	productoID, err := parseID("producto_id", req.ProductoID)
	if err != nil {
		return nil, err
	}
	if req.CantidadNueva == nil {
		return nil, inventario.Validacion("cantidad_nueva", "es obligatoria")
	}
	producto, err := s.productoRepo.FindByID(ctx, productoID)
	if err != nil {
		return nil, noEncontrado(err, "producto")
	}

	unlock, err := s.locker.Lock(ctx, inventario.ClavesProducto([]uuid.UUID{productoID}))
	if err != nil {
		return nil, fmt.Errorf("bloqueo de productos: %w", err)
	}
	defer unlock()

	hoy := s.reloj.Hoy()
	ajuste := model.AjusteInventario{
		ID:            uuid.New(),
		ProductoID:    productoID,
		CantidadNueva: *req.CantidadNueva,
		Tipo:          req.Tipo,
		Motivo:        req.Motivo,
		Notas:         req.Notas,
		UsuarioID:     usuarioID,
		CreatedAt:     s.reloj.Now().UTC(),
	}
	var lotesResp []dto.DeltaLoteResponse

	txErr := runTx(ctx, s.loteRepo.DB(), func(tx *gorm.DB) error {
		lotes, err := s.loteRepo.ListByProductoForUpdateTx(tx, productoID)
		if err != nil {
			return err
		}
		anterior, deltas, err := inventario.DistribuirAjuste(lotes, *req.CantidadNueva, hoy)
		if err != nil {
			return err
		}
		ajuste.CantidadAnterior = anterior
		ajuste.Diferencia = ajuste.CantidadNueva - anterior

		porID := make(map[uuid.UUID]model.Lote, len(lotes))
		for _, l := range lotes {
			porID[l.ID] = l
		}
		ref := ajuste.ID
		for _, d := range deltas {
			nuevo, err := inventario.AplicarDelta(porID[d.LoteID], d.Delta)
			if err != nil {
				log.Error().Err(err).Str("producto_id", productoID.String()).Msg("violacion de invariante de lote")
				return err
			}
			if err := s.loteRepo.ActualizarRestanteTx(tx, d.LoteID, nuevo); err != nil {
				return err
			}
			loteID := d.LoteID
			if err := s.movRepo.CreateTx(tx, &model.MovimientoStock{
				ID:            uuid.New(),
				ProductoID:    productoID,
				LoteID:        &loteID,
				Tipo:          "ajuste_inventario",
				Cantidad:      d.Delta,
				StockAnterior: d.Anterior,
				StockNuevo:    nuevo,
				Motivo:        fmt.Sprintf("%s: %s", req.Tipo, req.Motivo),
				ReferenciaID:  &ref,
				UsuarioID:     &usuarioID,
			}); err != nil {
				return err
			}
			lotesResp = append(lotesResp, dto.DeltaLoteResponse{
				LoteID:   d.LoteID.String(),
				Anterior: d.Anterior,
				Nuevo:    nuevo,
				Delta:    d.Delta,
			})
		}
		return s.repo.CreateTx(tx, &ajuste)
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("ajuste_id", ajuste.ID.String()).
		Str("producto_id", productoID.String()).
		Str("tipo", ajuste.Tipo).
		Int("anterior", ajuste.CantidadAnterior).
		Int("nueva", ajuste.CantidadNueva).
		Msg("ajuste de inventario registrado")

	ajuste.Producto = producto
	resp := ajusteToResponse(&ajuste)
	resp.Lotes = lotesResp
	return &resp, nil
}

func (s *ajusteService) Listar(ctx context.Context, filter dto.AjusteFilter) (*dto.AjusteListResponse, error) {
	f := repository.AjusteFilter{Page: filter.Page, Limit: filter.Limit}
	if filter.ProductoID != "" {
		id, err := parseID("producto_id", filter.ProductoID)
		if err != nil {
			return nil, err
		}
		f.ProductoID = &id
	}
	ajustes, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	data := make([]dto.AjusteInventarioResponse, 0, len(ajustes))
	for i := range ajustes {
		data = append(data, ajusteToResponse(&ajustes[i]))
	}
	return &dto.AjusteListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func ajusteToResponse(a *model.AjusteInventario) dto.AjusteInventarioResponse {
	r := dto.AjusteInventarioResponse{
		ID:               a.ID.String(),
		ProductoID:       a.ProductoID.String(),
		CantidadAnterior: a.CantidadAnterior,
		CantidadNueva:    a.CantidadNueva,
		Diferencia:       a.Diferencia,
		Tipo:             a.Tipo,
		Motivo:           a.Motivo,
		Notas:            a.Notas,
		UsuarioID:        a.UsuarioID.String(),
		CreatedAt:        formatTime(a.CreatedAt),
	}
	if a.Producto != nil {
		r.Producto = a.Producto.Nombre
	}
	return r
}
