package service

import (
	"context"
	"errors"
	"fmt"

	"minimarket/internal/clock"
	"minimarket/internal/dto"
	"minimarket/internal/inventario"
	"minimarket/internal/metrics"
	"minimarket/internal/model"
	"minimarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type DevolucionService interface {
	Registrar(ctx context.Context, usuarioID uuid.UUID, req dto.DevolucionRequest) (*dto.DevolucionResponse, error)
}

type devolucionService struct {
	repo      repository.DevolucionRepository
	ventaRepo repository.VentaRepository
	loteRepo  repository.LoteRepository
	cajaRepo  repository.CajaRepository
	movRepo   repository.MovimientoStockRepository
	locker    inventario.Locker
	reloj     clock.Clock
	metricas  *metrics.Metricas
}

func NewDevolucionService(
	repo repository.DevolucionRepository,
	ventaRepo repository.VentaRepository,
	loteRepo repository.LoteRepository,
	cajaRepo repository.CajaRepository,
	movRepo repository.MovimientoStockRepository,
	locker inventario.Locker,
	reloj clock.Clock,
	metricas *metrics.Metricas,
) DevolucionService {
	return &devolucionService{
		repo:      repo,
		ventaRepo: ventaRepo,
		loteRepo:  loteRepo,
		cajaRepo:  cajaRepo,
		movRepo:   movRepo,
		locker:    locker,
		reloj:     reloj,
		metricas:  metricas,
	}
}

// Registrar reverses every lot allocation of a sale. The venta row lock makes
// a second concurrent return observe Devuelta=true and fail.
func (s *devolucionService) Registrar(ctx context.Context, usuarioID uuid.UUID, req dto.DevolucionRequest) (*dto.DevolucionResponse, error) {
	ventaID, err := parseID("venta_id", req.VentaID)
	if err != nil {
		return nil, err
	}
	previa, err := s.ventaRepo.FindByID(ctx, ventaID)
	if err != nil {
		return nil, noEncontrado(err, "venta")
	}
	if previa.Devuelta {
		return nil, inventario.ErrVentaYaDevuelta
	}

	// Same product locks as a sale, so a return never interleaves with a
	// sale decrementing the same lots.
	productos := make([]uuid.UUID, 0, len(previa.Items))
	for _, item := range previa.Items {
		productos = append(productos, item.ProductoID)
	}
	unlock, err := s.locker.Lock(ctx, inventario.ClavesProducto(productos))
	if err != nil {
		return nil, fmt.Errorf("bloqueo de productos: %w", err)
	}
	defer unlock()

	var sesion *model.SesionCaja
	if ses, err := s.cajaRepo.FindSesionAbiertaPorUsuario(ctx, usuarioID); err == nil {
		sesion = ses
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	dev := model.Devolucion{
		ID:        uuid.New(),
		VentaID:   ventaID,
		UsuarioID: usuarioID,
		Motivo:    req.Motivo,
		Notas:     req.Notas,
		CreatedAt: s.reloj.Now().UTC(),
	}
	var reversiones []dto.ReversionLoteResponse
	var venta *model.Venta

	txErr := runTx(ctx, s.ventaRepo.DB(), func(tx *gorm.DB) error {
		v, err := s.ventaRepo.FindByIDForUpdateTx(tx, ventaID)
		if err != nil {
			return noEncontrado(err, "venta")
		}
		if v.Devuelta {
			return inventario.ErrVentaYaDevuelta
		}
		venta = v
		dev.MontoDevuelto = v.Total

		var loteIDs []uuid.UUID
		for _, item := range v.Items {
			for _, a := range item.Lotes {
				loteIDs = append(loteIDs, a.LoteID)
			}
		}
		lotes, err := s.loteRepo.FindByIDsForUpdateTx(tx, loteIDs)
		if err != nil {
			return err
		}
		porID := make(map[uuid.UUID]model.Lote, len(lotes))
		for _, l := range lotes {
			porID[l.ID] = l
		}

		ref := dev.ID
		for _, item := range v.Items {
			for _, a := range item.Lotes {
				lote, ok := porID[a.LoteID]
				if !ok {
					return fmt.Errorf("lote %s de la venta no existe: %w", a.LoteID, inventario.ErrNoEncontrado)
				}
				nuevo, recortado := inventario.Revertir(lote, a.Cantidad)
				if recortado {
					s.metricas.ReversionRecortada()
					log.Warn().
						Str("venta_id", v.ID.String()).
						Str("lote_id", lote.ID.String()).
						Int("cantidad", a.Cantidad).
						Int("restante", lote.CantidadRestante).
						Int("inicial", lote.CantidadInicial).
						Msg("reversion de lote recortada a cantidad inicial")
				}
				if err := s.loteRepo.ActualizarRestanteTx(tx, lote.ID, nuevo); err != nil {
					return err
				}
				loteID := lote.ID
				if err := s.movRepo.CreateTx(tx, &model.MovimientoStock{
					ID:            uuid.New(),
					ProductoID:    item.ProductoID,
					LoteID:        &loteID,
					Tipo:          "devolucion",
					Cantidad:      nuevo - lote.CantidadRestante,
					StockAnterior: lote.CantidadRestante,
					StockNuevo:    nuevo,
					Motivo:        fmt.Sprintf("Devolucion venta #%d: %s", v.NumeroTicket, req.Motivo),
					ReferenciaID:  &ref,
					UsuarioID:     &usuarioID,
				}); err != nil {
					return err
				}
				// A lot shared by two lines of the same sale accumulates.
				lote.CantidadRestante = nuevo
				porID[lote.ID] = lote
				reversiones = append(reversiones, dto.ReversionLoteResponse{
					LoteID:    lote.ID.String(),
					Cantidad:  a.Cantidad,
					Recortado: recortado,
				})
			}
		}

		if err := s.ventaRepo.MarcarDevueltaTx(tx, v.ID); err != nil {
			return err
		}
		if err := s.repo.CreateTx(tx, &dev); err != nil {
			return err
		}

		if sesion == nil {
			return nil
		}
		metodo := v.MetodoPago
		return s.cajaRepo.CreateMovimientoTx(tx, &model.MovimientoCaja{
			ID:           uuid.New(),
			SesionCajaID: sesion.ID,
			Tipo:         "devolucion",
			MetodoPago:   &metodo,
			Monto:        v.Total.Neg(),
			Descripcion:  fmt.Sprintf("Devolucion venta #%d", v.NumeroTicket),
			ReferenciaID: &ref,
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("devolucion_id", dev.ID.String()).
		Str("venta_id", venta.ID.String()).
		Int("lotes", len(reversiones)).
		Msg("venta devuelta")

	return &dto.DevolucionResponse{
		ID:            dev.ID.String(),
		VentaID:       venta.ID.String(),
		NumeroTicket:  venta.NumeroTicket,
		Motivo:        dev.Motivo,
		Notas:         dev.Notas,
		MontoDevuelto: dev.MontoDevuelto.Round(2),
		Lotes:         reversiones,
		CreatedAt:     formatTime(dev.CreatedAt),
	}, nil
}

