package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"minimarket/internal/clock"
	"minimarket/internal/dto"
	"minimarket/internal/inventario"
	"minimarket/internal/metrics"
	"minimarket/internal/model"
	"minimarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type VentaService interface {
	Registrar(ctx context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	Listar(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
}

type ventaService struct {
	repo         repository.VentaRepository
	loteRepo     repository.LoteRepository
	productoRepo repository.ProductoRepository
	cajaRepo     repository.CajaRepository
	movRepo      repository.MovimientoStockRepository
	locker       inventario.Locker
	reloj        clock.Clock
	zona         *time.Location
	metricas     *metrics.Metricas
}

func NewVentaService(
	repo repository.VentaRepository,
	loteRepo repository.LoteRepository,
	productoRepo repository.ProductoRepository,
	cajaRepo repository.CajaRepository,
	movRepo repository.MovimientoStockRepository,
	locker inventario.Locker,
	reloj clock.Clock,
	zona *time.Location,
	metricas *metrics.Metricas,
) VentaService {
	return &ventaService{
		repo:         repo,
		loteRepo:     loteRepo,
		productoRepo: productoRepo,
		cajaRepo:     cajaRepo,
		movRepo:      movRepo,
		locker:       locker,
		reloj:        reloj,
		zona:         zona,
		metricas:     metricas,
	}
}

// lineaResuelta is one merged sale line, priced and ready to plan.
type lineaResuelta struct {
	producto      *model.Producto
	cantidad      int
	precio        decimal.Decimal
	costoCliente  *decimal.Decimal
	subtotal      decimal.Decimal
	plan          inventario.PlanFIFO
	costoUnitario decimal.Decimal
}

// ── Registrar ─────────────────────────────────────────────────────────────────
// A sale and its FIFO allocation commit together or not at all:
//   1. The seller must have an open sesion de caja
//   2. Lines for the same product are merged and priced
//   3. Per-product locks are taken in sorted order
//   4. BEGIN TX: lock lots FOR UPDATE, plan every line, then apply conditional
//      decrements, insert venta + items + allocations + movements
//   5. COMMIT

func (s *ventaService) Registrar(ctx context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	sesion, err := s.cajaRepo.FindSesionAbiertaPorUsuario(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventario.ErrSinCajaAbierta
		}
		return nil, err
	}

	lineas, orden, err := s.resolverLineas(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, id := range orden {
		subtotal = subtotal.Add(lineas[id].subtotal)
	}
	descuento := req.Descuento.Round(2)
	if descuento.IsNegative() {
		return nil, inventario.Validacion("descuento", "no puede ser negativo")
	}
	if descuento.GreaterThan(subtotal) {
		return nil, inventario.Validacion("descuento", "no puede superar el subtotal")
	}
	total := subtotal.Sub(descuento)

	vuelto := decimal.Zero
	if req.MontoRecibido != nil {
		if req.MetodoPago == "efectivo" && req.MontoRecibido.LessThan(total) {
			return nil, inventario.Validacion("monto_recibido", "es menor al total de la venta")
		}
		if req.MetodoPago == "efectivo" {
			vuelto = req.MontoRecibido.Sub(total)
		}
	}

	unlock, err := s.locker.Lock(ctx, inventario.ClavesProducto(orden))
	if err != nil {
		return nil, fmt.Errorf("bloqueo de productos: %w", err)
	}
	defer unlock()

	hoy := s.reloj.Hoy()
	venta := model.Venta{
		ID:            uuid.New(),
		SesionCajaID:  sesion.ID,
		UsuarioID:     usuarioID,
		MetodoPago:    req.MetodoPago,
		Subtotal:      subtotal,
		Descuento:     descuento,
		Total:         total,
		MontoRecibido: req.MontoRecibido,
		Vuelto:        vuelto,
		Estado:        "completada",
		CreatedAt:     s.reloj.Now().UTC(),
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Plan every line before touching any lot: a shortfall on the last
		// product must leave the first ones untouched.
		lotesPorID := make(map[uuid.UUID]model.Lote)
		for _, pid := range orden {
			l := lineas[pid]
			lotes, err := s.loteRepo.ListByProductoForUpdateTx(tx, pid)
			if err != nil {
				return err
			}
			plan, err := inventario.PlanificarFIFO(pid, lotes, l.cantidad, hoy)
			if err != nil {
				var sie *inventario.StockInsuficienteError
				if errors.As(err, &sie) {
					sie.Producto = l.producto.Nombre
					s.metricas.StockInsuficiente()
				}
				return err
			}
			for _, lote := range lotes {
				lotesPorID[lote.ID] = lote
			}
			l.plan = plan
			l.costoUnitario = plan.CostoPromedio()
			if l.costoUnitario.IsZero() && l.costoCliente != nil {
				l.costoUnitario = l.costoCliente.Round(4)
			}
		}

		for _, pid := range orden {
			for _, a := range lineas[pid].plan.Asignaciones {
				ok, err := s.loteRepo.DescontarTx(tx, a.LoteID, a.Cantidad)
				if err != nil {
					return err
				}
				if !ok {
					invErr := &inventario.InvarianteError{
						LoteID:   a.LoteID,
						Restante: a.RestanteAntes,
						Delta:    -a.Cantidad,
						Inicial:  lotesPorID[a.LoteID].CantidadInicial,
					}
					log.Error().Err(invErr).Msg("violacion de invariante de lote")
					return invErr
				}
			}
		}

		ticket, err := s.repo.NextTicketNumber(ctx, tx)
		if err != nil {
			return err
		}
		venta.NumeroTicket = ticket

		for _, pid := range orden {
			l := lineas[pid]
			item := model.VentaItem{
				ID:             uuid.New(),
				VentaID:        venta.ID,
				ProductoID:     pid,
				Cantidad:       l.cantidad,
				PrecioUnitario: l.precio,
				CostoUnitario:  l.costoUnitario,
				Subtotal:       l.subtotal,
			}
			for _, a := range l.plan.Asignaciones {
				item.Lotes = append(item.Lotes, model.VentaItemLote{
					ID:           uuid.New(),
					VentaItemID:  item.ID,
					LoteID:       a.LoteID,
					Cantidad:     a.Cantidad,
					PrecioCompra: a.PrecioCompra,
				})
			}
			venta.Items = append(venta.Items, item)
		}
		if err := s.repo.Create(ctx, tx, &venta); err != nil {
			return err
		}

		ventaRef := venta.ID
		for _, pid := range orden {
			for _, a := range lineas[pid].plan.Asignaciones {
				loteID := a.LoteID
				if err := s.movRepo.CreateTx(tx, &model.MovimientoStock{
					ID:            uuid.New(),
					ProductoID:    pid,
					LoteID:        &loteID,
					Tipo:          "venta",
					Cantidad:      -a.Cantidad,
					StockAnterior: a.RestanteAntes,
					StockNuevo:    a.RestanteAntes - a.Cantidad,
					Motivo:        fmt.Sprintf("Venta #%d", ticket),
					ReferenciaID:  &ventaRef,
					UsuarioID:     &usuarioID,
				}); err != nil {
					return err
				}
			}
		}

		metodo := req.MetodoPago
		return s.cajaRepo.CreateMovimientoTx(tx, &model.MovimientoCaja{
			ID:           uuid.New(),
			SesionCajaID: sesion.ID,
			Tipo:         "venta",
			MetodoPago:   &metodo,
			Monto:        total,
			Descripcion:  fmt.Sprintf("Venta #%d", ticket),
			ReferenciaID: &ventaRef,
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	s.metricas.VentaRegistrada()
	log.Info().
		Str("venta_id", venta.ID.String()).
		Int("numero_ticket", venta.NumeroTicket).
		Str("total", venta.Total.String()).
		Int("lineas", len(venta.Items)).
		Msg("venta registrada")

	for i := range venta.Items {
		venta.Items[i].Producto = lineas[venta.Items[i].ProductoID].producto
	}
	return ventaToResponse(&venta), nil
}

// resolverLineas merges lines by product, loads each product once and prices
// every line. orden keeps the first-seen product order.
func (s *ventaService) resolverLineas(ctx context.Context, items []dto.ItemVentaRequest) (map[uuid.UUID]*lineaResuelta, []uuid.UUID, error) {
	if len(items) == 0 {
		return nil, nil, inventario.Validacion("items", "la venta no tiene lineas")
	}

	type pedido struct {
		cantidad int
		precio   *decimal.Decimal
		costo    *decimal.Decimal
	}
	pedidos := make(map[uuid.UUID]*pedido)
	var orden []uuid.UUID
	for i, it := range items {
		pid, err := parseID(fmt.Sprintf("items[%d].producto_id", i), it.ProductoID)
		if err != nil {
			return nil, nil, err
		}
		if it.Cantidad <= 0 {
			return nil, nil, inventario.Validacion(fmt.Sprintf("items[%d].cantidad", i), "debe ser mayor a cero")
		}
		p, ok := pedidos[pid]
		if !ok {
			p = &pedido{}
			pedidos[pid] = p
			orden = append(orden, pid)
		}
		p.cantidad += it.Cantidad
		if it.PrecioUnitario != nil {
			if p.precio != nil && !p.precio.Equal(*it.PrecioUnitario) {
				return nil, nil, inventario.Validacion(fmt.Sprintf("items[%d].precio_unitario", i),
					"precio distinto para el mismo producto")
			}
			p.precio = it.PrecioUnitario
		}
		if it.CostoUnitario != nil && p.costo == nil {
			p.costo = it.CostoUnitario
		}
	}

	productos, err := s.productoRepo.FindByIDs(ctx, orden)
	if err != nil {
		return nil, nil, err
	}
	porID := make(map[uuid.UUID]*model.Producto, len(productos))
	for i := range productos {
		porID[productos[i].ID] = &productos[i]
	}

	lineas := make(map[uuid.UUID]*lineaResuelta, len(orden))
	for _, pid := range orden {
		prod, ok := porID[pid]
		if !ok {
			return nil, nil, inventario.Validacion("items", fmt.Sprintf("producto %s no existe", pid))
		}
		if !prod.Activo {
			return nil, nil, inventario.Validacion("items", fmt.Sprintf("producto %s esta inactivo", prod.Nombre))
		}
		p := pedidos[pid]
		precio := prod.PrecioVenta
		if p.precio != nil {
			precio = p.precio.Round(2)
		}
		if !precio.IsPositive() {
			return nil, nil, inventario.Validacion("items", fmt.Sprintf("producto %s sin precio de venta", prod.Nombre))
		}
		lineas[pid] = &lineaResuelta{
			producto:     prod,
			cantidad:     p.cantidad,
			precio:       precio,
			costoCliente: p.costo,
			subtotal:     precio.Mul(decimal.NewFromInt(int64(p.cantidad))),
		}
	}
	return lineas, orden, nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *ventaService) Obtener(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, noEncontrado(err, "venta")
	}
	return ventaToResponse(v), nil
}

// Listar returns a paginated list of sales between two business dates.
// Default: today.
func (s *ventaService) Listar(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	desde, hasta, err := rangoDeFechas(filter.Desde, filter.Hasta, s.reloj.Hoy(), s.zona)
	if err != nil {
		return nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	ventas, total, err := s.repo.List(ctx, repository.VentaListFilter{
		Desde: desde,
		Hasta: hasta,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	data := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		data = append(data, *ventaToResponse(&ventas[i]))
	}
	return &dto.VentaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// rangoDeFechas turns two optional YYYY-MM-DD business dates into the
// half-open instant range [inicio(desde), inicio(hasta+1)) in loc.
func rangoDeFechas(desdeStr, hastaStr string, hoy time.Time, loc *time.Location) (time.Time, time.Time, error) {
	desde := hoy
	if desdeStr != "" {
		d, err := clock.ParseFecha(desdeStr)
		if err != nil {
			return time.Time{}, time.Time{}, inventario.Validacion("desde", err.Error())
		}
		desde = d
	}
	hasta := desde
	if hastaStr != "" {
		h, err := clock.ParseFecha(hastaStr)
		if err != nil {
			return time.Time{}, time.Time{}, inventario.Validacion("hasta", err.Error())
		}
		hasta = h
	}
	if hasta.Before(desde) {
		return time.Time{}, time.Time{}, inventario.Validacion("hasta", "debe ser igual o posterior a desde")
	}
	return clock.InicioDelDia(desde, loc), clock.InicioDelDia(hasta.AddDate(0, 0, 1), loc), nil
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	items := make([]dto.ItemVentaResponse, 0, len(v.Items))
	for _, item := range v.Items {
		nombre := ""
		if item.Producto != nil {
			nombre = item.Producto.Nombre
		}
		lotes := make([]dto.AsignacionLoteResponse, 0, len(item.Lotes))
		for _, a := range item.Lotes {
			lotes = append(lotes, dto.AsignacionLoteResponse{
				LoteID:       a.LoteID.String(),
				Cantidad:     a.Cantidad,
				PrecioCompra: a.PrecioCompra,
			})
		}
		items = append(items, dto.ItemVentaResponse{
			ProductoID:     item.ProductoID.String(),
			Producto:       nombre,
			Cantidad:       item.Cantidad,
			PrecioUnitario: item.PrecioUnitario,
			CostoUnitario:  item.CostoUnitario,
			Subtotal:       item.Subtotal,
			Lotes:          lotes,
		})
	}
	return &dto.VentaResponse{
		ID:            v.ID.String(),
		NumeroTicket:  v.NumeroTicket,
		SesionCajaID:  v.SesionCajaID.String(),
		UsuarioID:     v.UsuarioID.String(),
		MetodoPago:    v.MetodoPago,
		Items:         items,
		Subtotal:      v.Subtotal,
		Descuento:     v.Descuento,
		Total:         v.Total,
		MontoRecibido: v.MontoRecibido,
		Vuelto:        v.Vuelto,
		Estado:        v.Estado,
		Devuelta:      v.Devuelta,
		CreatedAt:     formatTime(v.CreatedAt),
	}
}
