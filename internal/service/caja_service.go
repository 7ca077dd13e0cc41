package service

import (
	"context"
	"errors"
	"strings"

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

// ErrCajaYaAbierta rejects a second open session for the same user.
var ErrCajaYaAbierta = errors.New("el usuario ya tiene una caja abierta")

type CajaService interface {
	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.ReporteCajaResponse, error)
	RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoManualRequest) error
	Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.ArqueoRequest) (*dto.ArqueoResponse, error)
	Activa(ctx context.Context, usuarioID uuid.UUID) (*dto.ReporteCajaResponse, error)
	ObtenerReporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error)
}

type cajaService struct {
	repo  repository.CajaRepository
	reloj clock.Clock
}

func NewCajaService(repo repository.CajaRepository, reloj clock.Clock) CajaService {
	return &cajaService{repo: repo, reloj: reloj}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.ReporteCajaResponse, error) {
	if _, err := s.sesionAbierta(ctx, usuarioID); err == nil {
		return nil, ErrCajaYaAbierta
	} else if !errors.Is(err, inventario.ErrSinCajaAbierta) {
		return nil, err
	}

	sesion := &model.SesionCaja{
		ID:           uuid.New(),
		PuntoDeVenta: req.PuntoDeVenta,
		UsuarioID:    usuarioID,
		MontoInicial: req.MontoInicial.Round(2),
		Estado:       "abierta",
		OpenedAt:     s.reloj.Now().UTC(),
	}
	if err := s.repo.CreateSesion(ctx, sesion); err != nil {
		// The partial unique index catches a concurrent open.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCajaYaAbierta
		}
		return nil, err
	}
	log.Info().
		Str("sesion_caja_id", sesion.ID.String()).
		Str("usuario_id", usuarioID.String()).
		Int("punto_de_venta", sesion.PuntoDeVenta).
		Msg("caja abierta")

	return s.buildReporte(ctx, sesion)
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────
// Ingreso / egreso manual. Movements are immutable.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoManualRequest) error {
	sesion, err := s.sesionAbierta(ctx, usuarioID)
	if err != nil {
		return err
	}
	if !req.Monto.IsPositive() {
		return inventario.Validacion("monto", "debe ser mayor a cero")
	}

	monto := req.Monto.Round(2)
	if req.Tipo == "egreso_manual" {
		monto = monto.Neg()
	}
	metodo := req.MetodoPago
	return s.repo.CreateMovimiento(ctx, &model.MovimientoCaja{
		ID:           uuid.New(),
		SesionCajaID: sesion.ID,
		Tipo:         req.Tipo,
		MetodoPago:   &metodo,
		Monto:        monto,
		Descripcion:  req.Descripcion,
	})
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Blind count: the expected amounts are computed only after the declaration
// arrives. A critical deviation cannot close without observaciones.

func (s *cajaService) Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.ArqueoRequest) (*dto.ArqueoResponse, error) {
	sesion, err := s.sesionAbierta(ctx, usuarioID)
	if err != nil {
		return nil, err
	}

	sums, err := s.repo.SumMovimientosByMetodo(ctx, sesion.ID)
	if err != nil {
		return nil, err
	}
	esperado := montosEsperados(sesion.MontoInicial, sums)
	declarado := dto.MontosPorMetodo{
		Efectivo:      req.Declaracion.Efectivo,
		Debito:        req.Declaracion.Debito,
		Credito:       req.Declaracion.Credito,
		Transferencia: req.Declaracion.Transferencia,
		Yape:          req.Declaracion.Yape,
		Plin:          req.Declaracion.Plin,
	}
	declarado.Total = sumarMontos(declarado)

	desvioMonto := declarado.Total.Sub(esperado.Total)
	desvioPct := decimal.Zero
	if !esperado.Total.IsZero() {
		desvioPct = desvioMonto.Div(esperado.Total).Mul(decimal.NewFromInt(100)).Round(2)
	}
	clasificacion := clasificarDesvio(desvioPct)

	if clasificacion == "critico" && (req.Observaciones == nil || strings.TrimSpace(*req.Observaciones) == "") {
		return nil, inventario.Validacion("observaciones", "desvio critico: se requieren observaciones")
	}

	montoEsperado := esperado.Total
	montoDeclarado := declarado.Total
	cierre := s.reloj.Now().UTC()
	sesion.MontoEsperado = &montoEsperado
	sesion.MontoDeclarado = &montoDeclarado
	sesion.Desvio = &desvioMonto
	sesion.DesvioPct = &desvioPct
	sesion.Estado = "cerrada"
	sesion.ClasificacionDesvio = &clasificacion
	sesion.Observaciones = req.Observaciones
	sesion.ClosedAt = &cierre

	if err := s.repo.UpdateSesion(ctx, sesion); err != nil {
		return nil, err
	}

	evt := log.Info()
	if clasificacion != "normal" {
		evt = log.Warn()
	}
	evt.Str("sesion_caja_id", sesion.ID.String()).
		Str("desvio", desvioMonto.String()).
		Str("clasificacion", clasificacion).
		Msg("caja cerrada")

	return &dto.ArqueoResponse{
		SesionCajaID:   sesion.ID.String(),
		MontoEsperado:  esperado,
		MontoDeclarado: declarado,
		Desvio: dto.DesvioResponse{
			Monto:         desvioMonto,
			Porcentaje:    desvioPct,
			Clasificacion: clasificacion,
		},
		Estado: "cerrada",
	}, nil
}

func (s *cajaService) Activa(ctx context.Context, usuarioID uuid.UUID) (*dto.ReporteCajaResponse, error) {
	sesion, err := s.sesionAbierta(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	return s.buildReporte(ctx, sesion)
}

func (s *cajaService) ObtenerReporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, noEncontrado(err, "sesion de caja")
	}
	return s.buildReporte(ctx, sesion)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *cajaService) sesionAbierta(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionAbiertaPorUsuario(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventario.ErrSinCajaAbierta
		}
		return nil, err
	}
	return sesion, nil
}

// clasificarDesvio returns "normal" | "advertencia" | "critico"
// normal: |desvio| <= 1%, advertencia: <= 5%, critico: > 5%
func clasificarDesvio(pct decimal.Decimal) string {
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(decimal.NewFromInt(1)):
		return "normal"
	case abs.LessThanOrEqual(decimal.NewFromInt(5)):
		return "advertencia"
	default:
		return "critico"
	}
}

func montosEsperados(inicial decimal.Decimal, sums map[string]decimal.Decimal) dto.MontosPorMetodo {
	m := dto.MontosPorMetodo{
		Efectivo:      inicial.Add(sums["efectivo"]),
		Debito:        sums["debito"],
		Credito:       sums["credito"],
		Transferencia: sums["transferencia"],
		Yape:          sums["yape"],
		Plin:          sums["plin"],
	}
	m.Total = sumarMontos(m)
	return m
}

func sumarMontos(m dto.MontosPorMetodo) decimal.Decimal {
	return m.Efectivo.Add(m.Debito).Add(m.Credito).Add(m.Transferencia).Add(m.Yape).Add(m.Plin)
}

func (s *cajaService) buildReporte(ctx context.Context, sesion *model.SesionCaja) (*dto.ReporteCajaResponse, error) {
	sums, err := s.repo.SumMovimientosByMetodo(ctx, sesion.ID)
	if err != nil {
		return nil, err
	}
	reporte := &dto.ReporteCajaResponse{
		SesionCajaID:   sesion.ID.String(),
		PuntoDeVenta:   sesion.PuntoDeVenta,
		UsuarioID:      sesion.UsuarioID.String(),
		MontoInicial:   sesion.MontoInicial,
		MontoEsperado:  montosEsperados(sesion.MontoInicial, sums),
		MontoDeclarado: sesion.MontoDeclarado,
		Estado:         sesion.Estado,
		Observaciones:  sesion.Observaciones,
		OpenedAt:       formatTime(sesion.OpenedAt),
	}
	if sesion.Desvio != nil && sesion.DesvioPct != nil && sesion.ClasificacionDesvio != nil {
		reporte.Desvio = &dto.DesvioResponse{
			Monto:         *sesion.Desvio,
			Porcentaje:    *sesion.DesvioPct,
			Clasificacion: *sesion.ClasificacionDesvio,
		}
	}
	if sesion.ClosedAt != nil {
		t := formatTime(*sesion.ClosedAt)
		reporte.ClosedAt = &t
	}
	return reporte, nil
}
