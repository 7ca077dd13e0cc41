package inventario

import (
	"time"

	"minimarket/internal/clock"
	"minimarket/internal/model"

	"github.com/shopspring/decimal"
)

// Estado is the expiry classification of a lot at a reference date.
type Estado string

const (
	EstadoActivo    Estado = "activo"
	EstadoPorVencer Estado = "por_vencer"
	EstadoVencido   Estado = "vencido"
	EstadoAgotado   Estado = "agotado"
)

// DiasPorVencerDefault is the default expiring-soon horizon.
const DiasPorVencerDefault = 7

// Clasificador buckets lots relative to a reference date. It is a pure value:
// classifying the same lots with the same date always gives the same result.
type Clasificador struct {
	DiasPorVencer int
}

func NewClasificador(diasPorVencer int) Clasificador {
	if diasPorVencer <= 0 {
		diasPorVencer = DiasPorVencerDefault
	}
	return Clasificador{DiasPorVencer: diasPorVencer}
}

// DiasParaVencer is the number of calendar days from hoy to the lot's expiry.
// Zero means it expires today.
func DiasParaVencer(l model.Lote, hoy time.Time) int {
	return clock.DiasEntre(hoy, l.FechaVencimiento)
}

// Clasificar returns exactly one Estado. Exhaustion wins over expiry, and a lot
// expiring today is already vencido.
func (c Clasificador) Clasificar(l model.Lote, hoy time.Time) Estado {
	if l.CantidadRestante <= 0 {
		return EstadoAgotado
	}
	dias := DiasParaVencer(l, hoy)
	switch {
	case dias <= 0:
		return EstadoVencido
	case dias <= c.DiasPorVencer:
		return EstadoPorVencer
	default:
		return EstadoActivo
	}
}

// EsVendible reports whether a lot may supply a sale at hoy.
func EsVendible(l model.Lote, hoy time.Time) bool {
	return l.CantidadRestante > 0 && DiasParaVencer(l, hoy) > 0
}

// Resumen aggregates a lot collection at one point in time.
type Resumen struct {
	// TotalActivos counts activo and por_vencer lots (not expired, not exhausted).
	TotalActivos    int             `json:"total_activos"`
	Activos         int             `json:"activos"`
	PorVencer       int             `json:"por_vencer"`
	Vencidos        int             `json:"vencidos"`
	Agotados        int             `json:"agotados"`
	PerdidaEstimada decimal.Decimal `json:"perdida_estimada"`
}

func (c Clasificador) Resumir(lotes []model.Lote, hoy time.Time) Resumen {
	r := Resumen{PerdidaEstimada: decimal.Zero}
	for _, l := range lotes {
		switch c.Clasificar(l, hoy) {
		case EstadoAgotado:
			r.Agotados++
		case EstadoVencido:
			r.Vencidos++
			r.PerdidaEstimada = r.PerdidaEstimada.Add(PerdidaLote(l))
		case EstadoPorVencer:
			r.PorVencer++
		case EstadoActivo:
			r.Activos++
		}
	}
	r.TotalActivos = r.Activos + r.PorVencer
	return r
}

// PerdidaLote is the purchase value still sitting in a lot.
func PerdidaLote(l model.Lote) decimal.Decimal {
	return l.PrecioCompra.Mul(decimal.NewFromInt(int64(l.CantidadRestante)))
}

// StockVendible sums remaining quantity over sellable lots only. This is the
// number availability decisions must use.
func StockVendible(lotes []model.Lote, hoy time.Time) int {
	total := 0
	for _, l := range lotes {
		if EsVendible(l, hoy) {
			total += l.CantidadRestante
		}
	}
	return total
}

// StockFisico sums remaining quantity over every lot, expired included.
func StockFisico(lotes []model.Lote) int {
	total := 0
	for _, l := range lotes {
		if l.CantidadRestante > 0 {
			total += l.CantidadRestante
		}
	}
	return total
}
