package inventario

import (
	"bytes"
	"sort"
	"time"

	"minimarket/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrdenarFIFO sorts lots in place: earliest expiry first, then earliest
// ingestion, then id so the order is total.
func OrdenarFIFO(lotes []model.Lote) {
	sort.SliceStable(lotes, func(i, j int) bool {
		return antesFIFO(lotes[i], lotes[j])
	})
}

func antesFIFO(a, b model.Lote) bool {
	if !a.FechaVencimiento.Equal(b.FechaVencimiento) {
		return a.FechaVencimiento.Before(b.FechaVencimiento)
	}
	if !a.FechaIngreso.Equal(b.FechaIngreso) {
		return a.FechaIngreso.Before(b.FechaIngreso)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// Asignacion is the quantity drawn from one lot.
type Asignacion struct {
	LoteID       uuid.UUID
	Cantidad     int
	PrecioCompra decimal.Decimal
	// RestanteAntes is the lot's remaining quantity when the plan was made.
	RestanteAntes int
}

// PlanFIFO is a complete, not yet applied allocation for one product.
type PlanFIFO struct {
	ProductoID   uuid.UUID
	Solicitado   int
	Asignaciones []Asignacion
}

// CostoTotal is the purchase cost of every unit in the plan.
func (p PlanFIFO) CostoTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Asignaciones {
		total = total.Add(a.PrecioCompra.Mul(decimal.NewFromInt(int64(a.Cantidad))))
	}
	return total
}

// CostoPromedio is the weighted unit cost of the lots consumed.
func (p PlanFIFO) CostoPromedio() decimal.Decimal {
	if p.Solicitado == 0 {
		return decimal.Zero
	}
	return p.CostoTotal().Div(decimal.NewFromInt(int64(p.Solicitado))).Round(4)
}

// PlanificarFIFO decides which lots supply cantidad units of a product at hoy.
// Only sellable lots take part. The plan is all-or-nothing: when sellable stock
// is short it returns StockInsuficienteError and no plan. lotes is not modified.
func PlanificarFIFO(productoID uuid.UUID, lotes []model.Lote, cantidad int, hoy time.Time) (PlanFIFO, error) {
	if cantidad <= 0 {
		return PlanFIFO{}, Validacion("cantidad", "debe ser mayor a cero")
	}

	candidatos := make([]model.Lote, 0, len(lotes))
	disponible := 0
	for _, l := range lotes {
		if l.ProductoID != productoID || !EsVendible(l, hoy) {
			continue
		}
		candidatos = append(candidatos, l)
		disponible += l.CantidadRestante
	}
	if disponible < cantidad {
		return PlanFIFO{}, &StockInsuficienteError{
			ProductoID: productoID,
			Disponible: disponible,
			Solicitado: cantidad,
		}
	}

	OrdenarFIFO(candidatos)

	plan := PlanFIFO{ProductoID: productoID, Solicitado: cantidad}
	pendiente := cantidad
	for _, l := range candidatos {
		if pendiente == 0 {
			break
		}
		tomar := min(l.CantidadRestante, pendiente)
		plan.Asignaciones = append(plan.Asignaciones, Asignacion{
			LoteID:        l.ID,
			Cantidad:      tomar,
			PrecioCompra:  l.PrecioCompra,
			RestanteAntes: l.CantidadRestante,
		})
		pendiente -= tomar
	}
	return plan, nil
}

// AplicarDelta checks that adding delta to a lot keeps it inside
// [0, CantidadInicial] and returns the new remaining quantity.
func AplicarDelta(l model.Lote, delta int) (int, error) {
	nuevo := l.CantidadRestante + delta
	if nuevo < 0 || nuevo > l.CantidadInicial {
		return l.CantidadRestante, &InvarianteError{
			LoteID:   l.ID,
			Restante: l.CantidadRestante,
			Delta:    delta,
			Inicial:  l.CantidadInicial,
		}
	}
	return nuevo, nil
}

// Revertir computes the remaining quantity after giving back cantidad units to
// a lot, capped at CantidadInicial. recortado reports whether the cap applied.
// A return must always succeed, so this never fails.
func Revertir(l model.Lote, cantidad int) (nuevo int, recortado bool) {
	if cantidad < 0 {
		cantidad = 0
	}
	nuevo = l.CantidadRestante + cantidad
	if nuevo > l.CantidadInicial {
		return l.CantidadInicial, true
	}
	return nuevo, false
}
