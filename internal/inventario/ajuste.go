package inventario

import (
	"time"

	"minimarket/internal/model"

	"github.com/google/uuid"
)

// DeltaLote is the change an inventory adjustment applies to one lot.
type DeltaLote struct {
	LoteID   uuid.UUID
	Anterior int
	Delta    int
}

// DistribuirAjuste attributes a product-level correction to specific lots.
//
// The product aggregate is the remaining quantity across all of its lots,
// expired included. A decrease drains expired lots first and then follows FIFO
// order. An increase refills lot headroom (inicial - restante) of sellable
// lots in FIFO order; when there is not enough headroom the caller must
// register a new lot instead.
func DistribuirAjuste(lotes []model.Lote, cantidadNueva int, hoy time.Time) (anterior int, deltas []DeltaLote, err error) {
	if cantidadNueva < 0 {
		return 0, nil, Validacion("cantidad_nueva", "no puede ser negativa")
	}
	anterior = StockFisico(lotes)
	diferencia := cantidadNueva - anterior
	if diferencia == 0 {
		return anterior, nil, nil
	}

	ordenados := make([]model.Lote, len(lotes))
	copy(ordenados, lotes)
	OrdenarFIFO(ordenados)

	if diferencia < 0 {
		pendiente := -diferencia
		var vencidos, vigentes []model.Lote
		for _, l := range ordenados {
			if l.CantidadRestante <= 0 {
				continue
			}
			if DiasParaVencer(l, hoy) <= 0 {
				vencidos = append(vencidos, l)
			} else {
				vigentes = append(vigentes, l)
			}
		}
		for _, l := range append(vencidos, vigentes...) {
			if pendiente == 0 {
				break
			}
			tomar := min(l.CantidadRestante, pendiente)
			deltas = append(deltas, DeltaLote{LoteID: l.ID, Anterior: l.CantidadRestante, Delta: -tomar})
			pendiente -= tomar
		}
		return anterior, deltas, nil
	}

	pendiente := diferencia
	for _, l := range ordenados {
		if pendiente == 0 {
			break
		}
		if DiasParaVencer(l, hoy) <= 0 {
			continue
		}
		hueco := l.CantidadInicial - l.CantidadRestante
		if hueco <= 0 {
			continue
		}
		sumar := min(hueco, pendiente)
		deltas = append(deltas, DeltaLote{LoteID: l.ID, Anterior: l.CantidadRestante, Delta: sumar})
		pendiente -= sumar
	}
	if pendiente > 0 {
		return anterior, nil, Validacion("cantidad_nueva",
			"el aumento excede la capacidad de los lotes vigentes; registre un nuevo lote")
	}
	return anterior, deltas, nil
}
