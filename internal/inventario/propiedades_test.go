package inventario

import (
	"testing"
	"time"

	"minimarket/internal/model"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// libro is a throwaway in-memory ledger driven only through the package's
// pure functions.
type libro struct {
	lotes  []model.Lote
	ventas [][]Asignacion
}

func (lb *libro) indice(id uuid.UUID) int {
	for i := range lb.lotes {
		if lb.lotes[i].ID == id {
			return i
		}
	}
	return -1
}

func (lb *libro) total(productoID uuid.UUID) int {
	t := 0
	for _, l := range lb.lotes {
		if l.ProductoID == productoID {
			t += l.CantidadRestante
		}
	}
	return t
}

func TestPropiedades_SecuenciasAleatorias(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42, 2025, 99991} {
		f := gofakeit.New(seed)
		hoy := fecha("2025-01-01")
		productos := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		lb := &libro{}

		for paso := 0; paso < 400; paso++ {
			p := productos[f.IntRange(0, len(productos)-1)]

			switch f.IntRange(0, 3) {
			case 0: // crear lote
				inicial := f.IntRange(1, 20)
				lb.lotes = append(lb.lotes, model.Lote{
					ID:               uuid.New(),
					ProductoID:       p,
					CantidadInicial:  inicial,
					CantidadRestante: inicial,
					FechaVencimiento: hoy.AddDate(0, 0, f.IntRange(-5, 30)),
					FechaIngreso:     hoy.Add(time.Duration(paso) * time.Minute),
					PrecioCompra:     decimal.NewFromInt(int64(f.IntRange(50, 500))).Div(decimal.NewFromInt(100)),
				})

			case 1: // vender
				cantidad := f.IntRange(1, 15)
				vendible := StockVendible(filtrar(lb.lotes, p), hoy)
				antes := lb.total(p)

				plan, err := PlanificarFIFO(p, lb.lotes, cantidad, hoy)
				if vendible < cantidad {
					var stockErr *StockInsuficienteError
					require.ErrorAs(t, err, &stockErr)
					assert.Equal(t, vendible, stockErr.Disponible)
					assert.Equal(t, antes, lb.total(p), "una venta fallida no toca el libro")
					continue
				}
				require.NoError(t, err)

				suma := 0
				var ultimoVence time.Time
				for _, a := range plan.Asignaciones {
					i := lb.indice(a.LoteID)
					require.GreaterOrEqual(t, i, 0)
					assert.False(t, lb.lotes[i].FechaVencimiento.Before(ultimoVence), "orden FIFO")
					ultimoVence = lb.lotes[i].FechaVencimiento
					nuevo, err := AplicarDelta(lb.lotes[i], -a.Cantidad)
					require.NoError(t, err)
					lb.lotes[i].CantidadRestante = nuevo
					suma += a.Cantidad
				}
				assert.Equal(t, cantidad, suma)
				assert.Equal(t, antes-cantidad, lb.total(p))
				lb.ventas = append(lb.ventas, plan.Asignaciones)

			case 2: // ajustar un lote
				if len(lb.lotes) == 0 {
					continue
				}
				i := f.IntRange(0, len(lb.lotes)-1)
				delta := f.IntRange(-6, 6)
				nuevo, err := AplicarDelta(lb.lotes[i], delta)
				if err != nil {
					var inv *InvarianteError
					require.ErrorAs(t, err, &inv)
					continue
				}
				lb.lotes[i].CantidadRestante = nuevo

			case 3: // devolver la ultima venta
				if len(lb.ventas) == 0 {
					continue
				}
				venta := lb.ventas[len(lb.ventas)-1]
				lb.ventas = lb.ventas[:len(lb.ventas)-1]
				for _, a := range venta {
					i := lb.indice(a.LoteID)
					nuevo, _ := Revertir(lb.lotes[i], a.Cantidad)
					lb.lotes[i].CantidadRestante = nuevo
				}
			}

			for _, l := range lb.lotes {
				require.GreaterOrEqual(t, l.CantidadRestante, 0, "seed %d paso %d", seed, paso)
				require.LessOrEqual(t, l.CantidadRestante, l.CantidadInicial, "seed %d paso %d", seed, paso)
			}
		}
	}
}

func filtrar(lotes []model.Lote, productoID uuid.UUID) []model.Lote {
	var out []model.Lote
	for _, l := range lotes {
		if l.ProductoID == productoID {
			out = append(out, l)
		}
	}
	return out
}
