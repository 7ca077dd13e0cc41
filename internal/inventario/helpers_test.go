package inventario

import (
	"time"

	"minimarket/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func fecha(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func nuevoLote(productoID uuid.UUID, vence string, inicial, restante int, precio string) model.Lote {
	return model.Lote{
		ID:               uuid.New(),
		CodigoLote:       "L-" + vence,
		ProductoID:       productoID,
		CantidadInicial:  inicial,
		CantidadRestante: restante,
		FechaVencimiento: fecha(vence),
		PrecioCompra:     decimal.RequireFromString(precio),
		FechaIngreso:     fecha("2024-11-01"),
	}
}
