package inventario

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNoEncontrado is returned when a referenced entity does not exist.
	ErrNoEncontrado = errors.New("recurso no encontrado")
	// ErrVentaYaDevuelta rejects a second return of the same sale.
	ErrVentaYaDevuelta = errors.New("la venta ya fue devuelta")
	// ErrSinCajaAbierta rejects a sale when the seller has no open cash session.
	ErrSinCajaAbierta = errors.New("no hay sesion de caja abierta")
)

// ValidacionError reports malformed input on a single field.
type ValidacionError struct {
	Campo   string
	Mensaje string
}

func (e *ValidacionError) Error() string {
	if e.Campo == "" {
		return e.Mensaje
	}
	return fmt.Sprintf("%s: %s", e.Campo, e.Mensaje)
}

func Validacion(campo, mensaje string) error {
	return &ValidacionError{Campo: campo, Mensaje: mensaje}
}

// StockInsuficienteError means the sellable stock of a product (non-expired,
// non-exhausted lots) cannot cover the requested quantity.
type StockInsuficienteError struct {
	ProductoID uuid.UUID
	Producto   string
	Disponible int
	Solicitado int
}

func (e *StockInsuficienteError) Error() string {
	nombre := e.Producto
	if nombre == "" {
		nombre = e.ProductoID.String()
	}
	return fmt.Sprintf("stock insuficiente para %s: disponible %d, solicitado %d", nombre, e.Disponible, e.Solicitado)
}

// InvarianteError means an operation would leave a lot's remaining quantity
// outside [0, cantidad_inicial]. It signals a programming error or a lost race.
type InvarianteError struct {
	LoteID   uuid.UUID
	Restante int
	Delta    int
	Inicial  int
}

func (e *InvarianteError) Error() string {
	return fmt.Sprintf("lote %s: restante %d %+d fuera de [0, %d]", e.LoteID, e.Restante, e.Delta, e.Inicial)
}
