package model

import (
	"time"

	"github.com/google/uuid"
)

// MovimientoStock is the append-only stock ledger. When LoteID is set the
// anterior/nuevo values are the lot's remaining quantity; otherwise they are
// the product aggregate.
type MovimientoStock struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	LoteID        *uuid.UUID `gorm:"type:uuid;index"`
	Tipo          string     `gorm:"not null"` // "ingreso_lote" | "venta" | "devolucion" | "ajuste_inventario" | "ajuste_lote"
	Cantidad      int        `gorm:"not null"` // positive = entrada, negative = salida
	StockAnterior int        `gorm:"not null"`
	StockNuevo    int        `gorm:"not null"`
	Motivo        string
	ReferenciaID  *uuid.UUID `gorm:"type:uuid"` // venta_id, devolucion_id or ajuste_id
	UsuarioID     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }
