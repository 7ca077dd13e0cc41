package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is a catalog item. Stock is never stored here: it is derived from
// the product's lots. Products are deactivated, never deleted.
type Producto struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CodigoBarras string    `gorm:"uniqueIndex;not null"`
	Nombre       string    `gorm:"index;not null"`
	Descripcion  *string
	Categoria    string `gorm:"index;not null"`
	// PrecioCompra is a reference value; each Lote carries its own cost.
	PrecioCompra decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	StockMinimo  int             `gorm:"not null;default:5"`
	UnidadMedida string          `gorm:"not null;default:'unidad'"`
	Activo       bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Lotes []Lote `gorm:"foreignKey:ProductoID"`
}
