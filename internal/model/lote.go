package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lote is a batch of a Producto received at one time.
// Invariant: 0 <= CantidadRestante <= CantidadInicial. CantidadInicial never
// changes after creation. Lots are never deleted.
type Lote struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CodigoLote       string          `gorm:"uniqueIndex;not null"`
	ProductoID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	CantidadInicial  int             `gorm:"not null"`
	CantidadRestante int             `gorm:"not null"`
	FechaVencimiento time.Time       `gorm:"type:date;not null;index"` // civil date, 00:00 UTC
	PrecioCompra     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	FechaIngreso     time.Time       `gorm:"not null"`
	Proveedor        *string
	Ubicacion        *string
	Notas            *string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (Lote) TableName() string { return "lotes" }
