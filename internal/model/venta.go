package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Venta is an immutable sale record. A return flips Devuelta/Estado but the
// record and its lines are kept.
// Estado: "completada" | "devuelta"
type Venta struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NumeroTicket  int              `gorm:"uniqueIndex;not null"`
	SesionCajaID  uuid.UUID        `gorm:"type:uuid;not null;index"`
	UsuarioID     uuid.UUID        `gorm:"type:uuid;not null"`
	MetodoPago    string           `gorm:"type:varchar(20);not null"`
	Subtotal      decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	Descuento     decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	Total         decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	MontoRecibido *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Vuelto        decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	Estado        string           `gorm:"type:varchar(20);not null;default:'completada'"`
	Devuelta      bool             `gorm:"not null;default:false"`
	CreatedAt     time.Time        `gorm:"index"`

	Items []VentaItem `gorm:"foreignKey:VentaID"`
}

// VentaItem is one sale line. CostoUnitario is snapshotted at sale time and
// never recomputed, so historical margins stay stable.
type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CostoUnitario  decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Producto *Producto      `gorm:"foreignKey:ProductoID"`
	Lotes    []VentaItemLote `gorm:"foreignKey:VentaItemID"`
}

// VentaItemLote records how much of a line was drawn from each lot.
// Returns replay these rows in reverse.
type VentaItemLote struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaItemID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	LoteID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cantidad     int             `gorm:"not null"`
	PrecioCompra decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

func (VentaItemLote) TableName() string { return "venta_item_lotes" }
