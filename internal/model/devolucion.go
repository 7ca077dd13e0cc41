package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Devolucion records the return of a whole Venta. At most one per sale.
type Devolucion struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID       uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null"`
	Motivo        string          `gorm:"not null"`
	Notas         *string
	MontoDevuelto decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt     time.Time
}

func (Devolucion) TableName() string { return "devoluciones" }

// AjusteInventario is the audit record of a manual stock correction.
// Tipo: "merma" | "rotura" | "robo" | "error_conteo" | "conteo_fisico" | "vencimiento"
type AjusteInventario struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID       uuid.UUID `gorm:"type:uuid;not null;index"`
	CantidadAnterior int       `gorm:"not null"`
	CantidadNueva    int       `gorm:"not null"`
	Diferencia       int       `gorm:"not null"`
	Tipo             string    `gorm:"type:varchar(20);not null"`
	Motivo           string    `gorm:"not null"`
	Notas            *string
	UsuarioID        uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt        time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (AjusteInventario) TableName() string { return "ajustes_inventario" }
