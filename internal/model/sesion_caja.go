package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SesionCaja is a cashier's shift on a register. Sales require an open one.
// Estado: "abierta" | "cerrada"
type SesionCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PuntoDeVenta int             `gorm:"not null;index"`
	UsuarioID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	MontoInicial decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// MontoEsperado is computed on close: SUM(movimientos) + MontoInicial
	MontoEsperado  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MontoDeclarado *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Desvio         *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DesvioPct      *decimal.Decimal `gorm:"type:decimal(5,2)"`
	Estado         string           `gorm:"type:varchar(20);not null;default:'abierta'"`
	// ClasificacionDesvio: "normal" | "advertencia" | "critico"
	ClasificacionDesvio *string `gorm:"type:varchar(20)"`
	Observaciones       *string
	OpenedAt            time.Time `gorm:"not null;autoCreateTime"`
	ClosedAt            *time.Time

	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

// MovimientoCaja is an immutable event in the cash register ledger.
// Tipo: "venta" | "ingreso_manual" | "egreso_manual" | "devolucion"
// Movements are never modified or deleted; returns create inverse entries.
type MovimientoCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Tipo         string          `gorm:"type:varchar(20);not null"`
	MetodoPago   *string         `gorm:"type:varchar(20)"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descripcion  string          `gorm:"not null"`
	// ReferenciaID links to the originating Venta or Devolucion
	ReferenciaID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }
