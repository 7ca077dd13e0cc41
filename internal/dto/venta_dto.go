package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /v1/ventas.
// Dates are business dates (fixed UTC-5); empty desde/hasta means today.
type VentaFilter struct {
	Desde string `form:"desde"` // YYYY-MM-DD
	Hasta string `form:"hasta"` // YYYY-MM-DD, inclusive
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemVentaRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
	// PrecioUnitario defaults to the product's precio_venta.
	PrecioUnitario *decimal.Decimal `json:"precio_unitario" validate:"omitempty,gt=0"`
	// CostoUnitario is only used when the consumed lots carry no cost.
	CostoUnitario *decimal.Decimal `json:"costo_unitario" validate:"omitempty,min=0"`
}

type RegistrarVentaRequest struct {
	Items         []ItemVentaRequest `json:"items"          validate:"required,min=1,dive"`
	MetodoPago    string             `json:"metodo_pago"    validate:"required,oneof=efectivo debito credito transferencia yape plin"`
	Descuento     decimal.Decimal    `json:"descuento"      validate:"min=0"`
	MontoRecibido *decimal.Decimal   `json:"monto_recibido" validate:"omitempty,min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type AsignacionLoteResponse struct {
	LoteID       string          `json:"lote_id"`
	Cantidad     int             `json:"cantidad"`
	PrecioCompra decimal.Decimal `json:"precio_compra"`
}

type ItemVentaResponse struct {
	ProductoID     string                   `json:"producto_id"`
	Producto       string                   `json:"producto"`
	Cantidad       int                      `json:"cantidad"`
	PrecioUnitario decimal.Decimal          `json:"precio_unitario"`
	CostoUnitario  decimal.Decimal          `json:"costo_unitario"`
	Subtotal       decimal.Decimal          `json:"subtotal"`
	Lotes          []AsignacionLoteResponse `json:"lotes"`
}

type VentaResponse struct {
	ID            string              `json:"id"`
	NumeroTicket  int                 `json:"numero_ticket"`
	SesionCajaID  string              `json:"sesion_caja_id"`
	UsuarioID     string              `json:"usuario_id"`
	MetodoPago    string              `json:"metodo_pago"`
	Items         []ItemVentaResponse `json:"items"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Descuento     decimal.Decimal     `json:"descuento"`
	Total         decimal.Decimal     `json:"total"`
	MontoRecibido *decimal.Decimal    `json:"monto_recibido"`
	Vuelto        decimal.Decimal     `json:"vuelto"`
	Estado        string              `json:"estado"`
	Devuelta      bool                `json:"devuelta"`
	CreatedAt     string              `json:"created_at"`
}
