package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearLoteRequest struct {
	ProductoID string  `json:"producto_id" validate:"required,uuid"`
	CodigoLote *string `json:"codigo_lote" validate:"omitempty,min=3,max=40"`
	// Quantity, price and expiry are checked by the service so that the caller
	// gets a field-level domain message.
	CantidadInicial  int             `json:"cantidad_inicial"`
	FechaVencimiento string          `json:"fecha_vencimiento" validate:"required"` // YYYY-MM-DD
	PrecioCompra     decimal.Decimal `json:"precio_compra"`
	Proveedor        *string         `json:"proveedor"  validate:"omitempty,max=120"`
	Ubicacion        *string         `json:"ubicacion"  validate:"omitempty,max=60"`
	Notas            *string         `json:"notas"`
}

type AjusteLoteRequest struct {
	Delta  int    `json:"delta"  validate:"required"`
	Motivo string `json:"motivo" validate:"required,min=3"`
}

// ─── Filter ──────────────────────────────────────────────────────────────────

// LoteFilter is bound from the query string of GET /v1/lotes.
type LoteFilter struct {
	ProductoID string `form:"producto_id" validate:"omitempty,uuid"`
	Vencidos   bool   `form:"vencidos"`
	PorVencer  bool   `form:"por_vencer"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LoteResponse struct {
	ID               string          `json:"id"`
	CodigoLote       string          `json:"codigo_lote"`
	ProductoID       string          `json:"producto_id"`
	Producto         string          `json:"producto,omitempty"`
	CantidadInicial  int             `json:"cantidad_inicial"`
	CantidadRestante int             `json:"cantidad_restante"`
	FechaVencimiento string          `json:"fecha_vencimiento"`
	PrecioCompra     decimal.Decimal `json:"precio_compra"`
	FechaIngreso     string          `json:"fecha_ingreso"`
	Proveedor        *string         `json:"proveedor"`
	Ubicacion        *string         `json:"ubicacion"`
	Notas            *string         `json:"notas"`
	Estado           string          `json:"estado"`
	DiasParaVencer   int             `json:"dias_para_vencer"`
	// ValorRestante is cantidad_restante × precio_compra.
	ValorRestante decimal.Decimal `json:"valor_restante"`
}

type LoteListResponse struct {
	Data  []LoteResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type LotesVencidosResponse struct {
	Data            []LoteResponse  `json:"data"`
	Total           int             `json:"total"`
	PerdidaEstimada decimal.Decimal `json:"perdida_estimada"`
}

type AlertasLotesResponse struct {
	Dias  int            `json:"dias"`
	Data  []LoteResponse `json:"data"`
	Total int            `json:"total"`
}
