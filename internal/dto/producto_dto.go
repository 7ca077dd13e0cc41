package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	CodigoBarras string          `json:"codigo_barras" validate:"required,min=4,max=32"`
	Nombre       string          `json:"nombre"        validate:"required,min=2,max=120"`
	Descripcion  *string         `json:"descripcion"`
	Categoria    string          `json:"categoria"     validate:"required,max=60"`
	PrecioCompra decimal.Decimal `json:"precio_compra" validate:"min=0"`
	PrecioVenta  decimal.Decimal `json:"precio_venta"  validate:"required,gt=0"`
	StockMinimo  int             `json:"stock_minimo"  validate:"min=0"`
	UnidadMedida string          `json:"unidad_medida" validate:"omitempty,max=20"`
}

type ActualizarProductoRequest struct {
	Nombre       *string          `json:"nombre"        validate:"omitempty,min=2,max=120"`
	Descripcion  *string          `json:"descripcion"`
	Categoria    *string          `json:"categoria"     validate:"omitempty,max=60"`
	PrecioCompra *decimal.Decimal `json:"precio_compra"`
	PrecioVenta  *decimal.Decimal `json:"precio_venta"`
	StockMinimo  *int             `json:"stock_minimo"  validate:"omitempty,min=0"`
	UnidadMedida *string          `json:"unidad_medida" validate:"omitempty,max=20"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductoFilter struct {
	Buscar    string `form:"buscar"` // nombre ILIKE or exact codigo_barras
	Categoria string `form:"categoria"`
	Activo    string `form:"activo"` // "true" (default) | "false" | "all"
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID           string          `json:"id"`
	CodigoBarras string          `json:"codigo_barras"`
	Nombre       string          `json:"nombre"`
	Descripcion  *string         `json:"descripcion"`
	Categoria    string          `json:"categoria"`
	PrecioCompra decimal.Decimal `json:"precio_compra"`
	PrecioVenta  decimal.Decimal `json:"precio_venta"`
	StockMinimo  int             `json:"stock_minimo"`
	UnidadMedida string          `json:"unidad_medida"`
	Activo       bool            `json:"activo"`
	// StockVendible counts only non-expired, non-exhausted lots.
	StockVendible int  `json:"stock_vendible"`
	StockFisico   int  `json:"stock_fisico"`
	BajoStock     bool `json:"bajo_stock"`
}

type ProductoListResponse struct {
	Data       []ProductoResponse `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

// ConsultaPreciosResponse is returned by the public price check endpoint (no auth required).
type ConsultaPreciosResponse struct {
	Nombre        string          `json:"nombre"`
	PrecioVenta   decimal.Decimal `json:"precio_venta"`
	Categoria     string          `json:"categoria"`
	StockVendible int             `json:"stock_vendible"`
}
