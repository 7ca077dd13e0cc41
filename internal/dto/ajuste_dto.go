package dto

// ─── Ajustes de inventario ──────────────────────────────────────────────────

type AjusteInventarioRequest struct {
	ProductoID    string  `json:"producto_id"    validate:"required,uuid"`
	CantidadNueva *int    `json:"cantidad_nueva" validate:"required"`
	Tipo          string  `json:"tipo"           validate:"required,oneof=merma rotura robo error_conteo conteo_fisico vencimiento"`
	Motivo        string  `json:"motivo"         validate:"required,min=3"`
	Notas         *string `json:"notas"`
}

type DeltaLoteResponse struct {
	LoteID   string `json:"lote_id"`
	Anterior int    `json:"anterior"`
	Nuevo    int    `json:"nuevo"`
	Delta    int    `json:"delta"`
}

type AjusteInventarioResponse struct {
	ID               string              `json:"id"`
	ProductoID       string              `json:"producto_id"`
	Producto         string              `json:"producto,omitempty"`
	CantidadAnterior int                 `json:"cantidad_anterior"`
	CantidadNueva    int                 `json:"cantidad_nueva"`
	Diferencia       int                 `json:"diferencia"`
	Tipo             string              `json:"tipo"`
	Motivo           string              `json:"motivo"`
	Notas            *string             `json:"notas"`
	UsuarioID        string              `json:"usuario_id"`
	Lotes            []DeltaLoteResponse `json:"lotes,omitempty"`
	CreatedAt        string              `json:"created_at"`
}

type AjusteFilter struct {
	ProductoID string `form:"producto_id" validate:"omitempty,uuid"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type AjusteListResponse struct {
	Data  []AjusteInventarioResponse `json:"data"`
	Total int64                      `json:"total"`
	Page  int                        `json:"page"`
	Limit int                        `json:"limit"`
}

// ─── Movimientos de stock ───────────────────────────────────────────────────

type MovimientoStockFilter struct {
	ProductoID string `form:"producto_id" validate:"omitempty,uuid"`
	LoteID     string `form:"lote_id"     validate:"omitempty,uuid"`
	Tipo       string `form:"tipo"        validate:"omitempty,oneof=ingreso_lote venta devolucion ajuste_inventario ajuste_lote"`
	Page       int    `form:"page,default=1"    validate:"min=1"`
	Limit      int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type MovimientoStockResponse struct {
	ID            string  `json:"id"`
	ProductoID    string  `json:"producto_id"`
	Producto      string  `json:"producto,omitempty"`
	LoteID        *string `json:"lote_id"`
	Tipo          string  `json:"tipo"`
	Cantidad      int     `json:"cantidad"`
	StockAnterior int     `json:"stock_anterior"`
	StockNuevo    int     `json:"stock_nuevo"`
	Motivo        string  `json:"motivo"`
	ReferenciaID  *string `json:"referencia_id"`
	CreatedAt     string  `json:"created_at"`
}

type MovimientoStockListResponse struct {
	Data  []MovimientoStockResponse `json:"data"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
}

// AlertaStockResponse is a product whose sellable stock fell below stock_minimo.
type AlertaStockResponse struct {
	ProductoID    string `json:"producto_id"`
	Nombre        string `json:"nombre"`
	Categoria     string `json:"categoria"`
	StockVendible int    `json:"stock_vendible"`
	StockFisico   int    `json:"stock_fisico"`
	StockMinimo   int    `json:"stock_minimo"`
}
