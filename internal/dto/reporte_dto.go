package dto

import (
	"minimarket/internal/inventario"

	"github.com/shopspring/decimal"
)

type RangoFechasFilter struct {
	Desde string `form:"desde"` // YYYY-MM-DD, default today
	Hasta string `form:"hasta"` // YYYY-MM-DD, inclusive, default desde
}

type DashboardResponse struct {
	Fecha              string                    `json:"fecha"`
	VentasHoy          int64                     `json:"ventas_hoy"`
	IngresosHoy        decimal.Decimal           `json:"ingresos_hoy"`
	Margen             inventario.MargenAgregado `json:"margen"`
	Lotes              inventario.Resumen        `json:"lotes"`
	ProductosBajoStock int                       `json:"productos_bajo_stock"`
}

type MargenResponse struct {
	Desde string `json:"desde"`
	Hasta string `json:"hasta"`
	inventario.MargenAgregado
}

type VencimientosResponse struct {
	Fecha         string             `json:"fecha"`
	DiasPorVencer int                `json:"dias_por_vencer"`
	Resumen       inventario.Resumen `json:"resumen"`
	Vencidos      []LoteResponse     `json:"vencidos"`
	PorVencer     []LoteResponse     `json:"por_vencer"`
}
