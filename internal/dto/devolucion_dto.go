package dto

import "github.com/shopspring/decimal"

type DevolucionRequest struct {
	VentaID string  `json:"venta_id" validate:"required,uuid"`
	Motivo  string  `json:"motivo"   validate:"required,min=3"`
	Notas   *string `json:"notas"`
}

// ReversionLoteResponse reports one lot given back by a return.
// Recortado is true when the lot was capped at its initial quantity.
type ReversionLoteResponse struct {
	LoteID    string `json:"lote_id"`
	Cantidad  int    `json:"cantidad"`
	Recortado bool   `json:"recortado"`
}

type DevolucionResponse struct {
	ID            string                  `json:"id"`
	VentaID       string                  `json:"venta_id"`
	NumeroTicket  int                     `json:"numero_ticket"`
	Motivo        string                  `json:"motivo"`
	Notas         *string                 `json:"notas"`
	MontoDevuelto decimal.Decimal         `json:"monto_devuelto"`
	Lotes         []ReversionLoteResponse `json:"lotes"`
	CreatedAt     string                  `json:"created_at"`
}
