package handler

import (
	"net/http"

	"minimarket/internal/dto"
	"minimarket/internal/service"

	"github.com/gin-gonic/gin"
)

type InventarioHandler struct{ svc service.InventarioService }

func NewInventarioHandler(svc service.InventarioService) *InventarioHandler {
	return &InventarioHandler{svc: svc}
}

// ObtenerAlertas godoc
// @Summary Productos con stock vendible bajo el minimo
// @Tags inventario
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.AlertaStockResponse
// @Router /v1/inventario/alertas [get]
func (h *InventarioHandler) ObtenerAlertas(c *gin.Context) {
	resp, err := h.svc.ObtenerAlertas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarMovimientos godoc
// @Summary Libro de movimientos de stock
// @Tags inventario
// @Security BearerAuth
// @Produce json
// @Param producto_id query string false "Producto"
// @Param lote_id query string false "Lote"
// @Param tipo query string false "Tipo de movimiento"
// @Success 200 {object} dto.MovimientoStockListResponse
// @Router /v1/inventario/movimientos [get]
func (h *InventarioHandler) ListarMovimientos(c *gin.Context) {
	var filter dto.MovimientoStockFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type AjustesHandler struct{ svc service.AjusteService }

func NewAjustesHandler(svc service.AjusteService) *AjustesHandler {
	return &AjustesHandler{svc: svc}
}

// Registrar godoc
// @Summary Ajuste de inventario
// @Description Lleva el stock del producto a cantidad_nueva repartiendo la diferencia entre sus lotes.
// @Tags inventario
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.AjusteInventarioRequest true "Ajuste"
// @Success 201 {object} dto.AjusteInventarioResponse
// @Failure 400 {object} apierror.ValidationError
// @Failure 404 {object} apierror.APIError
// @Router /v1/ajustes-inventario [post]
func (h *AjustesHandler) Registrar(c *gin.Context) {
	var req dto.AjusteInventarioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Registrar(c.Request.Context(), usuarioID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *AjustesHandler) Listar(c *gin.Context) {
	var filter dto.AjusteFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
