package handler

import (
	"net/http"
	"strconv"

	"minimarket/internal/apierror"
	"minimarket/internal/dto"
	"minimarket/internal/service"

	"github.com/gin-gonic/gin"
)

// maxDiasAlerta caps the ?dias= horizon of GET /v1/lotes/alertas.
const maxDiasAlerta = 365

type LotesHandler struct{ svc service.LoteService }

func NewLotesHandler(svc service.LoteService) *LotesHandler { return &LotesHandler{svc: svc} }

// Crear godoc
// @Summary      Registrar un lote
// @Description  Ingresa mercaderia con fecha de vencimiento y precio de compra propios.
// @Tags         lotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearLoteRequest true "Lote"
// @Success      201  {object} dto.LoteResponse
// @Failure      400  {object} apierror.ValidationError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/lotes [post]
func (h *LotesHandler) Crear(c *gin.Context) {
	var req dto.CrearLoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), usuarioID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary      Listar lotes en orden FIFO
// @Tags         lotes
// @Produce      json
// @Security     BearerAuth
// @Param        producto_id query string false "Producto"
// @Param        vencidos    query bool   false "Solo vencidos"
// @Param        por_vencer  query bool   false "Solo por vencer"
// @Success      200  {object} dto.LoteListResponse
// @Router       /v1/lotes [get]
func (h *LotesHandler) Listar(c *gin.Context) {
	var filter dto.LoteFilter
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

// Alertas godoc
// @Summary      Lotes por vencer
// @Tags         lotes
// @Produce      json
// @Security     BearerAuth
// @Param        dias query int false "Horizonte en dias (max 365)"
// @Success      200  {object} dto.AlertasLotesResponse
// @Failure      400  {object} apierror.ValidationError
// @Router       /v1/lotes/alertas [get]
func (h *LotesHandler) Alertas(c *gin.Context) {
	dias := 0
	if raw := c.Query("dias"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxDiasAlerta {
			c.JSON(http.StatusBadRequest, apierror.NewValidation(map[string]string{"dias": "entre 1 y 365"}))
			return
		}
		dias = n
	}
	resp, err := h.svc.Alertas(c.Request.Context(), dias)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Vencidos godoc
// @Summary      Lotes vencidos y perdida estimada
// @Tags         lotes
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} dto.LotesVencidosResponse
// @Router       /v1/lotes/vencidos [get]
func (h *LotesHandler) Vencidos(c *gin.Context) {
	resp, err := h.svc.Vencidos(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LotesHandler) Resumen(c *gin.Context) {
	resp, err := h.svc.Resumen(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LotesHandler) Obtener(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AjustarRestante godoc
// @Summary      Corregir el restante de un lote
// @Tags         lotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                true "Lote ID"
// @Param        body body dto.AjusteLoteRequest true "Delta y motivo"
// @Success      200  {object} dto.LoteResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/lotes/{id}/ajuste [patch]
func (h *LotesHandler) AjustarRestante(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.AjusteLoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AjustarRestante(c.Request.Context(), usuarioID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarPorProducto godoc
// @Summary      Lotes de un producto en orden FIFO
// @Tags         lotes
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Producto ID"
// @Success      200  {array} dto.LoteResponse
// @Router       /v1/productos/{id}/lotes [get]
func (h *LotesHandler) ListarPorProducto(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListarPorProducto(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
