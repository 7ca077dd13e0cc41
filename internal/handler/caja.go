package handler

import (
	"errors"
	"net/http"

	"minimarket/internal/apierror"
	"minimarket/internal/dto"
	"minimarket/internal/inventario"
	"minimarket/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre una nueva sesion de caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.ReporteCajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), usuarioID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Arqueo godoc
// @Summary Realiza el arqueo ciego y cierra la sesion
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ArqueoRequest true "Montos declarados"
// @Success 200 {object} dto.ArqueoResponse
// @Failure 400 {object} apierror.ValidationError
// @Failure 403 {object} apierror.APIError
// @Router /v1/caja/cerrar [post]
func (h *CajaHandler) Arqueo(c *gin.Context) {
	var req dto.ArqueoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), usuarioID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Activa godoc
// @Summary Sesion de caja abierta del usuario
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ReporteCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/activa [get]
func (h *CajaHandler) Activa(c *gin.Context) {
	resp, err := h.svc.Activa(c.Request.Context(), usuarioID(c))
	if errors.Is(err, inventario.ErrSinCajaAbierta) {
		c.JSON(http.StatusNotFound, apierror.WithCode(apierror.CodeSinCaja, "No hay una caja abierta para este usuario"))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.MovimientoManualRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.RegistrarMovimiento(c.Request.Context(), usuarioID(c), req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// GetReporte godoc
// @Summary Reporte de una sesion de caja
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "Sesion ID"
// @Success 200 {object} dto.ReporteCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/reporte [get]
func (h *CajaHandler) GetReporte(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerReporte(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
