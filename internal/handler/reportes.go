package handler

import (
	"net/http"

	"minimarket/internal/dto"
	"minimarket/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportesHandler struct{ svc service.ReporteService }

func NewReportesHandler(svc service.ReporteService) *ReportesHandler {
	return &ReportesHandler{svc: svc}
}

// Dashboard godoc
// @Summary Resumen del dia
// @Tags reportes
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.DashboardResponse
// @Router /v1/reportes/dashboard [get]
func (h *ReportesHandler) Dashboard(c *gin.Context) {
	resp, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Margen godoc
// @Summary Margen agregado en un rango de fechas
// @Description Lineas sin costo registrado se estiman con el ratio de costo de su categoria.
// @Tags reportes
// @Security BearerAuth
// @Produce json
// @Param desde query string false "YYYY-MM-DD (default hoy)"
// @Param hasta query string false "YYYY-MM-DD inclusive (default desde)"
// @Success 200 {object} dto.MargenResponse
// @Failure 400 {object} apierror.ValidationError
// @Router /v1/reportes/margen [get]
func (h *ReportesHandler) Margen(c *gin.Context) {
	var filter dto.RangoFechasFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Margen(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportesHandler) Vencimientos(c *gin.Context) {
	resp, err := h.svc.Vencimientos(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
