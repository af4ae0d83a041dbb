package handler

import (
	"net/http"

	"restopos/internal/dto"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre la caja del usuario
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.SesionCajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cash-registers/open [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cerrar godoc
// @Summary Cierra la caja con el monto contado
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarCajaRequest true "Monto final"
// @Success 200 {object} dto.SesionCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-registers/close [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarMovimiento godoc
// @Summary Registra un ingreso o egreso manual
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovimientoManualRequest true "Movimiento"
// @Success 201 {object} dto.MovimientoResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/cash-registers/movements [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.MovimientoManualRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarMovimiento(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Activa godoc
// @Summary Obtiene la caja abierta del usuario
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ReporteCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-registers/active [get]
func (h *CajaHandler) Activa(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.Activa(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerReporte godoc
// @Summary Obtiene el reporte de una sesion de caja
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.ReporteCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-registers/{id}/report [get]
func (h *CajaHandler) ObtenerReporte(c *gin.Context) {
	id, ok := uuidParam(c, "id")
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
