package handler

import (
	"fmt"
	"net/http"

	"restopos/internal/dto"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
)

type VentasHandler struct{ svc service.FacturacionService }

func NewVentasHandler(svc service.FacturacionService) *VentasHandler {
	return &VentasHandler{svc: svc}
}

// Obtener godoc
// @Summary Obtiene un comprobante
// @Tags ventas
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de venta"
// @Success 200 {object} dto.VentaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sales/{id} [get]
func (h *VentasHandler) Obtener(c *gin.Context) {
	id, ok := uuidParam(c, "id")
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

// DescargarPDF godoc
// @Summary Descarga el comprobante en PDF
// @Tags ventas
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "ID de venta"
// @Success 200 {file} binary
// @Failure 404 {object} apierror.APIError
// @Router /v1/sales/{id}/pdf [get]
func (h *VentasHandler) DescargarPDF(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	pdf, nombre, err := h.svc.GenerarPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, nombre))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Reenviar godoc
// @Summary Reintenta el envio a la autoridad tributaria
// @Tags ventas
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de venta"
// @Success 200 {object} dto.VentaResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/sales/{id}/resend [post]
func (h *VentasHandler) Reenviar(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Reenviar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Anular godoc
// @Summary Anula un comprobante aceptado emitiendo una nota de credito
// @Tags ventas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de venta"
// @Param body body dto.AnularVentaRequest true "Motivo y tipo de nota"
// @Success 201 {object} dto.AnularVentaResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sales/{id}/void [post]
func (h *VentasHandler) Anular(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.AnularVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.Anular(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
