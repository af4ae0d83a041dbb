package handler

import (
	"net/http"

	"restopos/internal/apierror"
	"restopos/internal/dto"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
)

type OrdenesHandler struct {
	svc         service.OrdenService
	pagos       service.PagoService
	facturacion service.FacturacionService
}

func NewOrdenesHandler(svc service.OrdenService, pagos service.PagoService, facturacion service.FacturacionService) *OrdenesHandler {
	return &OrdenesHandler{svc: svc, pagos: pagos, facturacion: facturacion}
}

// Abrir godoc
// @Summary Abre una orden en una mesa
// @Tags ordenes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirOrdenRequest true "Mesa y comensales"
// @Success 201 {object} dto.OrdenResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/orders [post]
func (h *OrdenesHandler) Abrir(c *gin.Context) {
	var req dto.AbrirOrdenRequest
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

// Listar godoc
// @Summary Lista ordenes con filtros
// @Tags ordenes
// @Produce json
// @Security BearerAuth
// @Param status query string false "Estado"
// @Param table_id query string false "Mesa"
// @Param date query string false "Fecha YYYY-MM-DD"
// @Param page query int false "Pagina"
// @Param limit query int false "Tamano de pagina"
// @Success 200 {object} dto.OrdenListResponse
// @Router /v1/orders [get]
func (h *OrdenesHandler) Listar(c *gin.Context) {
	var filter dto.OrdenFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return
	}
	if !validateStruct(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary Obtiene una orden con sus items
// @Tags ordenes
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de orden"
// @Success 200 {object} dto.OrdenResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/orders/{id} [get]
func (h *OrdenesHandler) Obtener(c *gin.Context) {
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

// AgregarItem godoc
// @Summary Agrega un producto a la orden
// @Tags ordenes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de orden"
// @Param body body dto.AgregarItemRequest true "Producto, cantidad y variantes"
// @Success 201 {object} dto.AgregarItemResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/orders/{id}/items [post]
func (h *OrdenesHandler) AgregarItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.AgregarItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.AgregarItem(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// EliminarItem godoc
// @Summary Elimina un item nunca enviado a cocina
// @Tags ordenes
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de orden"
// @Param item_id path string true "ID de item"
// @Success 200 {object} dto.OrdenResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/orders/{id}/items/{item_id} [delete]
func (h *OrdenesHandler) EliminarItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "item_id")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.EliminarItem(c.Request.Context(), actor, id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EnviarACocina godoc
// @Summary Envia a cocina todos los items pendientes
// @Tags ordenes
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de orden"
// @Success 200 {object} dto.EnviarCocinaResponse
// @Router /v1/orders/{id}/send [post]
func (h *OrdenesHandler) EnviarACocina(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.EnviarACocina(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cerrar godoc
// @Summary Cierra la orden para cobro
// @Tags ordenes
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de orden"
// @Success 200 {object} dto.OrdenResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/orders/{id}/close [post]
func (h *OrdenesHandler) Cerrar(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancelar godoc
// @Summary Cancela la orden y sus items no pagados
// @Tags ordenes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de orden"
// @Param body body dto.CancelarOrdenRequest true "Motivo"
// @Success 200 {object} dto.OrdenResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/orders/{id}/cancel [post]
func (h *OrdenesHandler) Cancelar(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CancelarOrdenRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cancelar(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Recalcular godoc
// @Summary Recalcula los totales de la orden
// @Tags ordenes
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de orden"
// @Success 200 {object} dto.OrdenResponse
// @Router /v1/orders/{id}/recalculate [post]
func (h *OrdenesHandler) Recalcular(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Recalcular(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Saldos godoc
// @Summary Saldo por pagar de cada item
// @Tags ordenes
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de orden"
// @Success 200 {object} dto.SaldosResponse
// @Router /v1/orders/{id}/balances [get]
func (h *OrdenesHandler) Saldos(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Saldos(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Pagos godoc
// @Summary Lista los pagos de la orden
// @Tags ordenes
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de orden"
// @Success 200 {array} dto.PagoResponse
// @Router /v1/orders/{id}/payments [get]
func (h *OrdenesHandler) Pagos(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.pagos.ListarPorOrden(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ventas godoc
// @Summary Lista los comprobantes emitidos para la orden
// @Tags ordenes
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de orden"
// @Success 200 {array} dto.VentaResponse
// @Router /v1/orders/{id}/sales [get]
func (h *OrdenesHandler) Ventas(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.facturacion.ListarPorOrden(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Order items ───────────────────────────────────────────────────────────────

// CambiarEstadoItem godoc
// @Summary Avanza el estado de preparacion de un item
// @Tags items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de item"
// @Param body body dto.CambiarEstadoItemRequest true "Nuevo estado"
// @Success 200 {object} dto.OrdenItemResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/order-items/{id}/status [patch]
func (h *OrdenesHandler) CambiarEstadoItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CambiarEstadoItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.CambiarEstadoItem(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CancelarItem godoc
// @Summary Cancela un item de la orden
// @Tags items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de item"
// @Param body body dto.CancelarItemRequest true "Motivo"
// @Success 200 {object} dto.OrdenItemResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/order-items/{id}/cancel [post]
func (h *OrdenesHandler) CancelarItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CancelarItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.CancelarItem(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
