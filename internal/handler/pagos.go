package handler

import (
	"net/http"

	"restopos/internal/dto"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
)

type PagosHandler struct{ svc service.PagoService }

func NewPagosHandler(svc service.PagoService) *PagosHandler { return &PagosHandler{svc: svc} }

// Registrar godoc
// @Summary Registra un pago sobre una orden cerrada
// @Description Requiere caja abierta. Acepta Idempotency-Key. Un pago menor al saldo no se asigna a items; despues de uno, el saldo solo se cobra con otro pago simple.
// @Tags pagos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Clave de idempotencia"
// @Param body body dto.PagoSimpleRequest true "Pago"
// @Success 201 {object} dto.RegistrarPagoResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/payments [post]
func (h *PagosHandler) Registrar(c *gin.Context) {
	var req dto.PagoSimpleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarSimple(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarDividido godoc
// @Summary Divide la cuenta por items entre varios pagadores
// @Description Si la orden tiene pagos simples parciales, los items suman mas que el saldo y se responde AMOUNT_EXCEEDS_PENDING con unallocated_paid.
// @Tags pagos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Clave de idempotencia"
// @Param body body dto.PagoDivididoRequest true "Pagos por grupo de items"
// @Success 201 {object} dto.RegistrarPagosResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/payments/split [post]
func (h *PagosHandler) RegistrarDividido(c *gin.Context) {
	var req dto.PagoDivididoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarDividido(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarIncremental godoc
// @Summary Registra pagos por cantidades parciales de items
// @Description El lote que asigna la ultima unidad debe saldar la orden (SETTLEMENT_MISMATCH). Los pagos simples parciales previos se informan en unallocated_paid.
// @Tags pagos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Clave de idempotencia"
// @Param body body dto.PagoIncrementalRequest true "Pagos con asignaciones"
// @Success 201 {object} dto.RegistrarPagosResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/payments/incremental [post]
func (h *PagosHandler) RegistrarIncremental(c *gin.Context) {
	var req dto.PagoIncrementalRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarIncremental(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
