package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// DatosPago carries the per-payer fields shared by every payment mode.
type DatosPago struct {
	Metodo        string           `json:"payment_method"  validate:"required,oneof=EFECTIVO TARJETA TRANSFERENCIA BILLETERA"`
	Monto         decimal.Decimal  `json:"amount"          validate:"required,gt=0"`
	MontoRecibido *decimal.Decimal `json:"amount_received" validate:"omitempty,gte=0"`
	// GenerarDocumento mints a Sale; TipoDocumento defaults to BOLETA
	GenerarDocumento bool    `json:"generate_document"`
	TipoDocumento    string  `json:"document_type" validate:"omitempty,oneof=NOTA_VENTA BOLETA FACTURA"`
	ClienteID        *string `json:"client_id"     validate:"omitempty,uuid"`
	NombrePagador    *string `json:"payer_name"    validate:"omitempty,max=120"`
	Notas            *string `json:"notes"         validate:"omitempty,max=300"`
}

type PagoSimpleRequest struct {
	OrdenID string `json:"order_id" validate:"required,uuid"`
	DatosPago
}

type PagoDivididoItem struct {
	DatosPago
	ItemIDs []string `json:"item_ids" validate:"required,min=1,dive,uuid"`
}

type PagoDivididoRequest struct {
	OrdenID string             `json:"order_id" validate:"required,uuid"`
	Pagos   []PagoDivididoItem `json:"payments" validate:"required,min=2,dive"`
}

type AsignacionRequest struct {
	ItemID   string `json:"item_id"  validate:"required,uuid"`
	Cantidad int    `json:"quantity" validate:"required,min=1"`
	// Monto is derived from the item price when omitted
	Monto *decimal.Decimal `json:"amount" validate:"omitempty,gt=0"`
}

type PagoIncrementalItem struct {
	DatosPago
	Asignaciones []AsignacionRequest `json:"item_allocations" validate:"required,min=1,dive"`
}

type PagoIncrementalRequest struct {
	OrdenID string                `json:"order_id" validate:"required,uuid"`
	Pagos   []PagoIncrementalItem `json:"payments" validate:"required,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type AsignacionResponse struct {
	ItemID   string          `json:"item_id"`
	Cantidad int             `json:"quantity"`
	Monto    decimal.Decimal `json:"amount"`
}

type PagoResponse struct {
	ID            string               `json:"id"`
	OrdenID       string               `json:"order_id"`
	SesionCajaID  string               `json:"cash_register_id"`
	Numero        int                  `json:"number"`
	Tipo          string               `json:"type"`
	Metodo        string               `json:"payment_method"`
	Monto         decimal.Decimal      `json:"amount"`
	MontoRecibido *decimal.Decimal     `json:"amount_received"`
	Vuelto        *decimal.Decimal     `json:"change_given"`
	NombrePagador *string              `json:"payer_name"`
	ProcesadoPor  string               `json:"processed_by"`
	Asignaciones  []AsignacionResponse `json:"allocations"`
	CreatedAt     string               `json:"created_at"`
}

// OrdenResumen is the order state a cashier needs after posting a payment.
type OrdenResumen struct {
	ID             string          `json:"id"`
	Estado         string          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TotalPagado    decimal.Decimal `json:"total_paid"`
	TotalPendiente decimal.Decimal `json:"total_pending"`
}

type RegistrarPagoResponse struct {
	Pago  PagoResponse   `json:"payment"`
	Venta *VentaResponse `json:"sale,omitempty"`
	Orden OrdenResumen   `json:"order"`
}

type RegistrarPagosResponse struct {
	Pagos  []PagoResponse  `json:"payments"`
	Ventas []VentaResponse `json:"sales"`
	Orden  OrdenResumen    `json:"order"`
}
