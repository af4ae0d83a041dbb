package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// OrdenFilter is bound from query string of GET /v1/orders.
type OrdenFilter struct {
	Estado string `form:"status"   validate:"omitempty,oneof=ABIERTA CERRADA PAGADA CANCELADA"`
	MesaID string `form:"table_id" validate:"omitempty,uuid"`
	Fecha  string `form:"date"     validate:"omitempty,datetime=2006-01-02"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type OrdenListResponse struct {
	Data  []OrdenResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirOrdenRequest struct {
	MesaID     string  `json:"table_id"     validate:"required,uuid"`
	Comensales int     `json:"diners_count" validate:"required,min=1"`
	Notas      *string `json:"notes"        validate:"omitempty,max=500"`
}

type AgregarItemRequest struct {
	ProductoID string `json:"product_id" validate:"required,uuid"`
	Cantidad   int    `json:"quantity"   validate:"required,min=1,max=999"`
	// Variantes holds the ids of the chosen variants
	Variantes []string `json:"variants" validate:"omitempty,dive,uuid"`
	Notas     *string  `json:"notes"    validate:"omitempty,max=300"`
}

// CambiarEstadoItemRequest: unknown states are rejected by the transition table.
type CambiarEstadoItemRequest struct {
	Estado string `json:"status" validate:"required"`
}

type CancelarItemRequest struct {
	Motivo string `json:"motivo" validate:"max=300"`
}

type CancelarOrdenRequest struct {
	Motivo string `json:"motivo" validate:"required,min=3,max=300"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VarianteResponse struct {
	VarianteID      string          `json:"variant_id"`
	GrupoID         string          `json:"group_id"`
	Nombre          string          `json:"name"`
	PrecioAdicional decimal.Decimal `json:"extra_price"`
}

type OrdenItemResponse struct {
	ID                string             `json:"id"`
	OrdenID           string             `json:"order_id"`
	ProductoID        string             `json:"product_id"`
	ProductoNombre    string             `json:"name"`
	NombreCorto       string             `json:"short_name"`
	PrecioUnitario    decimal.Decimal    `json:"unit_price"`
	AreaPreparacion   string             `json:"preparation_area"`
	Cantidad          int                `json:"quantity"`
	CantidadPagada    int                `json:"quantity_paid"`
	Variantes         []VarianteResponse `json:"variants"`
	TotalVariantes    decimal.Decimal    `json:"variants_total"`
	TotalLinea        decimal.Decimal    `json:"line_total"`
	Estado            string             `json:"status"`
	Notas             *string            `json:"notes"`
	Cancelado         bool               `json:"is_cancelled"`
	MotivoCancelacion *string            `json:"cancel_reason"`
	Pagado            bool               `json:"is_paid"`
	EnviadoAt         *string            `json:"sent_at"`
	CreatedAt         string             `json:"created_at"`
}

// AgregarItemResponse is the new line plus the order subtotal after recalculation.
type AgregarItemResponse struct {
	OrdenItemResponse
	OrdenSubtotal decimal.Decimal `json:"order_subtotal"`
}

type OrdenResponse struct {
	ID                string              `json:"id"`
	NumeroDiario      int64               `json:"daily_number"`
	Fecha             string              `json:"date"`
	MesaID            string              `json:"table_id"`
	MozoID            string              `json:"waiter_id"`
	Comensales        int                 `json:"diners_count"`
	Estado            string              `json:"status"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	TotalCancelado    decimal.Decimal     `json:"total_cancelled"`
	TotalPagado       decimal.Decimal     `json:"total_paid"`
	TotalPendiente    decimal.Decimal     `json:"total_pending"`
	EsPagoDividido    bool                `json:"is_split_payment"`
	CantidadPagos     int                 `json:"payment_count"`
	Notas             *string             `json:"notes"`
	MotivoCancelacion *string             `json:"cancel_reason"`
	CreatedAt         string              `json:"created_at"`
	CerradaAt         *string             `json:"closed_at"`
	PagadaAt          *string             `json:"paid_at"`
	CanceladaAt       *string             `json:"cancelled_at"`
	Items             []OrdenItemResponse `json:"items,omitempty"`
}

type EnviarCocinaResponse struct {
	Enviados int                 `json:"sent"`
	Items    []OrdenItemResponse `json:"items"`
}

// SaldoItemResponse is one row of the remaining-payable ledger.
type SaldoItemResponse struct {
	ItemID           string          `json:"item_id"`
	Nombre           string          `json:"name"`
	Cantidad         int             `json:"quantity"`
	CantidadPagada   int             `json:"quantity_paid"`
	CantidadRestante int             `json:"quantity_remaining"`
	PrecioEfectivo   decimal.Decimal `json:"unit_price_with_variants"`
	MontoRestante    decimal.Decimal `json:"amount_remaining"`
}

type SaldosResponse struct {
	OrdenID        string              `json:"order_id"`
	Estado         string              `json:"status"`
	TotalPendiente decimal.Decimal     `json:"total_pending"`
	Items          []SaldoItemResponse `json:"items"`
}
