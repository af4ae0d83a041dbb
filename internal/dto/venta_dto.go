package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// AnularVentaRequest: TipoNota "01" anulacion | "02" error en RUC | "06" devolucion total
type AnularVentaRequest struct {
	Motivo   string `json:"motivo"    validate:"required,min=3,max=300"`
	TipoNota string `json:"tipo_nota" validate:"required,oneof=01 02 06"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ClienteSnapshot struct {
	ID              string  `json:"id"`
	TipoDocumento   string  `json:"document_type"`
	NumeroDocumento string  `json:"document_number"`
	Nombre          string  `json:"name"`
	Direccion       *string `json:"address"`
}

type VentaItemResponse struct {
	OrdenItemID    *string         `json:"order_item_id"`
	Descripcion    string          `json:"description"`
	Cantidad       int             `json:"quantity"`
	PrecioUnitario decimal.Decimal `json:"unit_price"`
	BaseImponible  decimal.Decimal `json:"tax_base"`
	MontoImpuesto  decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

type VentaResponse struct {
	ID               string              `json:"id"`
	PagoID           string              `json:"payment_id"`
	OrdenID          string              `json:"order_id"`
	TipoDocumento    string              `json:"document_type"`
	Serie            string              `json:"series"`
	Correlativo      int64               `json:"correlative"`
	NumeroCompleto   string              `json:"number"`
	BaseImponible    decimal.Decimal     `json:"tax_base"`
	MontoImpuesto    decimal.Decimal     `json:"tax_amount"`
	Total            decimal.Decimal     `json:"total"`
	TasaImpuesto     decimal.Decimal     `json:"tax_rate"`
	Cliente          *ClienteSnapshot    `json:"client,omitempty"`
	EstadoAutoridad  string              `json:"authority_status"`
	CodigoRespuesta  *string             `json:"authority_code"`
	MensajeAutoridad *string             `json:"authority_message"`
	Intentos         int                 `json:"attempts"`
	Items            []VentaItemResponse `json:"items"`
	CreatedAt        string              `json:"created_at"`
}

type NotaCreditoResponse struct {
	ID               string          `json:"id"`
	VentaID          string          `json:"sale_id"`
	TipoNota         string          `json:"tipo_nota"`
	Motivo           string          `json:"motivo"`
	Serie            string          `json:"series"`
	Correlativo      int64           `json:"correlative"`
	NumeroCompleto   string          `json:"number"`
	BaseImponible    decimal.Decimal `json:"tax_base"`
	MontoImpuesto    decimal.Decimal `json:"tax_amount"`
	Total            decimal.Decimal `json:"total"`
	EstadoAutoridad  string          `json:"authority_status"`
	MensajeAutoridad *string         `json:"authority_message"`
	CreatedAt        string          `json:"created_at"`
}

type AnularVentaResponse struct {
	Venta       VentaResponse       `json:"sale"`
	NotaCredito NotaCreditoResponse `json:"credit_note"`
}
