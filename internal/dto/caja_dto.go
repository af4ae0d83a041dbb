package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	MontoInicial decimal.Decimal `json:"initial_amount" validate:"gte=0"`
	Notas        *string         `json:"notes"          validate:"omitempty,max=300"`
}

type CerrarCajaRequest struct {
	MontoFinal decimal.Decimal `json:"final_amount" validate:"gte=0"`
	Notas      *string         `json:"notes"        validate:"omitempty,max=300"`
}

type MovimientoManualRequest struct {
	Tipo   string          `json:"type"   validate:"required,oneof=INGRESO EGRESO"`
	Monto  decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Motivo string          `json:"reason" validate:"required,min=3,max=300"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DesvioResponse struct {
	Monto         decimal.Decimal `json:"monto"`
	Porcentaje    decimal.Decimal `json:"porcentaje"`
	Clasificacion string          `json:"clasificacion"` // normal | advertencia | critico
}

type SesionCajaResponse struct {
	ID            string           `json:"id"`
	UsuarioID     string           `json:"user_id"`
	Estado        string           `json:"status"`
	MontoInicial  decimal.Decimal  `json:"initial_amount"`
	TotalVentas   decimal.Decimal  `json:"total_sales"`
	TotalIngresos decimal.Decimal  `json:"total_income"`
	TotalEgresos  decimal.Decimal  `json:"total_expense"`
	MontoEsperado decimal.Decimal  `json:"expected_amount"`
	MontoFinal    *decimal.Decimal `json:"final_amount"`
	Diferencia    *decimal.Decimal `json:"difference"`
	Desvio        *DesvioResponse  `json:"desvio,omitempty"`
	Notas         *string          `json:"notes"`
	OpenedAt      string           `json:"opened_at"`
	ClosedAt      *string          `json:"closed_at"`
}

type MovimientoResponse struct {
	ID            string          `json:"id"`
	Tipo          string          `json:"type"`
	Monto         decimal.Decimal `json:"amount"`
	Motivo        string          `json:"reason"`
	Automatico    bool            `json:"automatic"`
	PagoID        *string         `json:"payment_id"`
	MetodoPago    *string         `json:"payment_method"`
	RegistradoPor string          `json:"registered_by"`
	CreatedAt     string          `json:"created_at"`
}

type ReporteCajaResponse struct {
	SesionCajaResponse
	VentasPorMetodo map[string]decimal.Decimal `json:"sales_by_method"`
	Movimientos     []MovimientoResponse       `json:"movements"`
}
