package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Orden estados
const (
	OrdenAbierta   = "ABIERTA"
	OrdenCerrada   = "CERRADA"
	OrdenPagada    = "PAGADA"
	OrdenCancelada = "CANCELADA"
)

// Orden is one table visit. Subtotal, TotalCancelado, TotalPagado and
// TotalPendiente are derived and written only by the order recalculation.
type Orden struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// NumeroDiario restarts at 1 every business day (Fecha, YYYY-MM-DD in the configured TZ)
	NumeroDiario int64     `gorm:"not null;uniqueIndex:idx_orden_fecha_numero,priority:2"`
	Fecha        string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_orden_fecha_numero,priority:1"`
	MesaID       uuid.UUID `gorm:"type:uuid;not null;index"`
	MozoID       uuid.UUID `gorm:"type:uuid;not null"`
	Comensales   int       `gorm:"not null"`
	Estado       string    `gorm:"type:varchar(20);not null;default:'ABIERTA';index"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCancelado decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalPagado    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalPendiente decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	EsPagoDividido bool            `gorm:"not null;default:false"`
	CantidadPagos  int             `gorm:"not null;default:0"`

	Notas             *string
	MotivoCancelacion *string
	CanceladaPor      *uuid.UUID `gorm:"type:uuid"`
	CerradaAt         *time.Time
	PagadaAt          *time.Time
	CanceladaAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Items []OrdenItem `gorm:"foreignKey:OrdenID"`
	Pagos []Pago      `gorm:"foreignKey:OrdenID"`
}

func (Orden) TableName() string { return "ordenes" }

// EsTerminal reports whether no further transitions are possible.
func (o *Orden) EsTerminal() bool {
	return o.Estado == OrdenPagada || o.Estado == OrdenCancelada
}

// OrdenItem estados
const (
	ItemPendiente     = "PENDIENTE"
	ItemEnviado       = "ENVIADO"
	ItemEnPreparacion = "EN_PREPARACION"
	ItemListo         = "LISTO"
	ItemEntregado     = "ENTREGADO"
)

// VarianteSeleccionada is the snapshot of one chosen variant at add time.
type VarianteSeleccionada struct {
	VarianteID      uuid.UUID       `json:"variante_id"`
	GrupoID         uuid.UUID       `json:"grupo_id"`
	Nombre          string          `json:"nombre"`
	PrecioAdicional decimal.Decimal `json:"precio_adicional"`
}

// OrdenItem is one product line. Product data is copied at add time and never
// refreshed from the catalog.
type OrdenItem struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrdenID uuid.UUID `gorm:"type:uuid;not null;index"`

	ProductoID      uuid.UUID       `gorm:"type:uuid;not null"`
	ProductoNombre  string          `gorm:"not null"`
	NombreCorto     string          `gorm:"type:varchar(40)"`
	PrecioUnitario  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AreaPreparacion string          `gorm:"type:varchar(30)"`

	Cantidad       int                    `gorm:"not null"`
	CantidadPagada int                    `gorm:"not null;default:0"`
	MontoPagado    decimal.Decimal        `gorm:"type:decimal(12,2);not null;default:0"`
	Variantes      []VarianteSeleccionada `gorm:"type:jsonb;serializer:json"`
	TotalVariantes decimal.Decimal        `gorm:"type:decimal(12,2);not null;default:0"`
	// TotalLinea = (PrecioUnitario + TotalVariantes) * Cantidad
	TotalLinea decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Estado     string          `gorm:"type:varchar(20);not null;default:'PENDIENTE'"`
	Notas      *string

	Cancelado         bool       `gorm:"not null;default:false"`
	CanceladoPor      *uuid.UUID `gorm:"type:uuid"`
	CanceladoAt       *time.Time
	MotivoCancelacion *string

	Pagado   bool `gorm:"not null;default:false"`
	PagadoAt *time.Time
	// PagoID is the payment that settled the last unit.
	PagoID *uuid.UUID `gorm:"type:uuid"`

	CreadoPor uuid.UUID `gorm:"type:uuid;not null"`
	EnviadoAt *time.Time
	ImpresoAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OrdenItem) TableName() string { return "orden_items" }

// Activo reports whether the item still counts toward the subtotal.
func (i *OrdenItem) Activo() bool { return !i.Cancelado }

// PrecioConVariantes is the per-unit price including variant modifiers.
func (i *OrdenItem) PrecioConVariantes() decimal.Decimal {
	return i.PrecioUnitario.Add(i.TotalVariantes)
}

// CantidadRestante is the quantity not yet allocated to any payment.
func (i *OrdenItem) CantidadRestante() int {
	if i.Cancelado {
		return 0
	}
	return i.Cantidad - i.CantidadPagada
}

// MontoRestante is the line amount not yet allocated to any payment.
func (i *OrdenItem) MontoRestante() decimal.Decimal {
	if i.CantidadRestante() <= 0 {
		return decimal.Zero
	}
	resto := i.TotalLinea.Sub(i.MontoPagado)
	if resto.IsNegative() {
		return decimal.Zero
	}
	return resto
}
