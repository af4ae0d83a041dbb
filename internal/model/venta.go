package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de documento
const (
	DocNotaVenta   = "NOTA_VENTA"
	DocBoleta      = "BOLETA"
	DocFactura     = "FACTURA"
	DocNotaCredito = "NOTA_CREDITO"
)

// Estados frente a la autoridad tributaria
const (
	AutoridadNoAplica  = "NO_APLICA"
	AutoridadPendiente = "PENDIENTE"
	AutoridadEnviando  = "ENVIANDO"
	AutoridadAceptado  = "ACEPTADO"
	AutoridadRechazado = "RECHAZADO"
	AutoridadObservado = "OBSERVADO"
	AutoridadAnulado   = "ANULADO"
)

// Venta is the fiscal document minted from exactly one Pago. Content is never
// edited after insert; only the authority tracking columns move.
type Venta struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PagoID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	OrdenID        uuid.UUID `gorm:"type:uuid;not null;index"`
	TipoDocumento  string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_venta_numero,priority:1"`
	Serie          string    `gorm:"type:varchar(4);not null;uniqueIndex:idx_venta_numero,priority:2"`
	Correlativo    int64     `gorm:"not null;uniqueIndex:idx_venta_numero,priority:3"`
	NumeroCompleto string    `gorm:"type:varchar(20);not null"`

	BaseImponible decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MontoImpuesto decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TasaImpuesto  decimal.Decimal `gorm:"type:decimal(5,4);not null"`

	// Buyer snapshot
	ClienteID              *uuid.UUID `gorm:"type:uuid"`
	ClienteTipoDocumento   *string    `gorm:"type:varchar(10)"`
	ClienteNumeroDocumento *string    `gorm:"type:varchar(20)"`
	ClienteNombre          *string
	ClienteDireccion       *string

	EstadoAutoridad  string  `gorm:"type:varchar(20);not null"`
	CodigoRespuesta  *string `gorm:"type:varchar(20)"`
	MensajeAutoridad *string
	Intentos         int `gorm:"not null;default:0"`
	EnviandoDesde    *time.Time
	EnviadoAt        *time.Time
	AceptadoAt       *time.Time

	EmitidoPor uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Items []VentaItem `gorm:"foreignKey:VentaID"`
}

// VentaItem is a line copied from the OrdenItem the payment covered.
type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrdenItemID    *uuid.UUID      `gorm:"type:uuid"`
	Descripcion    string          `gorm:"not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	BaseImponible  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MontoImpuesto  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// NotaCredito reverses one accepted Venta. Amounts are stored negated.
// TipoNota: "01" anulacion | "02" anulacion por error en RUC | "06" devolucion total
type NotaCredito struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	TipoNota       string    `gorm:"type:varchar(2);not null"`
	Motivo         string    `gorm:"not null"`
	Serie          string    `gorm:"type:varchar(4);not null;uniqueIndex:idx_nc_numero,priority:1"`
	Correlativo    int64     `gorm:"not null;uniqueIndex:idx_nc_numero,priority:2"`
	NumeroCompleto string    `gorm:"type:varchar(20);not null"`

	BaseImponible decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MontoImpuesto decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	EstadoAutoridad  string  `gorm:"type:varchar(20);not null;default:'PENDIENTE'"`
	CodigoRespuesta  *string `gorm:"type:varchar(20)"`
	MensajeAutoridad *string
	Intentos         int `gorm:"not null;default:0"`
	EnviandoDesde    *time.Time
	EnviadoAt        *time.Time
	AceptadoAt       *time.Time

	EmitidoPor uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (NotaCredito) TableName() string { return "notas_credito" }

// Correlativo is the counter behind every (TipoDocumento, Serie) numbering
// sequence, including the daily order numbers.
type Correlativo struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TipoDocumento string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_correlativo_clave,priority:1"`
	Serie         string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_correlativo_clave,priority:2"`
	UltimoNumero  int64     `gorm:"not null;default:0"`
	UpdatedAt     time.Time
}
