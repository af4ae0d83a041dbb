package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Metodos de pago
const (
	MetodoEfectivo      = "EFECTIVO"
	MetodoTarjeta       = "TARJETA"
	MetodoTransferencia = "TRANSFERENCIA"
	MetodoBilletera     = "BILLETERA"
)

// Tipos de pago
const (
	PagoSimple      = "SIMPLE"
	PagoDividido    = "DIVIDIDO"
	PagoIncremental = "INCREMENTAL"
)

// Pago is one settlement against an order. Immutable once created.
// Numero is dense per order starting at 1.
type Pago struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrdenID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_pago_orden_numero,priority:1"`
	Numero       int             `gorm:"not null;uniqueIndex:idx_pago_orden_numero,priority:2"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Tipo         string          `gorm:"type:varchar(20);not null"`
	Metodo       string          `gorm:"type:varchar(20);not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// MontoRecibido and Vuelto are set for EFECTIVO only
	MontoRecibido *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Vuelto        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	NombrePagador *string
	Notas         *string
	ProcesadoPor  uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt     time.Time

	Asignaciones []PagoAsignacion `gorm:"foreignKey:PagoID"`
}

// PagoAsignacion records how many units of an item a payment covered.
type PagoAsignacion struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PagoID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrdenItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cantidad    int             `gorm:"not null"`
	Monto       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (PagoAsignacion) TableName() string { return "pago_asignaciones" }
