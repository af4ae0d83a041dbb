package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sesion estados
const (
	CajaAbierta = "ABIERTA"
	CajaCerrada = "CERRADA"
)

// Movimiento tipos
const (
	MovimientoIngreso = "INGRESO"
	MovimientoEgreso  = "EGRESO"
)

// SesionCaja is one cashier shift. TotalVentas, TotalIngresos, TotalEgresos
// and MontoEsperado are re-aggregated from movimientos after every movement.
type SesionCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	MontoInicial decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// TotalVentas sums automatic INGRESO movements tied to a payment
	TotalVentas   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalIngresos decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalEgresos  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// MontoEsperado = MontoInicial + TotalVentas + TotalIngresos - TotalEgresos
	MontoEsperado decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	MontoFinal    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Diferencia    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DesvioPct     *decimal.Decimal `gorm:"type:decimal(7,2)"`
	// Clasificacion: "normal" | "advertencia" | "critico"
	Clasificacion *string `gorm:"type:varchar(20)"`
	Estado        string  `gorm:"type:varchar(20);not null;default:'ABIERTA'"`
	Notas         *string
	NotasCierre   *string
	OpenedAt      time.Time
	ClosedAt      *time.Time

	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

// MovimientoCaja is an immutable entry in the register ledger. Monto is
// always positive; Tipo gives the direction.
type MovimientoCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Tipo         string          `gorm:"type:varchar(20);not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Motivo       string          `gorm:"not null"`
	Automatico   bool            `gorm:"not null;default:false"`
	// PagoID links automatic entries to the payment that produced them
	PagoID        *uuid.UUID `gorm:"type:uuid;index"`
	MetodoPago    *string    `gorm:"type:varchar(20)"`
	RegistradoPor uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt     time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }
