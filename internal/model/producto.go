package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is a menu entry. Owned by the catalog; read-only here.
type Producto struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre      string          `gorm:"index;not null"`
	NombreCorto string          `gorm:"type:varchar(40)"`
	Precio      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	// AreaPreparacion routes the item to a prep station: "cocina" | "bar" | ...
	AreaPreparacion string `gorm:"type:varchar(30)"`
	Activo          bool   `gorm:"not null;default:true"`
	Disponible      bool   `gorm:"not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	GruposVariante []GrupoVariante `gorm:"foreignKey:ProductoID"`
}

// GrupoVariante groups alternative modifiers (size, cooking point, ...).
type GrupoVariante struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Nombre      string    `gorm:"not null"`
	Obligatorio bool      `gorm:"not null;default:false"`

	Variantes []Variante `gorm:"foreignKey:GrupoID"`
}

func (GrupoVariante) TableName() string { return "grupos_variante" }

type Variante struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GrupoID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Nombre          string          `gorm:"not null"`
	PrecioAdicional decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Activo          bool            `gorm:"not null;default:true"`
}

// Mesa estados
const (
	MesaLibre    = "LIBRE"
	MesaOcupada  = "OCUPADA"
	MesaLimpieza = "LIMPIEZA"
)

// Mesa is a floor table. Owned by the floor registry; the order ledger only
// reads capacity and moves Estado.
type Mesa struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Numero    int       `gorm:"not null;uniqueIndex"`
	Capacidad int       `gorm:"not null"`
	Estado    string    `gorm:"type:varchar(20);not null;default:'LIBRE'"`
	Activo    bool      `gorm:"not null;default:true"`
	UpdatedAt time.Time
}

// Tipos de documento de identidad
const (
	ClienteDNI = "DNI"
	ClienteRUC = "RUC"
	ClienteCE  = "CE"
)

// Cliente is the buyer referenced by boletas and facturas.
type Cliente struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TipoDocumento   string    `gorm:"type:varchar(10);not null"`
	NumeroDocumento string    `gorm:"type:varchar(20);not null;uniqueIndex"`
	RazonSocial     string    `gorm:"not null"`
	Direccion       *string
	CreatedAt       time.Time
}
