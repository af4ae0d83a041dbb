package service

import (
	"time"

	"restopos/internal/config"
	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Series holds the numbering series per document type.
type Series struct {
	NotaVenta string
	Boleta    string
	Factura   string
	NCBoleta  string
	NCFactura string
}

// Para returns the series a document type is numbered in.
func (s Series) Para(tipo string) string {
	switch tipo {
	case model.DocNotaVenta:
		return s.NotaVenta
	case model.DocFactura:
		return s.Factura
	default:
		return s.Boleta
	}
}

// NotaCreditoPara returns the credit-note series for a reversed document type.
func (s Series) NotaCreditoPara(tipoOriginal string) string {
	if tipoOriginal == model.DocFactura {
		return s.NCFactura
	}
	return s.NCBoleta
}

type Emisor struct {
	RUC         string
	RazonSocial string
	Direccion   string
}

// Reglas are the business parameters every service reads.
type Reglas struct {
	Zona             *time.Location
	TasaImpuesto     decimal.Decimal
	Tolerancia       decimal.Decimal
	VentanaAnulacion time.Duration
	// EnvioVencido is how long a document may sit in ENVIANDO before a resend
	// may take it over.
	EnvioVencido time.Duration
	// ActorSistema is recorded on movements no user posted directly.
	ActorSistema uuid.UUID
	Series       Series
	Emisor       Emisor
}

func ReglasDesdeConfig(cfg *config.Config) Reglas {
	return Reglas{
		Zona:             cfg.Location(),
		TasaImpuesto:     cfg.TaxRateDecimal(),
		Tolerancia:       cfg.SplitToleranceDecimal(),
		VentanaAnulacion: time.Duration(cfg.VoidWindowDays) * 24 * time.Hour,
		EnvioVencido:     cfg.AutoridadSubmitStale,
		ActorSistema:     cfg.SystemActor(),
		Series: Series{
			NotaVenta: cfg.SerieNotaVenta,
			Boleta:    cfg.SerieBoleta,
			Factura:   cfg.SerieFactura,
			NCBoleta:  cfg.SerieNCBoleta,
			NCFactura: cfg.SerieNCFactura,
		},
		Emisor: Emisor{
			RUC:         cfg.EmisorRUC,
			RazonSocial: cfg.EmisorRazonSocial,
			Direccion:   cfg.EmisorDireccion,
		},
	}
}

// correlativoOrden is the counter key behind daily order numbers.
const correlativoOrden = "ORDEN"
