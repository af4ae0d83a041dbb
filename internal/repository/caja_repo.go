package repository

import (
	"context"
	"database/sql"

	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TotalesCaja are the per-direction sums of a session's movements.
type TotalesCaja struct {
	Ventas   decimal.Decimal
	Ingresos decimal.Decimal
	Egresos  decimal.Decimal
}

type CajaRepository interface {
	CreateSesion(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error
	FindAbiertaPorUsuario(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID) (*model.SesionCaja, error)
	FindSesionForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error)
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	UpdateSesion(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error
	CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoCaja) error
	ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error)
	Totales(ctx context.Context, tx *gorm.DB, sesionCajaID uuid.UUID) (TotalesCaja, error)
	SumMovimientosByMetodo(ctx context.Context, sesionCajaID uuid.UUID) (map[string]decimal.Decimal, error)
	DB() *gorm.DB
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) CreateSesion(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error {
	return conn(ctx, r.db, tx).Create(s).Error
}

func (r *cajaRepo) FindAbiertaPorUsuario(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := conn(ctx, r.db, tx).Where("usuario_id = ? AND estado = ?", usuarioID, model.CajaAbierta).First(&s).Error
	return &s, err
}

func (r *cajaRepo) FindSesionForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := forUpdate(conn(ctx, r.db, tx)).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).
		Preload("Movimientos", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *cajaRepo) UpdateSesion(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error {
	return conn(ctx, r.db, tx).Omit("Movimientos").Save(s).Error
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoCaja) error {
	return conn(ctx, r.db, tx).Create(m).Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).Where("sesion_caja_id = ?", sesionCajaID).Order("created_at ASC").Find(&movs).Error
	return movs, err
}

const totalesCajaSQL = `
SELECT
  COALESCE(SUM(monto) FILTER (WHERE tipo = 'INGRESO' AND automatico), 0)     AS ventas,
  COALESCE(SUM(monto) FILTER (WHERE tipo = 'INGRESO' AND NOT automatico), 0) AS ingresos,
  COALESCE(SUM(monto) FILTER (WHERE tipo = 'EGRESO'), 0)                     AS egresos
FROM movimientos_caja
WHERE sesion_caja_id = @id`

func (r *cajaRepo) Totales(ctx context.Context, tx *gorm.DB, sesionCajaID uuid.UUID) (TotalesCaja, error) {
	var t TotalesCaja
	err := conn(ctx, r.db, tx).Raw(totalesCajaSQL, sql.Named("id", sesionCajaID)).Scan(&t).Error
	return t, err
}

func (r *cajaRepo) SumMovimientosByMetodo(ctx context.Context, sesionCajaID uuid.UUID) (map[string]decimal.Decimal, error) {
	var rows []struct {
		MetodoPago string
		Total      decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&model.MovimientoCaja{}).
		Select("metodo_pago, SUM(monto) AS total").
		Where("sesion_caja_id = ? AND automatico AND metodo_pago IS NOT NULL", sesionCajaID).
		Group("metodo_pago").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.MetodoPago] = row.Total
	}
	return out, nil
}
