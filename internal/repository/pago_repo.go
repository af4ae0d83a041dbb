package repository

import (
	"context"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PagoRepository interface {
	// Create inserts the payment together with its asignaciones.
	Create(ctx context.Context, tx *gorm.DB, p *model.Pago) error
	CountByOrden(ctx context.Context, tx *gorm.DB, ordenID uuid.UUID) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Pago, error)
	ListByOrden(ctx context.Context, ordenID uuid.UUID) ([]model.Pago, error)
}

type pagoRepo struct{ db *gorm.DB }

func NewPagoRepository(db *gorm.DB) PagoRepository { return &pagoRepo{db: db} }

func (r *pagoRepo) Create(ctx context.Context, tx *gorm.DB, p *model.Pago) error {
	return conn(ctx, r.db, tx).Create(p).Error
}

func (r *pagoRepo) CountByOrden(ctx context.Context, tx *gorm.DB, ordenID uuid.UUID) (int64, error) {
	var n int64
	err := conn(ctx, r.db, tx).Model(&model.Pago{}).Where("orden_id = ?", ordenID).Count(&n).Error
	return n, err
}

func (r *pagoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Pago, error) {
	var p model.Pago
	err := r.db.WithContext(ctx).Preload("Asignaciones").First(&p, "id = ?", id).Error
	return &p, err
}

func (r *pagoRepo) ListByOrden(ctx context.Context, ordenID uuid.UUID) ([]model.Pago, error) {
	var pagos []model.Pago
	err := r.db.WithContext(ctx).Preload("Asignaciones").
		Where("orden_id = ?", ordenID).Order("numero ASC").Find(&pagos).Error
	return pagos, err
}
