package repository

import (
	"context"
	"time"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VentaRepository interface {
	Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	FindForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Venta, error)
	ListByOrden(ctx context.Context, ordenID uuid.UUID) ([]model.Venta, error)
	// MarcarEnviando moves the document to ENVIANDO only when its current
	// status is one of desde, or when it has been ENVIANDO since before
	// vencido. Returns false if another caller got there first.
	MarcarEnviando(ctx context.Context, id uuid.UUID, desde []string, vencido time.Time) (bool, error)
	UpdateAutoridad(ctx context.Context, tx *gorm.DB, v *model.Venta) error

	CreateNotaCredito(ctx context.Context, tx *gorm.DB, n *model.NotaCredito) error
	FindNotaByVenta(ctx context.Context, tx *gorm.DB, ventaID uuid.UUID) (*model.NotaCredito, error)
	MarcarNotaEnviando(ctx context.Context, id uuid.UUID, desde []string, vencido time.Time) (bool, error)
	UpdateNotaAutoridad(ctx context.Context, n *model.NotaCredito) error

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

var autoridadColumns = []string{
	"estado_autoridad", "codigo_respuesta", "mensaje_autoridad", "intentos", "enviado_at", "aceptado_at",
}

func (r *ventaRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return conn(ctx, r.db, tx).Create(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).Preload("Items").First(&v, "id = ?", id).Error
	return &v, err
}

func (r *ventaRepo) FindForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := forUpdate(conn(ctx, r.db, tx)).First(&v, "id = ?", id).Error
	return &v, err
}

func (r *ventaRepo) ListByOrden(ctx context.Context, ordenID uuid.UUID) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.db.WithContext(ctx).Preload("Items").
		Where("orden_id = ?", ordenID).Order("created_at ASC").Find(&ventas).Error
	return ventas, err
}

func (r *ventaRepo) MarcarEnviando(ctx context.Context, id uuid.UUID, desde []string, vencido time.Time) (bool, error) {
	return marcarEnviando(r.db.WithContext(ctx).Model(&model.Venta{}), id, desde, vencido)
}

func marcarEnviando(q *gorm.DB, id uuid.UUID, desde []string, vencido time.Time) (bool, error) {
	res := q.Where("id = ? AND (estado_autoridad IN ? OR (estado_autoridad = ? AND (enviando_desde IS NULL OR enviando_desde < ?)))",
		id, desde, model.AutoridadEnviando, vencido).
		Updates(map[string]any{
			"estado_autoridad": model.AutoridadEnviando,
			"enviando_desde":   time.Now(),
			"intentos":         gorm.Expr("intentos + 1"),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *ventaRepo) UpdateAutoridad(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return conn(ctx, r.db, tx).Model(v).Select(autoridadColumns).Updates(v).Error
}

func (r *ventaRepo) CreateNotaCredito(ctx context.Context, tx *gorm.DB, n *model.NotaCredito) error {
	return conn(ctx, r.db, tx).Create(n).Error
}

func (r *ventaRepo) FindNotaByVenta(ctx context.Context, tx *gorm.DB, ventaID uuid.UUID) (*model.NotaCredito, error) {
	var n model.NotaCredito
	err := conn(ctx, r.db, tx).Where("venta_id = ?", ventaID).First(&n).Error
	return &n, err
}

func (r *ventaRepo) MarcarNotaEnviando(ctx context.Context, id uuid.UUID, desde []string, vencido time.Time) (bool, error) {
	return marcarEnviando(r.db.WithContext(ctx).Model(&model.NotaCredito{}), id, desde, vencido)
}

func (r *ventaRepo) UpdateNotaAutoridad(ctx context.Context, n *model.NotaCredito) error {
	return r.db.WithContext(ctx).Model(n).Select(autoridadColumns).Updates(n).Error
}
