package repository

import (
	"context"
	"database/sql"

	"restopos/internal/dto"
	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrdenAgregados is the source-of-truth snapshot the order totals derive from.
type OrdenAgregados struct {
	Subtotal       decimal.Decimal
	TotalCancelado decimal.Decimal
	ItemsActivos   int64
	ItemsPorPagar  int64
	TotalPagado    decimal.Decimal
	CantidadPagos  int64
}

type OrdenRepository interface {
	Create(ctx context.Context, tx *gorm.DB, o *model.Orden) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Orden, error)
	FindForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Orden, error)
	FindActivaByMesa(ctx context.Context, tx *gorm.DB, mesaID uuid.UUID) (*model.Orden, error)
	// UpdateEstado writes lifecycle columns only; totals belong to UpdateTotales.
	UpdateEstado(ctx context.Context, tx *gorm.DB, o *model.Orden) error
	UpdateTotales(ctx context.Context, tx *gorm.DB, o *model.Orden) error
	Agregados(ctx context.Context, tx *gorm.DB, ordenID uuid.UUID) (OrdenAgregados, error)
	List(ctx context.Context, filter dto.OrdenFilter) ([]model.Orden, int64, error)

	CreateItem(ctx context.Context, tx *gorm.DB, it *model.OrdenItem) error
	FindItem(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.OrdenItem, error)
	ListItems(ctx context.Context, tx *gorm.DB, ordenID uuid.UUID) ([]model.OrdenItem, error)
	UpdateItem(ctx context.Context, tx *gorm.DB, it *model.OrdenItem) error
	DeleteItem(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type ordenRepo struct{ db *gorm.DB }

func NewOrdenRepository(db *gorm.DB) OrdenRepository { return &ordenRepo{db: db} }

func (r *ordenRepo) DB() *gorm.DB { return r.db }

func (r *ordenRepo) Create(ctx context.Context, tx *gorm.DB, o *model.Orden) error {
	return conn(ctx, r.db, tx).Create(o).Error
}

func (r *ordenRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Orden, error) {
	var o model.Orden
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&o, "id = ?", id).Error
	return &o, err
}

func (r *ordenRepo) FindForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Orden, error) {
	var o model.Orden
	err := forUpdate(conn(ctx, r.db, tx)).First(&o, "id = ?", id).Error
	return &o, err
}

func (r *ordenRepo) FindActivaByMesa(ctx context.Context, tx *gorm.DB, mesaID uuid.UUID) (*model.Orden, error) {
	var o model.Orden
	err := conn(ctx, r.db, tx).
		Where("mesa_id = ? AND estado IN ?", mesaID, []string{model.OrdenAbierta, model.OrdenCerrada}).
		First(&o).Error
	return &o, err
}

func (r *ordenRepo) UpdateEstado(ctx context.Context, tx *gorm.DB, o *model.Orden) error {
	return conn(ctx, r.db, tx).Model(o).
		Select("estado", "notas", "motivo_cancelacion", "cancelada_por", "cerrada_at", "cancelada_at").
		Updates(o).Error
}

func (r *ordenRepo) UpdateTotales(ctx context.Context, tx *gorm.DB, o *model.Orden) error {
	return conn(ctx, r.db, tx).Model(o).
		Select("subtotal", "total_cancelado", "total_pagado", "total_pendiente",
			"es_pago_dividido", "cantidad_pagos", "estado", "pagada_at").
		Updates(o).Error
}

const agregadosSQL = `
SELECT
  COALESCE((SELECT SUM(total_linea) FROM orden_items WHERE orden_id = @id AND cancelado = false), 0) AS subtotal,
  COALESCE((SELECT SUM(total_linea) FROM orden_items WHERE orden_id = @id AND cancelado = true), 0)  AS total_cancelado,
  (SELECT COUNT(*) FROM orden_items WHERE orden_id = @id AND cancelado = false)                      AS items_activos,
  (SELECT COUNT(*) FROM orden_items WHERE orden_id = @id AND cancelado = false AND pagado = false)    AS items_por_pagar,
  COALESCE((SELECT SUM(monto) FROM pagos WHERE orden_id = @id), 0)                                   AS total_pagado,
  (SELECT COUNT(*) FROM pagos WHERE orden_id = @id)                                                  AS cantidad_pagos`

func (r *ordenRepo) Agregados(ctx context.Context, tx *gorm.DB, ordenID uuid.UUID) (OrdenAgregados, error) {
	var a OrdenAgregados
	err := conn(ctx, r.db, tx).Raw(agregadosSQL, sql.Named("id", ordenID)).Scan(&a).Error
	return a, err
}

func (r *ordenRepo) List(ctx context.Context, filter dto.OrdenFilter) ([]model.Orden, int64, error) {
	var ordenes []model.Orden
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Orden{})
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.MesaID != "" {
		q = q.Where("mesa_id = ?", filter.MesaID)
	}
	if filter.Fecha != "" {
		q = q.Where("fecha = ?", filter.Fecha)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&ordenes).Error
	return ordenes, total, err
}

func (r *ordenRepo) CreateItem(ctx context.Context, tx *gorm.DB, it *model.OrdenItem) error {
	return conn(ctx, r.db, tx).Create(it).Error
}

func (r *ordenRepo) FindItem(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.OrdenItem, error) {
	var it model.OrdenItem
	err := conn(ctx, r.db, tx).First(&it, "id = ?", id).Error
	return &it, err
}

func (r *ordenRepo) ListItems(ctx context.Context, tx *gorm.DB, ordenID uuid.UUID) ([]model.OrdenItem, error) {
	var items []model.OrdenItem
	err := conn(ctx, r.db, tx).Where("orden_id = ?", ordenID).Order("created_at ASC").Find(&items).Error
	return items, err
}

func (r *ordenRepo) UpdateItem(ctx context.Context, tx *gorm.DB, it *model.OrdenItem) error {
	return conn(ctx, r.db, tx).Save(it).Error
}

func (r *ordenRepo) DeleteItem(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return conn(ctx, r.db, tx).Delete(&model.OrdenItem{}, "id = ?", id).Error
}
