package repository

import (
	"context"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogoRepository reads the rows owned by the catalog, floor and customer
// registries. Mesa.Estado is the only column written from here.
type CatalogoRepository interface {
	FindProducto(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	FindMesa(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Mesa, error)
	UpdateMesaEstado(ctx context.Context, tx *gorm.DB, id uuid.UUID, estado string) error
	FindCliente(ctx context.Context, id uuid.UUID) (*model.Cliente, error)
}

type catalogoRepo struct{ db *gorm.DB }

func NewCatalogoRepository(db *gorm.DB) CatalogoRepository { return &catalogoRepo{db: db} }

func (r *catalogoRepo) FindProducto(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).
		Preload("GruposVariante.Variantes", "activo = ?", true).
		First(&p, "id = ?", id).Error
	return &p, err
}

func (r *catalogoRepo) FindMesa(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Mesa, error) {
	var m model.Mesa
	err := conn(ctx, r.db, tx).Where("activo = ?", true).First(&m, "id = ?", id).Error
	return &m, err
}

func (r *catalogoRepo) UpdateMesaEstado(ctx context.Context, tx *gorm.DB, id uuid.UUID, estado string) error {
	return conn(ctx, r.db, tx).Model(&model.Mesa{}).Where("id = ?", id).Update("estado", estado).Error
}

func (r *catalogoRepo) FindCliente(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	var c model.Cliente
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return &c, err
}
