package repository

import (
	"context"
	"errors"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CorrelativoRepository interface {
	// Reservar locks the (tipo, serie) counter, hands the next number to
	// escribir and advances the counter only if escribir succeeds. Concurrent
	// callers on the same key block until the holder's transaction ends.
	Reservar(ctx context.Context, tx *gorm.DB, tipo, serie string, escribir func(numero int64) error) (int64, error)
	Ultimo(ctx context.Context, tipo, serie string) (int64, error)
}

type correlativoRepo struct{ db *gorm.DB }

func NewCorrelativoRepository(db *gorm.DB) CorrelativoRepository {
	return &correlativoRepo{db: db}
}

func (r *correlativoRepo) Reservar(ctx context.Context, tx *gorm.DB, tipo, serie string, escribir func(numero int64) error) (int64, error) {
	if tx != nil {
		return r.reservar(tx.WithContext(ctx), tipo, serie, escribir)
	}
	var numero int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := r.reservar(tx, tipo, serie, escribir)
		numero = n
		return err
	})
	return numero, err
}

func (r *correlativoRepo) reservar(tx *gorm.DB, tipo, serie string, escribir func(numero int64) error) (int64, error) {
	// Find-or-create the counter row; a concurrent creator wins silently.
	seed := model.Correlativo{ID: uuid.New(), TipoDocumento: tipo, Serie: serie}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tipo_documento"}, {Name: "serie"}},
		DoNothing: true,
	}).Create(&seed).Error
	if err != nil {
		return 0, err
	}

	var c model.Correlativo
	err = forUpdate(tx).Where("tipo_documento = ? AND serie = ?", tipo, serie).First(&c).Error
	if err != nil {
		return 0, err
	}

	next := c.UltimoNumero + 1
	if err := escribir(next); err != nil {
		return 0, err
	}

	res := tx.Model(&model.Correlativo{}).Where("id = ?", c.ID).Update("ultimo_numero", next)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected != 1 {
		return 0, errors.New("correlativo: counter row vanished during reservation")
	}
	return next, nil
}

func (r *correlativoRepo) Ultimo(ctx context.Context, tipo, serie string) (int64, error) {
	var c model.Correlativo
	err := r.db.WithContext(ctx).Where("tipo_documento = ? AND serie = ?", tipo, serie).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return c.UltimoNumero, err
}
