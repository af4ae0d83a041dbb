package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock, mockDB
}

func expectContador(mock sqlmock.Sqlmock, id uuid.UUID, ultimo int64) {
	mock.ExpectQuery(`INSERT INTO "correlativos" .* ON CONFLICT .* DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "correlativos" WHERE tipo_documento = \$1 AND serie = \$2 .* FOR UPDATE`).
		WithArgs("BOLETA", "B001", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tipo_documento", "serie", "ultimo_numero"}).
			AddRow(id, "BOLETA", "B001", ultimo))
}

func TestCorrelativoReservar_AvanzaTrasEscribir(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewCorrelativoRepository(db)
	id := uuid.New()

	expectContador(mock, id, 41)
	mock.ExpectExec(`UPDATE "correlativos" SET "ultimo_numero"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var visto int64
	n, err := repo.Reservar(context.Background(), db, "BOLETA", "B001", func(numero int64) error {
		visto = numero
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.Equal(t, int64(42), visto)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrelativoReservar_EscrituraFallidaNoAvanza(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewCorrelativoRepository(db)

	expectContador(mock, uuid.New(), 7)

	boom := errors.New("duplicate sale")
	_, err := repo.Reservar(context.Background(), db, "BOLETA", "B001", func(int64) error { return boom })
	assert.ErrorIs(t, err, boom)
	// No UPDATE was issued.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrelativoReservar_FilaDesaparecida(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewCorrelativoRepository(db)

	expectContador(mock, uuid.New(), 0)
	mock.ExpectExec(`UPDATE "correlativos"`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Reservar(context.Background(), db, "BOLETA", "B001", func(int64) error { return nil })
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrelativoUltimo_SinContador(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewCorrelativoRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "correlativos"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ultimo_numero"}))

	n, err := repo.Ultimo(context.Background(), "ORDEN", "2026-10-14")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
