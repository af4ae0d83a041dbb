package infra

import (
	"fmt"

	"restopos/internal/config"
	"restopos/internal/model"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the postgres pool. TranslateError is required: services
// rely on gorm.ErrDuplicatedKey to turn unique violations into conflicts.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if cfg.OtelEnabled {
		if err := db.Use(otelgorm.NewPlugin(
			otelgorm.WithDBName("postgresql"),
			otelgorm.WithoutQueryVariables(),
		)); err != nil {
			return nil, fmt.Errorf("otelgorm: %w", err)
		}
	}

	if cfg.AutoMigrate {
		if err := RunMigrations(db); err != nil {
			return nil, err
		}
	} else if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}
	return db, nil
}

// Models lists every table owned or read by the service, in FK order.
func Models() []any {
	return []any{
		&model.Producto{},
		&model.GrupoVariante{},
		&model.Variante{},
		&model.Mesa{},
		&model.Cliente{},
		&model.Orden{},
		&model.OrdenItem{},
		&model.Pago{},
		&model.PagoAsignacion{},
		&model.SesionCaja{},
		&model.MovimientoCaja{},
		&model.Venta{},
		&model.VentaItem{},
		&model.NotaCredito{},
		&model.Correlativo{},
	}
}

// RunMigrations creates the schema and then applies the patches. Used at
// startup when AUTO_MIGRATE is set and by the integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that struct tags cannot express.
// The partial unique indexes are the last line behind the locked existence
// checks in the services.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"one active order per table", `
DO $$ BEGIN
  IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'ordenes')
     AND NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'ux_ordenes_mesa_activa') THEN
    CREATE UNIQUE INDEX ux_ordenes_mesa_activa
        ON ordenes (mesa_id)
        WHERE estado IN ('ABIERTA', 'CERRADA');
  END IF;
END $$`},
		{"one open register per user", `
DO $$ BEGIN
  IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'sesiones_caja')
     AND NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'ux_sesiones_caja_usuario_abierta') THEN
    CREATE UNIQUE INDEX ux_sesiones_caja_usuario_abierta
        ON sesiones_caja (usuario_id)
        WHERE estado = 'ABIERTA';
  END IF;
END $$`},
		{"positive movement amounts", `
DO $$ BEGIN
  IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'movimientos_caja')
     AND NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_movimientos_caja_monto') THEN
    ALTER TABLE movimientos_caja ADD CONSTRAINT chk_movimientos_caja_monto CHECK (monto > 0);
  END IF;
END $$`},
		{"paid quantity within item quantity", `
DO $$ BEGIN
  IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'orden_items')
     AND NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_orden_items_cantidad_pagada') THEN
    ALTER TABLE orden_items ADD CONSTRAINT chk_orden_items_cantidad_pagada
        CHECK (cantidad_pagada >= 0 AND cantidad_pagada <= cantidad);
  END IF;
END $$`},
		{"retriable sales by authority status", `
DO $$ BEGIN
  IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'ventas')
     AND NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_ventas_reenviables') THEN
    CREATE INDEX idx_ventas_reenviables
        ON ventas (estado_autoridad)
        WHERE estado_autoridad IN ('PENDIENTE', 'RECHAZADO', 'OBSERVADO');
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
