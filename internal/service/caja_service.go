package service

import (
	"context"
	"time"

	"restopos/internal/apierror"
	"restopos/internal/dto"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CajaService interface {
	Abrir(ctx context.Context, actor Actor, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error)
	Cerrar(ctx context.Context, actor Actor, req dto.CerrarCajaRequest) (*dto.SesionCajaResponse, error)
	RegistrarMovimiento(ctx context.Context, actor Actor, req dto.MovimientoManualRequest) (*dto.MovimientoResponse, error)
	Activa(ctx context.Context, actor Actor) (*dto.ReporteCajaResponse, error)
	ObtenerReporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error)

	// SesionAbierta is called by PagoService before any payment is posted.
	SesionAbierta(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error)
	// RegistrarIngresoAutomaticoTx posts the INGRESO for a payment inside the
	// payment transaction.
	RegistrarIngresoAutomaticoTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID, pago *model.Pago) error
	RecalcularEsperadoTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID) (*model.SesionCaja, error)
}

type cajaService struct {
	repo   repository.CajaRepository
	reglas Reglas
}

func NewCajaService(repo repository.CajaRepository, reglas Reglas) CajaService {
	return &cajaService{repo: repo, reglas: reglas}
}

func errCajaRequerida() error {
	return apierror.Precondition("CASH_REGISTER_REQUIRED", "no hay una caja abierta para el usuario")
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, actor Actor, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error) {
	if req.MontoInicial.IsNegative() {
		return nil, apierror.Validation("INVALID_AMOUNT", "el monto inicial no puede ser negativo")
	}
	yaAbierta := func() error {
		return apierror.Conflict("CASH_REGISTER_ALREADY_OPEN", "el usuario ya tiene una caja abierta")
	}

	sesion := &model.SesionCaja{
		ID:            uuid.New(),
		UsuarioID:     actor.UsuarioID,
		MontoInicial:  req.MontoInicial.Round(2),
		MontoEsperado: req.MontoInicial.Round(2),
		Estado:        model.CajaAbierta,
		Notas:         req.Notas,
		OpenedAt:      time.Now(),
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if _, err := s.repo.FindAbiertaPorUsuario(ctx, tx, actor.UsuarioID); err == nil {
			return yaAbierta()
		} else if !isNotFound(err) {
			return err
		}
		// ux_sesiones_caja_usuario_abierta settles two opens racing past the check.
		if err := s.repo.CreateSesion(ctx, tx, sesion); err != nil {
			if isDuplicate(err) {
				return yaAbierta()
			}
			return err
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("sesion_caja_id", sesion.ID.String()).
		Str("usuario_id", actor.UsuarioID.String()).
		Str("monto_inicial", sesion.MontoInicial.StringFixed(2)).
		Msg("caja abierta")
	resp := sesionToResponse(sesion)
	return &resp, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Blind count: the deviation is computed only after the declared amount is in.

func (s *cajaService) Cerrar(ctx context.Context, actor Actor, req dto.CerrarCajaRequest) (*dto.SesionCajaResponse, error) {
	if req.MontoFinal.IsNegative() {
		return nil, apierror.Validation("INVALID_AMOUNT", "el monto final no puede ser negativo")
	}
	var sesion *model.SesionCaja
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		abierta, err := s.repo.FindAbiertaPorUsuario(ctx, tx, actor.UsuarioID)
		if err != nil {
			if isNotFound(err) {
				return apierror.NotFound("CASH_REGISTER_NOT_FOUND", "no hay una caja abierta para cerrar")
			}
			return err
		}
		sesion, err = s.RecalcularEsperadoTx(ctx, tx, abierta.ID)
		if err != nil {
			return err
		}
		if sesion.Estado != model.CajaAbierta {
			return apierror.NotFound("CASH_REGISTER_NOT_FOUND", "no hay una caja abierta para cerrar")
		}

		final := req.MontoFinal.Round(2)
		diferencia := final.Sub(sesion.MontoEsperado)
		pct := porcentajeDesvio(diferencia, sesion.MontoEsperado)
		clasificacion := clasificarDesvio(pct)
		now := time.Now()

		sesion.MontoFinal = &final
		sesion.Diferencia = &diferencia
		sesion.DesvioPct = &pct
		sesion.Clasificacion = &clasificacion
		sesion.NotasCierre = req.Notas
		sesion.Estado = model.CajaCerrada
		sesion.ClosedAt = &now
		return s.repo.UpdateSesion(ctx, tx, sesion)
	})
	if txErr != nil {
		return nil, txErr
	}

	ev := log.Info()
	if *sesion.Clasificacion == "critico" {
		ev = log.Warn()
	}
	ev.Str("sesion_caja_id", sesion.ID.String()).
		Str("esperado", sesion.MontoEsperado.StringFixed(2)).
		Str("diferencia", sesion.Diferencia.StringFixed(2)).
		Str("clasificacion", *sesion.Clasificacion).
		Msg("caja cerrada")
	resp := sesionToResponse(sesion)
	return &resp, nil
}

// ── Movimientos ───────────────────────────────────────────────────────────────
// Movements are immutable; there is no update or delete.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, actor Actor, req dto.MovimientoManualRequest) (*dto.MovimientoResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, apierror.Validation("INVALID_AMOUNT", "el monto debe ser mayor a cero")
	}
	if req.Tipo != model.MovimientoIngreso && req.Tipo != model.MovimientoEgreso {
		return nil, apierror.Validation("INVALID_MOVEMENT_TYPE", "tipo de movimiento %q invalido", req.Tipo)
	}
	mov := &model.MovimientoCaja{
		ID:            uuid.New(),
		Tipo:          req.Tipo,
		Monto:         req.Monto.Round(2),
		Motivo:        req.Motivo,
		RegistradoPor: actor.UsuarioID,
		CreatedAt:     time.Now(),
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		abierta, err := s.repo.FindAbiertaPorUsuario(ctx, tx, actor.UsuarioID)
		if err != nil {
			if isNotFound(err) {
				return errCajaRequerida()
			}
			return err
		}
		sesion, err := s.RecalcularEsperadoTx(ctx, tx, abierta.ID)
		if err != nil {
			return err
		}
		if sesion.Estado != model.CajaAbierta {
			return errCajaRequerida()
		}
		if mov.Tipo == model.MovimientoEgreso && sesion.MontoEsperado.Sub(mov.Monto).IsNegative() {
			return apierror.Validation("INSUFFICIENT_CASH", "el egreso de %s supera el saldo esperado de %s",
				mov.Monto.StringFixed(2), sesion.MontoEsperado.StringFixed(2)).
				With("balance", sesion.MontoEsperado.StringFixed(2))
		}
		mov.SesionCajaID = sesion.ID
		if err := s.repo.CreateMovimiento(ctx, tx, mov); err != nil {
			return err
		}
		_, err = s.RecalcularEsperadoTx(ctx, tx, sesion.ID)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	resp := movimientoToResponse(mov)
	return &resp, nil
}

func (s *cajaService) RegistrarIngresoAutomaticoTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID, pago *model.Pago) error {
	sesion, err := s.repo.FindSesionForUpdate(ctx, tx, sesionID)
	if err != nil {
		if isNotFound(err) {
			return errCajaRequerida()
		}
		return err
	}
	// The register may have been closed between pre-flight and this lock.
	if sesion.Estado != model.CajaAbierta {
		return errCajaRequerida()
	}
	metodo := pago.Metodo
	mov := &model.MovimientoCaja{
		ID:            uuid.New(),
		SesionCajaID:  sesion.ID,
		Tipo:          model.MovimientoIngreso,
		Monto:         pago.Monto,
		Motivo:        "Pago de orden",
		Automatico:    true,
		PagoID:        &pago.ID,
		MetodoPago:    &metodo,
		RegistradoPor: s.reglas.ActorSistema,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.CreateMovimiento(ctx, tx, mov); err != nil {
		return err
	}
	_, err = s.RecalcularEsperadoTx(ctx, tx, sesion.ID)
	return err
}

// RecalcularEsperadoTx rebuilds the register totals from its movements under
// the register row lock.
func (s *cajaService) RecalcularEsperadoTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionForUpdate(ctx, tx, sesionID)
	if err != nil {
		if isNotFound(err) {
			return nil, apierror.NotFound("CASH_REGISTER_NOT_FOUND", "caja %s no encontrada", sesionID)
		}
		return nil, err
	}
	if sesion.Estado != model.CajaAbierta {
		return sesion, nil
	}
	t, err := s.repo.Totales(ctx, tx, sesionID)
	if err != nil {
		return nil, err
	}
	sesion.TotalVentas = t.Ventas
	sesion.TotalIngresos = t.Ingresos
	sesion.TotalEgresos = t.Egresos
	sesion.MontoEsperado = montoEsperado(sesion.MontoInicial, t)
	if err := s.repo.UpdateSesion(ctx, tx, sesion); err != nil {
		return nil, err
	}
	return sesion, nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *cajaService) SesionAbierta(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindAbiertaPorUsuario(ctx, nil, usuarioID)
	if err != nil {
		if isNotFound(err) {
			return nil, errCajaRequerida()
		}
		return nil, err
	}
	return sesion, nil
}

func (s *cajaService) Activa(ctx context.Context, actor Actor) (*dto.ReporteCajaResponse, error) {
	sesion, err := s.repo.FindAbiertaPorUsuario(ctx, nil, actor.UsuarioID)
	if err != nil {
		if isNotFound(err) {
			return nil, apierror.NotFound("CASH_REGISTER_NOT_FOUND", "no hay una caja abierta")
		}
		return nil, err
	}
	return s.ObtenerReporte(ctx, sesion.ID)
}

func (s *cajaService) ObtenerReporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		if isNotFound(err) {
			return nil, apierror.NotFound("CASH_REGISTER_NOT_FOUND", "caja %s no encontrada", sesionID)
		}
		return nil, err
	}
	porMetodo, err := s.repo.SumMovimientosByMetodo(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	reporte := &dto.ReporteCajaResponse{
		SesionCajaResponse: sesionToResponse(sesion),
		VentasPorMetodo:    porMetodo,
		Movimientos:        make([]dto.MovimientoResponse, 0, len(sesion.Movimientos)),
	}
	for i := range sesion.Movimientos {
		reporte.Movimientos = append(reporte.Movimientos, movimientoToResponse(&sesion.Movimientos[i]))
	}
	return reporte, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func montoEsperado(inicial decimal.Decimal, t repository.TotalesCaja) decimal.Decimal {
	return inicial.Add(t.Ventas).Add(t.Ingresos).Sub(t.Egresos)
}

func porcentajeDesvio(diferencia, esperado decimal.Decimal) decimal.Decimal {
	if esperado.IsZero() {
		return decimal.Zero
	}
	return diferencia.Div(esperado).Mul(decimal.NewFromInt(100)).Round(2)
}

// clasificarDesvio returns "normal" | "advertencia" | "critico"
// normal: |desvio| <= 1%, advertencia: <= 5%, critico: > 5%
func clasificarDesvio(pct decimal.Decimal) string {
	abs := pct.Abs()
	one := decimal.NewFromInt(1)
	five := decimal.NewFromInt(5)
	switch {
	case abs.LessThanOrEqual(one):
		return "normal"
	case abs.LessThanOrEqual(five):
		return "advertencia"
	default:
		return "critico"
	}
}
