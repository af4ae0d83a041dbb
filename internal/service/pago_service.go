package service

import (
	"context"
	"strconv"
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

type PagoService interface {
	RegistrarSimple(ctx context.Context, actor Actor, req dto.PagoSimpleRequest) (*dto.RegistrarPagoResponse, error)
	RegistrarDividido(ctx context.Context, actor Actor, req dto.PagoDivididoRequest) (*dto.RegistrarPagosResponse, error)
	RegistrarIncremental(ctx context.Context, actor Actor, req dto.PagoIncrementalRequest) (*dto.RegistrarPagosResponse, error)
	ListarPorOrden(ctx context.Context, ordenID uuid.UUID) ([]dto.PagoResponse, error)
}

type pagoService struct {
	pagos       repository.PagoRepository
	ordenes     repository.OrdenRepository
	ordenSvc    OrdenService
	caja        CajaService
	facturacion FacturacionService
	reglas      Reglas
}

func NewPagoService(
	pagos repository.PagoRepository,
	ordenes repository.OrdenRepository,
	ordenSvc OrdenService,
	caja CajaService,
	facturacion FacturacionService,
	reglas Reglas,
) PagoService {
	return &pagoService{
		pagos:       pagos,
		ordenes:     ordenes,
		ordenSvc:    ordenSvc,
		caja:        caja,
		facturacion: facturacion,
		reglas:      reglas,
	}
}

// pagoPlaneado is one payment fully validated and allocated, ready to write.
type pagoPlaneado struct {
	datos        dto.DatosPago
	monto        decimal.Decimal
	recibido     *decimal.Decimal
	vuelto       *decimal.Decimal
	documento    *SolicitudDocumento
	asignaciones []model.PagoAsignacion
}

// estadoCobro is what the allocation step sees, read under the order lock.
type estadoCobro struct {
	orden     *model.Orden
	items     map[uuid.UUID]*model.OrdenItem // every item of the order
	activos   []*model.OrdenItem             // non-cancelled, in creation order
	pendiente decimal.Decimal
	// sinAsignar was collected by partial simple payments and is tied to no item.
	sinAsignar decimal.Decimal
}

type resultadoCobro struct {
	pagos  []*model.Pago
	ventas []*model.Venta
	orden  *model.Orden
}

// ── Simple ────────────────────────────────────────────────────────────────────

func (s *pagoService) RegistrarSimple(ctx context.Context, actor Actor, req dto.PagoSimpleRequest) (*dto.RegistrarPagoResponse, error) {
	ordenID, err := uuid.Parse(req.OrdenID)
	if err != nil {
		return nil, apierror.Validation("INVALID_ORDER_ID", "order_id invalido")
	}
	plan, err := s.prepararDatos(ctx, 0, req.DatosPago)
	if err != nil {
		return nil, err
	}

	res, err := s.registrar(ctx, actor, ordenID, model.PagoSimple, []*pagoPlaneado{plan}, func(ec *estadoCobro) error {
		if plan.monto.GreaterThan(ec.pendiente) {
			return errExcedePendiente(plan.monto, ec)
		}
		// Only a payment that settles the order is allocated to items; a
		// partial simple payment reduces the pending amount only.
		if plan.monto.Equal(ec.pendiente) {
			plan.asignaciones = asignarRestante(ec.activos, plan.monto)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.RegistrarPagoResponse{
		Pago:  pagoToResponse(res.pagos[0]),
		Orden: ordenToResumen(res.orden),
	}
	if ventas := s.enviarVentas(ctx, res.ventas); len(ventas) > 0 {
		resp.Venta = &ventas[0]
	}
	return resp, nil
}

// asignarRestante covers every unpaid unit. Amounts follow the remaining line
// amounts, capped by what the payment still has, and the last allocation
// takes whatever is left so the allocations add up to monto.
func asignarRestante(activos []*model.OrdenItem, monto decimal.Decimal) []model.PagoAsignacion {
	var porCubrir []*model.OrdenItem
	for _, it := range activos {
		if it.CantidadRestante() > 0 {
			porCubrir = append(porCubrir, it)
		}
	}
	out := make([]model.PagoAsignacion, 0, len(porCubrir))
	resto := monto
	for i, it := range porCubrir {
		m := decimal.Min(it.MontoRestante(), resto)
		if i == len(porCubrir)-1 {
			m = resto
		}
		resto = resto.Sub(m)
		out = append(out, model.PagoAsignacion{
			ID:          uuid.New(),
			OrdenItemID: it.ID,
			Cantidad:    it.CantidadRestante(),
			Monto:       m,
		})
	}
	return out
}

// ── Dividido ──────────────────────────────────────────────────────────────────

func (s *pagoService) RegistrarDividido(ctx context.Context, actor Actor, req dto.PagoDivididoRequest) (*dto.RegistrarPagosResponse, error) {
	ordenID, err := uuid.Parse(req.OrdenID)
	if err != nil {
		return nil, apierror.Validation("INVALID_ORDER_ID", "order_id invalido")
	}
	if len(req.Pagos) < 2 {
		return nil, apierror.Validation("SPLIT_REQUIRES_TWO", "un pago dividido requiere al menos dos pagadores")
	}
	planes := make([]*pagoPlaneado, 0, len(req.Pagos))
	cobertura := make([][]uuid.UUID, 0, len(req.Pagos))
	for i, p := range req.Pagos {
		plan, err := s.prepararDatos(ctx, i, p.DatosPago)
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, 0, len(p.ItemIDs))
		for _, raw := range p.ItemIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, apierror.Validation("INVALID_ITEM_ID", "item %q invalido", raw)
			}
			ids = append(ids, id)
		}
		planes = append(planes, plan)
		cobertura = append(cobertura, ids)
	}

	res, err := s.registrar(ctx, actor, ordenID, model.PagoDividido, planes, func(ec *estadoCobro) error {
		return planificarDividido(ec, planes, cobertura, s.reglas.Tolerancia)
	})
	if err != nil {
		return nil, err
	}
	return s.respuestaLote(ctx, res), nil
}

// planificarDividido checks that the payers partition the unpaid items and
// that every payment matches the items it covers.
func planificarDividido(ec *estadoCobro, planes []*pagoPlaneado, cobertura [][]uuid.UUID, tolerancia decimal.Decimal) error {
	visto := make(map[uuid.UUID]bool)
	totalCubierto, totalPagos := decimal.Zero, decimal.Zero

	for i, ids := range cobertura {
		cubierto := decimal.Zero
		for _, id := range ids {
			it, ok := ec.items[id]
			if !ok {
				return apierror.NotFound("ITEM_NOT_FOUND", "item %s no pertenece a la orden", id)
			}
			if it.Cancelado || it.CantidadRestante() <= 0 {
				return apierror.Validation("ITEM_NOT_PAYABLE", "el item %s esta cancelado o ya pagado", it.ProductoNombre).
					With("item_id", id.String())
			}
			if visto[id] {
				return apierror.Validation("DUPLICATE_ITEM_COVERAGE", "el item %s esta asignado a mas de un pagador", it.ProductoNombre).
					With("item_id", id.String())
			}
			visto[id] = true
			planes[i].asignaciones = append(planes[i].asignaciones, model.PagoAsignacion{
				ID:          uuid.New(),
				OrdenItemID: id,
				Cantidad:    it.CantidadRestante(),
				Monto:       it.MontoRestante(),
			})
			cubierto = cubierto.Add(it.MontoRestante())
		}
		if !dentroDeTolerancia(planes[i].monto, cubierto, tolerancia) {
			return apierror.Validation("SPLIT_TOTAL_MISMATCH", "el pago %d es %s pero sus items suman %s",
				i+1, planes[i].monto.StringFixed(2), cubierto.StringFixed(2)).
				With("payment_index", strconv.Itoa(i)).
				With("items_total", cubierto.StringFixed(2))
		}
		totalCubierto = totalCubierto.Add(cubierto)
		totalPagos = totalPagos.Add(planes[i].monto)
	}

	faltantes := 0
	for _, it := range ec.activos {
		if it.CantidadRestante() > 0 && !visto[it.ID] {
			faltantes++
		}
	}
	if faltantes > 0 {
		return apierror.Validation("SPLIT_COVERAGE_INCOMPLETE", "%d items activos no estan asignados a ningun pagador", faltantes).
			With("missing_items", strconv.Itoa(faltantes))
	}
	if !dentroDeTolerancia(totalPagos, totalCubierto, tolerancia) {
		return apierror.Validation("SPLIT_TOTAL_MISMATCH", "los pagos suman %s y los items %s",
			totalPagos.StringFixed(2), totalCubierto.StringFixed(2)).
			With("items_total", totalCubierto.StringFixed(2))
	}
	return nil
}

// ── Incremental ───────────────────────────────────────────────────────────────

type asignacionSolicitada struct {
	itemID   uuid.UUID
	cantidad int
	monto    *decimal.Decimal
}

func (s *pagoService) RegistrarIncremental(ctx context.Context, actor Actor, req dto.PagoIncrementalRequest) (*dto.RegistrarPagosResponse, error) {
	ordenID, err := uuid.Parse(req.OrdenID)
	if err != nil {
		return nil, apierror.Validation("INVALID_ORDER_ID", "order_id invalido")
	}
	if len(req.Pagos) == 0 {
		return nil, apierror.Validation("PAYMENTS_REQUIRED", "indique al menos un pago")
	}
	planes := make([]*pagoPlaneado, 0, len(req.Pagos))
	solicitudes := make([][]asignacionSolicitada, 0, len(req.Pagos))
	for i, p := range req.Pagos {
		plan, err := s.prepararDatos(ctx, i, p.DatosPago)
		if err != nil {
			return nil, err
		}
		sol := make([]asignacionSolicitada, 0, len(p.Asignaciones))
		for _, a := range p.Asignaciones {
			id, err := uuid.Parse(a.ItemID)
			if err != nil {
				return nil, apierror.Validation("INVALID_ITEM_ID", "item %q invalido", a.ItemID)
			}
			if a.Cantidad < 1 {
				return nil, apierror.Validation("INVALID_QUANTITY", "la cantidad asignada debe ser mayor a cero")
			}
			sol = append(sol, asignacionSolicitada{itemID: id, cantidad: a.Cantidad, monto: a.Monto})
		}
		planes = append(planes, plan)
		solicitudes = append(solicitudes, sol)
	}

	res, err := s.registrar(ctx, actor, ordenID, model.PagoIncremental, planes, func(ec *estadoCobro) error {
		return planificarIncremental(ec, planes, solicitudes, s.reglas.Tolerancia)
	})
	if err != nil {
		return nil, err
	}
	return s.respuestaLote(ctx, res), nil
}

// planificarIncremental walks the batch against a server-side ledger of
// remaining units per item, so one unit can never be allocated twice.
func planificarIncremental(ec *estadoCobro, planes []*pagoPlaneado, solicitudes [][]asignacionSolicitada, tolerancia decimal.Decimal) error {
	restante := make(map[uuid.UUID]int, len(ec.activos))
	montoRestante := make(map[uuid.UUID]decimal.Decimal, len(ec.activos))
	for _, it := range ec.activos {
		restante[it.ID] = it.CantidadRestante()
		montoRestante[it.ID] = it.MontoRestante()
	}

	total := decimal.Zero
	for i, sol := range solicitudes {
		asignado := decimal.Zero
		for _, a := range sol {
			it, ok := ec.items[a.itemID]
			if !ok {
				return apierror.NotFound("ITEM_NOT_FOUND", "item %s no pertenece a la orden", a.itemID)
			}
			if it.Cancelado || it.Pagado {
				return apierror.Validation("ITEM_NOT_PAYABLE", "el item %s esta cancelado o ya pagado", it.ProductoNombre).
					With("item_id", a.itemID.String())
			}
			if a.cantidad > restante[a.itemID] {
				return apierror.Validation("QUANTITY_EXCEEDS_REMAINING", "%s: se piden %d unidades y quedan %d",
					it.ProductoNombre, a.cantidad, restante[a.itemID]).
					With("item_id", a.itemID.String()).
					With("quantity_remaining", strconv.Itoa(restante[a.itemID]))
			}

			// The units that close the line take the exact remaining amount.
			esperado := it.PrecioConVariantes().Mul(decimal.NewFromInt(int64(a.cantidad))).Round(2)
			if a.cantidad == restante[a.itemID] {
				esperado = montoRestante[a.itemID]
			}
			monto := esperado
			if a.monto != nil {
				if !dentroDeTolerancia(*a.monto, esperado, tolerancia) {
					return apierror.Validation("ALLOCATION_AMOUNT_MISMATCH", "%s x%d vale %s, no %s",
						it.ProductoNombre, a.cantidad, esperado.StringFixed(2), a.monto.StringFixed(2)).
						With("item_id", a.itemID.String()).
						With("expected_amount", esperado.StringFixed(2))
				}
				monto = a.monto.Round(2)
			}

			restante[a.itemID] -= a.cantidad
			montoRestante[a.itemID] = maxCero(montoRestante[a.itemID].Sub(monto))
			asignado = asignado.Add(monto)
			planes[i].asignaciones = append(planes[i].asignaciones, model.PagoAsignacion{
				ID:          uuid.New(),
				OrdenItemID: a.itemID,
				Cantidad:    a.cantidad,
				Monto:       monto,
			})
		}
		if !dentroDeTolerancia(planes[i].monto, asignado, tolerancia) {
			return apierror.Validation("PAYMENT_ALLOCATION_MISMATCH", "el pago %d es %s pero sus asignaciones suman %s",
				i+1, planes[i].monto.StringFixed(2), asignado.StringFixed(2)).
				With("payment_index", strconv.Itoa(i)).
				With("allocated_total", asignado.StringFixed(2))
		}
		total = total.Add(planes[i].monto)
	}

	// A batch that allocates the last unit must also settle the order, or the
	// order would be left owing money with nothing left to allocate.
	for _, it := range ec.activos {
		if restante[it.ID] > 0 {
			return nil
		}
	}
	if !dentroDeTolerancia(total, ec.pendiente, tolerancia) {
		return apierror.Validation("SETTLEMENT_MISMATCH", "se asignan todas las unidades pero los pagos suman %s y el saldo es %s",
			total.StringFixed(2), ec.pendiente.StringFixed(2)).
			With("pending", ec.pendiente.StringFixed(2)).
			With("payments_total", total.StringFixed(2)).
			With("unallocated_paid", ec.sinAsignar.StringFixed(2))
	}
	return nil
}

// ── Nucleo comun ──────────────────────────────────────────────────────────────

// prepararDatos validates the per-payer fields that need no order state.
func (s *pagoService) prepararDatos(ctx context.Context, idx int, d dto.DatosPago) (*pagoPlaneado, error) {
	switch d.Metodo {
	case model.MetodoEfectivo, model.MetodoTarjeta, model.MetodoTransferencia, model.MetodoBilletera:
	default:
		return nil, apierror.Validation("INVALID_PAYMENT_METHOD", "metodo de pago %q invalido", d.Metodo)
	}
	if !d.Monto.IsPositive() || !d.Monto.Equal(d.Monto.Round(2)) {
		return nil, apierror.Validation("INVALID_AMOUNT", "el monto debe ser positivo y con dos decimales como maximo").
			With("payment_index", strconv.Itoa(idx))
	}
	plan := &pagoPlaneado{datos: d, monto: d.Monto}

	if d.Metodo == model.MetodoEfectivo {
		recibido := d.Monto
		if d.MontoRecibido != nil {
			recibido = d.MontoRecibido.Round(2)
		}
		if recibido.LessThan(d.Monto) {
			return nil, apierror.Validation("INSUFFICIENT_CASH", "el efectivo recibido %s no cubre %s",
				recibido.StringFixed(2), d.Monto.StringFixed(2)).
				With("payment_index", strconv.Itoa(idx)).
				With("amount_required", d.Monto.StringFixed(2))
		}
		vuelto := recibido.Sub(d.Monto)
		plan.recibido, plan.vuelto = &recibido, &vuelto
	}

	doc, err := s.facturacion.ResolverDocumento(ctx, d.GenerarDocumento, d.TipoDocumento, d.ClienteID)
	if err != nil {
		return nil, err
	}
	plan.documento = doc
	return plan, nil
}

// errExcedePendiente reports the numbers a caller needs to retry. When part of
// the order was paid without item allocations, item-based modes see line
// amounts above the pending balance; only a simple payment can settle it.
func errExcedePendiente(monto decimal.Decimal, ec *estadoCobro) error {
	if ec.sinAsignar.IsPositive() {
		return apierror.Validation("AMOUNT_EXCEEDS_PENDING",
			"el monto %s supera el saldo pendiente de %s; %s ya se cobro sin asignar a items, cobre el saldo con un pago simple",
			monto.StringFixed(2), ec.pendiente.StringFixed(2), ec.sinAsignar.StringFixed(2)).
			With("pending", ec.pendiente.StringFixed(2)).
			With("amount", monto.StringFixed(2)).
			With("unallocated_paid", ec.sinAsignar.StringFixed(2))
	}
	return apierror.Validation("AMOUNT_EXCEEDS_PENDING", "el monto %s supera el saldo pendiente de %s",
		monto.StringFixed(2), ec.pendiente.StringFixed(2)).
		With("pending", ec.pendiente.StringFixed(2)).
		With("amount", monto.StringFixed(2))
}

// registrar runs the shared payment transaction. Lock order is order row,
// register row, then the document counter.
func (s *pagoService) registrar(
	ctx context.Context,
	actor Actor,
	ordenID uuid.UUID,
	tipo string,
	planes []*pagoPlaneado,
	asignar func(ec *estadoCobro) error,
) (*resultadoCobro, error) {
	sesion, err := s.caja.SesionAbierta(ctx, actor.UsuarioID)
	if err != nil {
		return nil, err
	}

	res := &resultadoCobro{}
	txErr := runTx(ctx, s.ordenes.DB(), func(tx *gorm.DB) error {
		ec, err := s.cargarEstado(ctx, tx, ordenID)
		if err != nil {
			return err
		}
		if err := asignar(ec); err != nil {
			return err
		}
		total := decimal.Zero
		for _, p := range planes {
			total = total.Add(p.monto)
		}
		if total.GreaterThan(ec.pendiente) {
			return errExcedePendiente(total, ec)
		}

		// Validation is over; from here on any error rolls everything back.
		previos, err := s.pagos.CountByOrden(ctx, tx, ordenID)
		if err != nil {
			return err
		}
		now := time.Now()
		for i, plan := range planes {
			pago := &model.Pago{
				ID:            uuid.New(),
				OrdenID:       ordenID,
				Numero:        int(previos) + i + 1,
				SesionCajaID:  sesion.ID,
				Tipo:          tipo,
				Metodo:        plan.datos.Metodo,
				Monto:         plan.monto,
				MontoRecibido: plan.recibido,
				Vuelto:        plan.vuelto,
				NombrePagador: plan.datos.NombrePagador,
				Notas:         plan.datos.Notas,
				ProcesadoPor:  actor.UsuarioID,
				CreatedAt:     now,
				Asignaciones:  plan.asignaciones,
			}
			for j := range pago.Asignaciones {
				pago.Asignaciones[j].PagoID = pago.ID
			}
			if err := s.pagos.Create(ctx, tx, pago); err != nil {
				return err
			}
			if err := s.marcarCubiertos(ctx, tx, ec, pago, now); err != nil {
				return err
			}
			if err := s.caja.RegistrarIngresoAutomaticoTx(ctx, tx, sesion.ID, pago); err != nil {
				return err
			}
			if plan.documento != nil {
				v, err := s.facturacion.EmitirTx(ctx, tx, actor, pago, ec.items, plan.documento)
				if err != nil {
					return err
				}
				res.ventas = append(res.ventas, v)
			}
			res.pagos = append(res.pagos, pago)
		}

		res.orden, err = s.ordenSvc.RecalcularTx(ctx, tx, ordenID)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	for _, p := range res.pagos {
		log.Info().
			Str("pago_id", p.ID.String()).
			Str("orden_id", ordenID.String()).
			Int("numero", p.Numero).
			Str("tipo", p.Tipo).
			Str("metodo", p.Metodo).
			Str("monto", p.Monto.StringFixed(2)).
			Msg("pago registrado")
	}
	return res, nil
}

func (s *pagoService) cargarEstado(ctx context.Context, tx *gorm.DB, ordenID uuid.UUID) (*estadoCobro, error) {
	o, err := s.ordenes.FindForUpdate(ctx, tx, ordenID)
	if err != nil {
		if isNotFound(err) {
			return nil, errOrdenNoEncontrada(ordenID)
		}
		return nil, err
	}
	if o.Estado != model.OrdenCerrada {
		return nil, apierror.InvalidState("ORDER_NOT_PAYABLE", "solo se cobran ordenes CERRADA; estado actual %s", o.Estado).
			With("status", o.Estado)
	}
	items, err := s.ordenes.ListItems(ctx, tx, ordenID)
	if err != nil {
		return nil, err
	}
	ec := &estadoCobro{orden: o, items: make(map[uuid.UUID]*model.OrdenItem, len(items))}
	for i := range items {
		it := &items[i]
		ec.items[it.ID] = it
		if it.Activo() {
			ec.activos = append(ec.activos, it)
		}
	}
	if len(ec.activos) == 0 {
		return nil, apierror.InvalidState("ORDER_EMPTY", "la orden no tiene items activos")
	}
	agg, err := s.ordenes.Agregados(ctx, tx, ordenID)
	if err != nil {
		return nil, err
	}
	ec.pendiente = maxCero(agg.Subtotal.Sub(agg.TotalPagado))
	asignado := decimal.Zero
	for _, it := range items {
		asignado = asignado.Add(it.MontoPagado)
	}
	ec.sinAsignar = maxCero(agg.TotalPagado.Sub(asignado))
	if ec.pendiente.IsZero() {
		return nil, apierror.InvalidState("ORDER_ALREADY_PAID", "la orden no tiene saldo pendiente")
	}
	return ec, nil
}

// marcarCubiertos advances the paid quantity of every allocated item.
func (s *pagoService) marcarCubiertos(ctx context.Context, tx *gorm.DB, ec *estadoCobro, pago *model.Pago, now time.Time) error {
	for _, a := range pago.Asignaciones {
		it := ec.items[a.OrdenItemID]
		it.CantidadPagada += a.Cantidad
		it.MontoPagado = it.MontoPagado.Add(a.Monto)
		if it.CantidadPagada >= it.Cantidad {
			it.CantidadPagada = it.Cantidad
			it.Pagado = true
			it.PagadoAt = &now
			it.PagoID = &pago.ID
		}
		if err := s.ordenes.UpdateItem(ctx, tx, it); err != nil {
			return err
		}
	}
	return nil
}

// enviarVentas submits freshly minted documents. Failures are logged and the
// document stays retriable; the payment is already committed.
func (s *pagoService) enviarVentas(ctx context.Context, ventas []*model.Venta) []dto.VentaResponse {
	out := make([]dto.VentaResponse, 0, len(ventas))
	for _, v := range ventas {
		resp, err := s.facturacion.Enviar(ctx, v.ID)
		if err != nil {
			log.Warn().Err(err).Str("venta", v.NumeroCompleto).Msg("no se pudo enviar el documento")
			resp = ventaToResponse(v)
		}
		out = append(out, *resp)
	}
	return out
}

func (s *pagoService) respuestaLote(ctx context.Context, res *resultadoCobro) *dto.RegistrarPagosResponse {
	resp := &dto.RegistrarPagosResponse{
		Pagos:  make([]dto.PagoResponse, 0, len(res.pagos)),
		Ventas: s.enviarVentas(ctx, res.ventas),
		Orden:  ordenToResumen(res.orden),
	}
	for _, p := range res.pagos {
		resp.Pagos = append(resp.Pagos, pagoToResponse(p))
	}
	return resp
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *pagoService) ListarPorOrden(ctx context.Context, ordenID uuid.UUID) ([]dto.PagoResponse, error) {
	if _, err := s.ordenes.FindByID(ctx, ordenID); err != nil {
		if isNotFound(err) {
			return nil, errOrdenNoEncontrada(ordenID)
		}
		return nil, err
	}
	pagos, err := s.pagos.ListByOrden(ctx, ordenID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PagoResponse, 0, len(pagos))
	for i := range pagos {
		out = append(out, pagoToResponse(&pagos[i]))
	}
	return out, nil
}
