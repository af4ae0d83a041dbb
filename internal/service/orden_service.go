package service

import (
	"context"
	"strconv"
	"strings"
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

type OrdenService interface {
	Abrir(ctx context.Context, actor Actor, req dto.AbrirOrdenRequest) (*dto.OrdenResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.OrdenResponse, error)
	Listar(ctx context.Context, filter dto.OrdenFilter) (*dto.OrdenListResponse, error)
	AgregarItem(ctx context.Context, actor Actor, ordenID uuid.UUID, req dto.AgregarItemRequest) (*dto.AgregarItemResponse, error)
	EliminarItem(ctx context.Context, actor Actor, ordenID, itemID uuid.UUID) (*dto.OrdenResponse, error)
	CambiarEstadoItem(ctx context.Context, actor Actor, itemID uuid.UUID, req dto.CambiarEstadoItemRequest) (*dto.OrdenItemResponse, error)
	CancelarItem(ctx context.Context, actor Actor, itemID uuid.UUID, req dto.CancelarItemRequest) (*dto.OrdenItemResponse, error)
	EnviarACocina(ctx context.Context, actor Actor, ordenID uuid.UUID) (*dto.EnviarCocinaResponse, error)
	Cerrar(ctx context.Context, actor Actor, ordenID uuid.UUID) (*dto.OrdenResponse, error)
	Cancelar(ctx context.Context, actor Actor, ordenID uuid.UUID, req dto.CancelarOrdenRequest) (*dto.OrdenResponse, error)
	Recalcular(ctx context.Context, ordenID uuid.UUID) (*dto.OrdenResponse, error)
	Saldos(ctx context.Context, ordenID uuid.UUID) (*dto.SaldosResponse, error)

	// RecalcularTx is the only writer of the derived order totals. The caller
	// must already hold, or be about to take, the order row lock inside tx.
	RecalcularTx(ctx context.Context, tx *gorm.DB, ordenID uuid.UUID) (*model.Orden, error)
}

type ordenService struct {
	repo         repository.OrdenRepository
	catalogo     repository.CatalogoRepository
	correlativos repository.CorrelativoRepository
	reglas       Reglas
}

func NewOrdenService(
	repo repository.OrdenRepository,
	catalogo repository.CatalogoRepository,
	correlativos repository.CorrelativoRepository,
	reglas Reglas,
) OrdenService {
	return &ordenService{
		repo:         repo,
		catalogo:     catalogo,
		correlativos: correlativos,
		reglas:       reglas,
	}
}

func errOrdenNoEncontrada(id uuid.UUID) error {
	return apierror.NotFound("ORDER_NOT_FOUND", "orden %s no encontrada", id)
}

func (s *ordenService) bloquearOrden(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Orden, error) {
	o, err := s.repo.FindForUpdate(ctx, tx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errOrdenNoEncontrada(id)
		}
		return nil, err
	}
	return o, nil
}

// itemDeOrden loads an item and its order, with the order row locked.
func (s *ordenService) itemDeOrden(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*model.OrdenItem, *model.Orden, error) {
	it, err := s.repo.FindItem(ctx, tx, itemID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, apierror.NotFound("ITEM_NOT_FOUND", "item %s no encontrado", itemID)
		}
		return nil, nil, err
	}
	o, err := s.bloquearOrden(ctx, tx, it.OrdenID)
	if err != nil {
		return nil, nil, err
	}
	// Re-read under the lock.
	it, err = s.repo.FindItem(ctx, tx, itemID)
	if err != nil {
		return nil, nil, err
	}
	return it, o, nil
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *ordenService) Abrir(ctx context.Context, actor Actor, req dto.AbrirOrdenRequest) (*dto.OrdenResponse, error) {
	mesaID, err := uuid.Parse(req.MesaID)
	if err != nil {
		return nil, apierror.Validation("INVALID_TABLE_ID", "table_id invalido")
	}
	mesa, err := s.catalogo.FindMesa(ctx, nil, mesaID)
	if err != nil {
		if isNotFound(err) {
			return nil, apierror.NotFound("TABLE_NOT_FOUND", "mesa %s no encontrada", mesaID)
		}
		return nil, err
	}
	if req.Comensales < 1 || req.Comensales > mesa.Capacidad {
		return nil, apierror.Validation("DINERS_EXCEED_CAPACITY", "la mesa %d admite hasta %d comensales", mesa.Numero, mesa.Capacidad).
			With("capacity", strconv.Itoa(mesa.Capacidad))
	}

	ocupada := func() error {
		return apierror.Conflict("TABLE_OCCUPIED", "la mesa %d ya tiene una orden activa", mesa.Numero)
	}

	now := time.Now()
	orden := &model.Orden{
		ID:         uuid.New(),
		Fecha:      now.In(s.reglas.Zona).Format("2006-01-02"),
		MesaID:     mesaID,
		MozoID:     actor.UsuarioID,
		Comensales: req.Comensales,
		Estado:     model.OrdenAbierta,
		Notas:      req.Notas,
		CreatedAt:  now,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		_, err := s.correlativos.Reservar(ctx, tx, correlativoOrden, orden.Fecha, func(numero int64) error {
			// Checked under the daily counter lock; the partial unique index
			// on ordenes(mesa_id) catches anything that slips past.
			if _, err := s.repo.FindActivaByMesa(ctx, tx, mesaID); err == nil {
				return ocupada()
			} else if !isNotFound(err) {
				return err
			}
			orden.NumeroDiario = numero
			if err := s.repo.Create(ctx, tx, orden); err != nil {
				if isDuplicate(err) {
					return ocupada()
				}
				return err
			}
			return nil
		})
		if err != nil {
			return err
		}
		return s.catalogo.UpdateMesaEstado(ctx, tx, mesaID, model.MesaOcupada)
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("orden_id", orden.ID.String()).
		Int64("numero_diario", orden.NumeroDiario).
		Int("mesa", mesa.Numero).
		Msg("orden abierta")
	return ordenToResponse(orden), nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *ordenService) Obtener(ctx context.Context, id uuid.UUID) (*dto.OrdenResponse, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errOrdenNoEncontrada(id)
		}
		return nil, err
	}
	return ordenToResponse(o), nil
}

func (s *ordenService) Listar(ctx context.Context, filter dto.OrdenFilter) (*dto.OrdenListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	ordenes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	resp := &dto.OrdenListResponse{
		Data:  make([]dto.OrdenResponse, 0, len(ordenes)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range ordenes {
		resp.Data = append(resp.Data, *ordenToResponse(&ordenes[i]))
	}
	return resp, nil
}

// Saldos lists what is still payable per active item.
func (s *ordenService) Saldos(ctx context.Context, ordenID uuid.UUID) (*dto.SaldosResponse, error) {
	o, err := s.repo.FindByID(ctx, ordenID)
	if err != nil {
		if isNotFound(err) {
			return nil, errOrdenNoEncontrada(ordenID)
		}
		return nil, err
	}
	resp := &dto.SaldosResponse{
		OrdenID:        o.ID.String(),
		Estado:         o.Estado,
		TotalPendiente: o.TotalPendiente,
		Items:          []dto.SaldoItemResponse{},
	}
	for i := range o.Items {
		it := &o.Items[i]
		if !it.Activo() {
			continue
		}
		resp.Items = append(resp.Items, dto.SaldoItemResponse{
			ItemID:           it.ID.String(),
			Nombre:           it.ProductoNombre,
			Cantidad:         it.Cantidad,
			CantidadPagada:   it.CantidadPagada,
			CantidadRestante: it.CantidadRestante(),
			PrecioEfectivo:   it.PrecioConVariantes(),
			MontoRestante:    it.MontoRestante(),
		})
	}
	return resp, nil
}

// ── Items ─────────────────────────────────────────────────────────────────────

func (s *ordenService) AgregarItem(ctx context.Context, actor Actor, ordenID uuid.UUID, req dto.AgregarItemRequest) (*dto.AgregarItemResponse, error) {
	productoID, err := uuid.Parse(req.ProductoID)
	if err != nil {
		return nil, apierror.Validation("INVALID_PRODUCT_ID", "product_id invalido")
	}
	if req.Cantidad < 1 {
		return nil, apierror.Validation("INVALID_QUANTITY", "la cantidad debe ser mayor a cero")
	}
	p, err := s.catalogo.FindProducto(ctx, productoID)
	if err != nil {
		if isNotFound(err) {
			return nil, apierror.NotFound("PRODUCT_NOT_FOUND", "producto %s no encontrado", productoID)
		}
		return nil, err
	}
	if !p.Activo || !p.Disponible {
		return nil, apierror.InvalidState("PRODUCT_UNAVAILABLE", "el producto %s no esta disponible", p.Nombre)
	}
	variantes, err := resolverVariantes(p, req.Variantes)
	if err != nil {
		return nil, err
	}

	totalVariantes := decimal.Zero
	for _, v := range variantes {
		totalVariantes = totalVariantes.Add(v.PrecioAdicional)
	}
	cantidad := decimal.NewFromInt(int64(req.Cantidad))

	item := &model.OrdenItem{
		ID:              uuid.New(),
		OrdenID:         ordenID,
		ProductoID:      p.ID,
		ProductoNombre:  p.Nombre,
		NombreCorto:     p.NombreCorto,
		PrecioUnitario:  p.Precio,
		AreaPreparacion: p.AreaPreparacion,
		Cantidad:        req.Cantidad,
		Variantes:       variantes,
		TotalVariantes:  totalVariantes,
		TotalLinea:      p.Precio.Add(totalVariantes).Mul(cantidad).Round(2),
		Estado:          model.ItemPendiente,
		Notas:           req.Notas,
		CreadoPor:       actor.UsuarioID,
		CreatedAt:       time.Now(),
	}

	var orden *model.Orden
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		o, err := s.bloquearOrden(ctx, tx, ordenID)
		if err != nil {
			return err
		}
		if o.Estado != model.OrdenAbierta {
			return apierror.InvalidState("ORDER_NOT_OPEN", "la orden esta %s; solo se agregan items a ordenes ABIERTA", o.Estado).
				With("status", o.Estado)
		}
		if err := s.repo.CreateItem(ctx, tx, item); err != nil {
			return err
		}
		orden, err = s.RecalcularTx(ctx, tx, ordenID)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return &dto.AgregarItemResponse{
		OrdenItemResponse: itemToResponse(item),
		OrdenSubtotal:     orden.Subtotal,
	}, nil
}

// resolverVariantes snapshots the selected variants and checks that every
// required group has a selection.
func resolverVariantes(p *model.Producto, ids []string) ([]model.VarianteSeleccionada, error) {
	seleccion := make([]model.VarianteSeleccionada, 0, len(ids))
	gruposConSeleccion := make(map[uuid.UUID]bool)

	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apierror.Validation("INVALID_VARIANT_ID", "variante %q invalida", raw)
		}
		found := false
		for _, g := range p.GruposVariante {
			for _, v := range g.Variantes {
				if v.ID != id {
					continue
				}
				seleccion = append(seleccion, model.VarianteSeleccionada{
					VarianteID:      v.ID,
					GrupoID:         g.ID,
					Nombre:          v.Nombre,
					PrecioAdicional: v.PrecioAdicional,
				})
				gruposConSeleccion[g.ID] = true
				found = true
			}
		}
		if !found {
			return nil, apierror.Validation("VARIANT_NOT_FOUND", "la variante %s no pertenece a %s", id, p.Nombre)
		}
	}

	var faltantes []string
	for _, g := range p.GruposVariante {
		if g.Obligatorio && !gruposConSeleccion[g.ID] {
			faltantes = append(faltantes, g.Nombre)
		}
	}
	if len(faltantes) > 0 {
		return nil, apierror.Validation("REQUIRED_VARIANT_MISSING", "%s requiere seleccionar: %s", p.Nombre, strings.Join(faltantes, ", ")).
			With("groups", strings.Join(faltantes, ","))
	}
	return seleccion, nil
}

func (s *ordenService) EliminarItem(ctx context.Context, actor Actor, ordenID, itemID uuid.UUID) (*dto.OrdenResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		it, o, err := s.itemDeOrden(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if o.ID != ordenID {
			return apierror.NotFound("ITEM_NOT_FOUND", "item %s no pertenece a la orden %s", itemID, ordenID)
		}
		if o.Estado != model.OrdenAbierta {
			return apierror.InvalidState("ORDER_NOT_OPEN", "la orden esta %s", o.Estado)
		}
		if it.Estado != model.ItemPendiente || it.EnviadoAt != nil || it.Cancelado {
			return apierror.InvalidState("ITEM_NOT_DELETABLE", "solo se eliminan items PENDIENTE no enviados; use cancelar").
				With("status", it.Estado)
		}
		if err := s.repo.DeleteItem(ctx, tx, itemID); err != nil {
			return err
		}
		_, err = s.RecalcularTx(ctx, tx, ordenID)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	log.Info().Str("orden_id", ordenID.String()).Str("item_id", itemID.String()).
		Str("usuario_id", actor.UsuarioID.String()).Msg("item eliminado")
	return s.Obtener(ctx, ordenID)
}

func (s *ordenService) CambiarEstadoItem(ctx context.Context, actor Actor, itemID uuid.UUID, req dto.CambiarEstadoItemRequest) (*dto.OrdenItemResponse, error) {
	destino := strings.ToUpper(strings.TrimSpace(req.Estado))
	var item *model.OrdenItem
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		it, o, err := s.itemDeOrden(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if o.Estado == model.OrdenCancelada {
			return apierror.InvalidState("ORDER_CANCELLED", "la orden %s esta cancelada", o.ID)
		}
		if err := validarTransicion(it, destino, actor); err != nil {
			return err
		}
		it.Estado = destino
		if destino == model.ItemEnviado && it.EnviadoAt == nil {
			now := time.Now()
			it.EnviadoAt = &now
		}
		item = it
		return s.repo.UpdateItem(ctx, tx, it)
	})
	if txErr != nil {
		return nil, txErr
	}
	resp := itemToResponse(item)
	return &resp, nil
}

func (s *ordenService) CancelarItem(ctx context.Context, actor Actor, itemID uuid.UUID, req dto.CancelarItemRequest) (*dto.OrdenItemResponse, error) {
	motivo := strings.TrimSpace(req.Motivo)
	var item *model.OrdenItem
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		it, o, err := s.itemDeOrden(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if o.EsTerminal() {
			return apierror.InvalidState("ORDER_TERMINAL", "la orden esta %s", o.Estado)
		}
		switch {
		case it.Cancelado:
			return apierror.InvalidState("ITEM_ALREADY_CANCELLED", "el item ya esta cancelado")
		case it.Pagado || it.CantidadPagada > 0:
			return apierror.InvalidState("ITEM_PAID", "el item tiene unidades pagadas y no puede cancelarse").
				With("quantity_paid", strconv.Itoa(it.CantidadPagada))
		case it.Estado == model.ItemEntregado:
			return apierror.InvalidState("ITEM_DELIVERED", "el item ya fue entregado")
		}
		enviado := it.EnviadoAt != nil || it.Estado != model.ItemPendiente
		if enviado && motivo == "" {
			return apierror.Validation("CANCEL_REASON_REQUIRED", "el item ya fue enviado a preparacion; indique el motivo")
		}
		marcarCancelado(it, actor.UsuarioID, motivo, time.Now())
		if err := s.repo.UpdateItem(ctx, tx, it); err != nil {
			return err
		}
		item = it
		_, err = s.RecalcularTx(ctx, tx, o.ID)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	resp := itemToResponse(item)
	return &resp, nil
}

func marcarCancelado(it *model.OrdenItem, por uuid.UUID, motivo string, at time.Time) {
	it.Cancelado = true
	it.CanceladoPor = &por
	it.CanceladoAt = &at
	if motivo != "" {
		it.MotivoCancelacion = &motivo
	}
}

// EnviarACocina sends every pending item of the order to preparation.
func (s *ordenService) EnviarACocina(ctx context.Context, actor Actor, ordenID uuid.UUID) (*dto.EnviarCocinaResponse, error) {
	resp := &dto.EnviarCocinaResponse{Items: []dto.OrdenItemResponse{}}
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		o, err := s.bloquearOrden(ctx, tx, ordenID)
		if err != nil {
			return err
		}
		if o.EsTerminal() {
			return apierror.InvalidState("ORDER_TERMINAL", "la orden esta %s", o.Estado)
		}
		items, err := s.repo.ListItems(ctx, tx, ordenID)
		if err != nil {
			return err
		}
		now := time.Now()
		for i := range items {
			it := &items[i]
			if it.Cancelado || it.Estado != model.ItemPendiente {
				continue
			}
			if err := validarTransicion(it, model.ItemEnviado, actor); err != nil {
				return err
			}
			it.Estado = model.ItemEnviado
			it.EnviadoAt = &now
			if err := s.repo.UpdateItem(ctx, tx, it); err != nil {
				return err
			}
			resp.Items = append(resp.Items, itemToResponse(it))
		}
		resp.Enviados = len(resp.Items)
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return resp, nil
}

// ── Ciclo de vida ─────────────────────────────────────────────────────────────

func (s *ordenService) Cerrar(ctx context.Context, actor Actor, ordenID uuid.UUID) (*dto.OrdenResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		o, err := s.bloquearOrden(ctx, tx, ordenID)
		if err != nil {
			return err
		}
		if o.Estado != model.OrdenAbierta {
			return apierror.InvalidState("ORDER_NOT_OPEN", "solo se cierran ordenes ABIERTA; estado actual %s", o.Estado).
				With("status", o.Estado)
		}
		agg, err := s.repo.Agregados(ctx, tx, ordenID)
		if err != nil {
			return err
		}
		if agg.ItemsActivos == 0 {
			return apierror.InvalidState("ORDER_EMPTY", "la orden no tiene items activos")
		}
		now := time.Now()
		o.Estado = model.OrdenCerrada
		o.CerradaAt = &now
		if err := s.repo.UpdateEstado(ctx, tx, o); err != nil {
			return err
		}
		_, err = s.RecalcularTx(ctx, tx, ordenID)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.Obtener(ctx, ordenID)
}

func (s *ordenService) Cancelar(ctx context.Context, actor Actor, ordenID uuid.UUID, req dto.CancelarOrdenRequest) (*dto.OrdenResponse, error) {
	motivo := strings.TrimSpace(req.Motivo)
	if motivo == "" {
		return nil, apierror.Validation("CANCEL_REASON_REQUIRED", "indique el motivo de la cancelacion")
	}
	var orden *model.Orden
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		o, err := s.bloquearOrden(ctx, tx, ordenID)
		if err != nil {
			return err
		}
		if o.EsTerminal() {
			return apierror.InvalidState("ORDER_TERMINAL", "la orden ya esta %s", o.Estado).
				With("status", o.Estado)
		}
		items, err := s.repo.ListItems(ctx, tx, ordenID)
		if err != nil {
			return err
		}
		now := time.Now()
		for i := range items {
			it := &items[i]
			if it.Cancelado || it.Pagado || it.CantidadPagada > 0 {
				continue
			}
			marcarCancelado(it, actor.UsuarioID, motivo, now)
			if err := s.repo.UpdateItem(ctx, tx, it); err != nil {
				return err
			}
		}
		o.Estado = model.OrdenCancelada
		o.MotivoCancelacion = &motivo
		o.CanceladaPor = &actor.UsuarioID
		o.CanceladaAt = &now
		if err := s.repo.UpdateEstado(ctx, tx, o); err != nil {
			return err
		}
		if orden, err = s.RecalcularTx(ctx, tx, ordenID); err != nil {
			return err
		}
		return s.catalogo.UpdateMesaEstado(ctx, tx, o.MesaID, model.MesaLibre)
	})
	if txErr != nil {
		return nil, txErr
	}

	ev := log.Info()
	if orden.TotalPagado.IsPositive() {
		ev = log.Warn().Str("total_pagado", orden.TotalPagado.StringFixed(2))
	}
	ev.Str("orden_id", ordenID.String()).Str("motivo", motivo).Msg("orden cancelada")
	return s.Obtener(ctx, ordenID)
}

// ── Recalculo ─────────────────────────────────────────────────────────────────

func (s *ordenService) Recalcular(ctx context.Context, ordenID uuid.UUID) (*dto.OrdenResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		_, err := s.RecalcularTx(ctx, tx, ordenID)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.Obtener(ctx, ordenID)
}

func (s *ordenService) RecalcularTx(ctx context.Context, tx *gorm.DB, ordenID uuid.UUID) (*model.Orden, error) {
	o, err := s.bloquearOrden(ctx, tx, ordenID)
	if err != nil {
		return nil, err
	}
	agg, err := s.repo.Agregados(ctx, tx, ordenID)
	if err != nil {
		return nil, err
	}
	pagada := aplicarAgregados(o, agg, s.reglas.Tolerancia, time.Now())
	if err := s.repo.UpdateTotales(ctx, tx, o); err != nil {
		return nil, err
	}
	if pagada {
		if err := s.catalogo.UpdateMesaEstado(ctx, tx, o.MesaID, model.MesaLimpieza); err != nil {
			return nil, err
		}
		log.Info().
			Str("orden_id", o.ID.String()).
			Str("total", o.Subtotal.StringFixed(2)).
			Int("pagos", o.CantidadPagos).
			Msg("orden pagada")
	}
	return o, nil
}

// aplicarAgregados derives the order totals from agg and reports whether the
// order just became PAGADA. A CANCELADA order keeps its status.
func aplicarAgregados(o *model.Orden, agg repository.OrdenAgregados, tolerancia decimal.Decimal, now time.Time) bool {
	o.Subtotal = agg.Subtotal
	o.TotalCancelado = agg.TotalCancelado
	o.TotalPagado = agg.TotalPagado
	o.TotalPendiente = maxCero(agg.Subtotal.Sub(agg.TotalPagado))
	o.CantidadPagos = int(agg.CantidadPagos)
	o.EsPagoDividido = agg.CantidadPagos > 1

	if o.Estado != model.OrdenCerrada {
		return false
	}
	if !agg.Subtotal.IsPositive() || !agg.TotalPagado.IsPositive() || agg.ItemsActivos == 0 {
		return false
	}
	saldada := o.TotalPendiente.IsZero() ||
		(agg.ItemsPorPagar == 0 && o.TotalPendiente.LessThanOrEqual(tolerancia))
	if !saldada {
		return false
	}
	o.Estado = model.OrdenPagada
	o.PagadaAt = &now
	return true
}
