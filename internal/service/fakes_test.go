package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"restopos/internal/apierror"
	"restopos/internal/dto"
	"restopos/internal/infra"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory store ───────────────────────────────────────────────────────────
// One mutex guards every table. Uniqueness rules mirror the schema so the
// services hit the same duplicate-key paths they hit against postgres.

type memStore struct {
	mu sync.Mutex

	ordenes   map[uuid.UUID]*model.Orden
	items     map[uuid.UUID]*model.OrdenItem
	itemOrden []uuid.UUID
	pagos     map[uuid.UUID]*model.Pago

	sesiones    map[uuid.UUID]*model.SesionCaja
	movimientos []model.MovimientoCaja

	ventas map[uuid.UUID]*model.Venta
	notas  map[uuid.UUID]*model.NotaCredito

	productos map[uuid.UUID]*model.Producto
	mesas     map[uuid.UUID]*model.Mesa
	clientes  map[uuid.UUID]*model.Cliente

	contadores map[string]int64
	claves     map[string]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		ordenes:    make(map[uuid.UUID]*model.Orden),
		items:      make(map[uuid.UUID]*model.OrdenItem),
		pagos:      make(map[uuid.UUID]*model.Pago),
		sesiones:   make(map[uuid.UUID]*model.SesionCaja),
		ventas:     make(map[uuid.UUID]*model.Venta),
		notas:      make(map[uuid.UUID]*model.NotaCredito),
		productos:  make(map[uuid.UUID]*model.Producto),
		mesas:      make(map[uuid.UUID]*model.Mesa),
		clientes:   make(map[uuid.UUID]*model.Cliente),
		contadores: make(map[string]int64),
		claves:     make(map[string]*sync.Mutex),
	}
}

func copyOrden(o *model.Orden) *model.Orden {
	c := *o
	c.Items = nil
	c.Pagos = nil
	return &c
}

func copyItem(it *model.OrdenItem) model.OrdenItem { return *it }

func copyVenta(v *model.Venta) *model.Venta {
	c := *v
	c.Items = append([]model.VentaItem(nil), v.Items...)
	return &c
}

// ── OrdenRepository ───────────────────────────────────────────────────────────

type fakeOrdenRepo struct{ s *memStore }

func (r *fakeOrdenRepo) DB() *gorm.DB { return nil }

func (r *fakeOrdenRepo) Create(_ context.Context, _ *gorm.DB, o *model.Orden) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.ordenes {
		activa := x.Estado == model.OrdenAbierta || x.Estado == model.OrdenCerrada
		if activa && x.MesaID == o.MesaID {
			return gorm.ErrDuplicatedKey
		}
		if x.Fecha == o.Fecha && x.NumeroDiario == o.NumeroDiario {
			return gorm.ErrDuplicatedKey
		}
	}
	r.s.ordenes[o.ID] = copyOrden(o)
	return nil
}

func (r *fakeOrdenRepo) itemsDe(ordenID uuid.UUID) []model.OrdenItem {
	var out []model.OrdenItem
	for _, id := range r.s.itemOrden {
		if it, ok := r.s.items[id]; ok && it.OrdenID == ordenID {
			out = append(out, copyItem(it))
		}
	}
	return out
}

func (r *fakeOrdenRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Orden, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.ordenes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := copyOrden(o)
	c.Items = r.itemsDe(id)
	return c, nil
}

func (r *fakeOrdenRepo) FindForUpdate(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Orden, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.ordenes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyOrden(o), nil
}

func (r *fakeOrdenRepo) FindActivaByMesa(_ context.Context, _ *gorm.DB, mesaID uuid.UUID) (*model.Orden, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.ordenes {
		if o.MesaID == mesaID && (o.Estado == model.OrdenAbierta || o.Estado == model.OrdenCerrada) {
			return copyOrden(o), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrdenRepo) UpdateEstado(_ context.Context, _ *gorm.DB, o *model.Orden) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x, ok := r.s.ordenes[o.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	x.Estado = o.Estado
	x.Notas = o.Notas
	x.MotivoCancelacion = o.MotivoCancelacion
	x.CanceladaPor = o.CanceladaPor
	x.CerradaAt = o.CerradaAt
	x.CanceladaAt = o.CanceladaAt
	return nil
}

func (r *fakeOrdenRepo) UpdateTotales(_ context.Context, _ *gorm.DB, o *model.Orden) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x, ok := r.s.ordenes[o.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	x.Subtotal = o.Subtotal
	x.TotalCancelado = o.TotalCancelado
	x.TotalPagado = o.TotalPagado
	x.TotalPendiente = o.TotalPendiente
	x.EsPagoDividido = o.EsPagoDividido
	x.CantidadPagos = o.CantidadPagos
	x.Estado = o.Estado
	x.PagadaAt = o.PagadaAt
	return nil
}

func (r *fakeOrdenRepo) Agregados(_ context.Context, _ *gorm.DB, ordenID uuid.UUID) (repository.OrdenAgregados, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a := repository.OrdenAgregados{
		Subtotal:       decimal.Zero,
		TotalCancelado: decimal.Zero,
		TotalPagado:    decimal.Zero,
	}
	for _, it := range r.s.items {
		if it.OrdenID != ordenID {
			continue
		}
		if it.Cancelado {
			a.TotalCancelado = a.TotalCancelado.Add(it.TotalLinea)
			continue
		}
		a.Subtotal = a.Subtotal.Add(it.TotalLinea)
		a.ItemsActivos++
		if !it.Pagado {
			a.ItemsPorPagar++
		}
	}
	for _, p := range r.s.pagos {
		if p.OrdenID == ordenID {
			a.TotalPagado = a.TotalPagado.Add(p.Monto)
			a.CantidadPagos++
		}
	}
	return a, nil
}

func (r *fakeOrdenRepo) List(_ context.Context, f dto.OrdenFilter) ([]model.Orden, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Orden
	for _, o := range r.s.ordenes {
		if f.Estado != "" && o.Estado != f.Estado {
			continue
		}
		if f.MesaID != "" && o.MesaID.String() != f.MesaID {
			continue
		}
		if f.Fecha != "" && o.Fecha != f.Fecha {
			continue
		}
		out = append(out, *copyOrden(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NumeroDiario < out[j].NumeroDiario })
	return out, int64(len(out)), nil
}

func (r *fakeOrdenRepo) CreateItem(_ context.Context, _ *gorm.DB, it *model.OrdenItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := copyItem(it)
	r.s.items[it.ID] = &c
	r.s.itemOrden = append(r.s.itemOrden, it.ID)
	return nil
}

func (r *fakeOrdenRepo) FindItem(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.OrdenItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := copyItem(it)
	return &c, nil
}

func (r *fakeOrdenRepo) ListItems(_ context.Context, _ *gorm.DB, ordenID uuid.UUID) ([]model.OrdenItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.itemsDe(ordenID), nil
}

func (r *fakeOrdenRepo) UpdateItem(_ context.Context, _ *gorm.DB, it *model.OrdenItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[it.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := copyItem(it)
	r.s.items[it.ID] = &c
	return nil
}

func (r *fakeOrdenRepo) DeleteItem(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.items, id)
	return nil
}

// ── CatalogoRepository ────────────────────────────────────────────────────────

type fakeCatalogoRepo struct{ s *memStore }

func (r *fakeCatalogoRepo) FindProducto(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.productos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *fakeCatalogoRepo) FindMesa(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Mesa, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mesas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *m
	return &c, nil
}

func (r *fakeCatalogoRepo) UpdateMesaEstado(_ context.Context, _ *gorm.DB, id uuid.UUID, estado string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mesas[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.Estado = estado
	return nil
}

func (r *fakeCatalogoRepo) FindCliente(_ context.Context, id uuid.UUID) (*model.Cliente, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clientes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

// ── PagoRepository ────────────────────────────────────────────────────────────

type fakePagoRepo struct{ s *memStore }

func (r *fakePagoRepo) Create(_ context.Context, _ *gorm.DB, p *model.Pago) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.pagos {
		if x.OrdenID == p.OrdenID && x.Numero == p.Numero {
			return gorm.ErrDuplicatedKey
		}
	}
	c := *p
	c.Asignaciones = append([]model.PagoAsignacion(nil), p.Asignaciones...)
	r.s.pagos[p.ID] = &c
	return nil
}

func (r *fakePagoRepo) CountByOrden(_ context.Context, _ *gorm.DB, ordenID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.pagos {
		if p.OrdenID == ordenID {
			n++
		}
	}
	return n, nil
}

func (r *fakePagoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Pago, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.pagos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *p
	return &c, nil
}

func (r *fakePagoRepo) ListByOrden(_ context.Context, ordenID uuid.UUID) ([]model.Pago, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Pago
	for _, p := range r.s.pagos {
		if p.OrdenID == ordenID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Numero < out[j].Numero })
	return out, nil
}

// ── CajaRepository ────────────────────────────────────────────────────────────

type fakeCajaRepo struct{ s *memStore }

func (r *fakeCajaRepo) DB() *gorm.DB { return nil }

func (r *fakeCajaRepo) CreateSesion(_ context.Context, _ *gorm.DB, ses *model.SesionCaja) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.sesiones {
		if x.UsuarioID == ses.UsuarioID && x.Estado == model.CajaAbierta {
			return gorm.ErrDuplicatedKey
		}
	}
	c := *ses
	r.s.sesiones[ses.ID] = &c
	return nil
}

func (r *fakeCajaRepo) FindAbiertaPorUsuario(_ context.Context, _ *gorm.DB, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.sesiones {
		if x.UsuarioID == usuarioID && x.Estado == model.CajaAbierta {
			c := *x
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCajaRepo) FindSesionForUpdate(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x, ok := r.s.sesiones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *x
	return &c, nil
}

func (r *fakeCajaRepo) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x, ok := r.s.sesiones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *x
	c.Movimientos = nil
	for _, m := range r.s.movimientos {
		if m.SesionCajaID == id {
			c.Movimientos = append(c.Movimientos, m)
		}
	}
	return &c, nil
}

func (r *fakeCajaRepo) UpdateSesion(_ context.Context, _ *gorm.DB, ses *model.SesionCaja) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sesiones[ses.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *ses
	c.Movimientos = nil
	r.s.sesiones[ses.ID] = &c
	return nil
}

func (r *fakeCajaRepo) CreateMovimiento(_ context.Context, _ *gorm.DB, m *model.MovimientoCaja) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.movimientos = append(r.s.movimientos, *m)
	return nil
}

func (r *fakeCajaRepo) ListMovimientos(_ context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.MovimientoCaja
	for _, m := range r.s.movimientos {
		if m.SesionCajaID == sesionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeCajaRepo) Totales(_ context.Context, _ *gorm.DB, sesionID uuid.UUID) (repository.TotalesCaja, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := repository.TotalesCaja{Ventas: decimal.Zero, Ingresos: decimal.Zero, Egresos: decimal.Zero}
	for _, m := range r.s.movimientos {
		if m.SesionCajaID != sesionID {
			continue
		}
		switch {
		case m.Tipo == model.MovimientoIngreso && m.Automatico:
			t.Ventas = t.Ventas.Add(m.Monto)
		case m.Tipo == model.MovimientoIngreso:
			t.Ingresos = t.Ingresos.Add(m.Monto)
		default:
			t.Egresos = t.Egresos.Add(m.Monto)
		}
	}
	return t, nil
}

func (r *fakeCajaRepo) SumMovimientosByMetodo(_ context.Context, sesionID uuid.UUID) (map[string]decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]decimal.Decimal)
	for _, m := range r.s.movimientos {
		if m.SesionCajaID == sesionID && m.Automatico && m.MetodoPago != nil {
			out[*m.MetodoPago] = out[*m.MetodoPago].Add(m.Monto)
		}
	}
	return out, nil
}

// ── VentaRepository ───────────────────────────────────────────────────────────

type fakeVentaRepo struct{ s *memStore }

func (r *fakeVentaRepo) DB() *gorm.DB { return nil }

func (r *fakeVentaRepo) Create(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.ventas {
		if x.PagoID == v.PagoID {
			return gorm.ErrDuplicatedKey
		}
		if x.TipoDocumento == v.TipoDocumento && x.Serie == v.Serie && x.Correlativo == v.Correlativo {
			return gorm.ErrDuplicatedKey
		}
	}
	r.s.ventas[v.ID] = copyVenta(v)
	return nil
}

func (r *fakeVentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.ventas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyVenta(v), nil
}

func (r *fakeVentaRepo) FindForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeVentaRepo) ListByOrden(_ context.Context, ordenID uuid.UUID) ([]model.Venta, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Venta
	for _, v := range r.s.ventas {
		if v.OrdenID == ordenID {
			out = append(out, *copyVenta(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Correlativo < out[j].Correlativo })
	return out, nil
}

// tomable mirrors the WHERE clause of the ENVIANDO claim.
func tomable(estado string, desde *time.Time, permitidos []string, vencido time.Time) bool {
	if estado == model.AutoridadEnviando {
		return desde == nil || desde.Before(vencido)
	}
	for _, e := range permitidos {
		if estado == e {
			return true
		}
	}
	return false
}

func (r *fakeVentaRepo) MarcarEnviando(ctx context.Context, id uuid.UUID, desde []string, vencido time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.ventas[id]
	if !ok || !tomable(v.EstadoAutoridad, v.EnviandoDesde, desde, vencido) {
		return false, nil
	}
	now := time.Now()
	v.EstadoAutoridad = model.AutoridadEnviando
	v.EnviandoDesde = &now
	v.Intentos++
	return true, nil
}

func (r *fakeVentaRepo) UpdateAutoridad(ctx context.Context, _ *gorm.DB, v *model.Venta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x, ok := r.s.ventas[v.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	x.EstadoAutoridad = v.EstadoAutoridad
	x.CodigoRespuesta = v.CodigoRespuesta
	x.MensajeAutoridad = v.MensajeAutoridad
	x.Intentos = v.Intentos
	x.EnviadoAt = v.EnviadoAt
	x.AceptadoAt = v.AceptadoAt
	return nil
}

func (r *fakeVentaRepo) CreateNotaCredito(_ context.Context, _ *gorm.DB, n *model.NotaCredito) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.notas {
		if x.VentaID == n.VentaID || (x.Serie == n.Serie && x.Correlativo == n.Correlativo) {
			return gorm.ErrDuplicatedKey
		}
	}
	c := *n
	r.s.notas[n.ID] = &c
	return nil
}

func (r *fakeVentaRepo) FindNotaByVenta(_ context.Context, _ *gorm.DB, ventaID uuid.UUID) (*model.NotaCredito, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notas {
		if n.VentaID == ventaID {
			c := *n
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeVentaRepo) MarcarNotaEnviando(ctx context.Context, id uuid.UUID, desde []string, vencido time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notas[id]
	if !ok || !tomable(n.EstadoAutoridad, n.EnviandoDesde, desde, vencido) {
		return false, nil
	}
	now := time.Now()
	n.EstadoAutoridad = model.AutoridadEnviando
	n.EnviandoDesde = &now
	n.Intentos++
	return true, nil
}

func (r *fakeVentaRepo) UpdateNotaAutoridad(_ context.Context, n *model.NotaCredito) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x, ok := r.s.notas[n.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	x.EstadoAutoridad = n.EstadoAutoridad
	x.CodigoRespuesta = n.CodigoRespuesta
	x.MensajeAutoridad = n.MensajeAutoridad
	x.Intentos = n.Intentos
	x.EnviadoAt = n.EnviadoAt
	x.AceptadoAt = n.AceptadoAt
	return nil
}

// ── CorrelativoRepository ─────────────────────────────────────────────────────

// fakeCorrelativoRepo holds a per-key mutex for the whole reservation, the
// way the row lock does until commit.
type fakeCorrelativoRepo struct{ s *memStore }

func (r *fakeCorrelativoRepo) clave(tipo, serie string) (*sync.Mutex, string) {
	k := tipo + "/" + serie
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.claves[k]
	if !ok {
		m = &sync.Mutex{}
		r.s.claves[k] = m
	}
	return m, k
}

func (r *fakeCorrelativoRepo) Reservar(_ context.Context, _ *gorm.DB, tipo, serie string, escribir func(numero int64) error) (int64, error) {
	lock, k := r.clave(tipo, serie)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	next := r.s.contadores[k] + 1
	r.s.mu.Unlock()

	if err := escribir(next); err != nil {
		return 0, err
	}

	r.s.mu.Lock()
	r.s.contadores[k] = next
	r.s.mu.Unlock()
	return next, nil
}

func (r *fakeCorrelativoRepo) Ultimo(_ context.Context, tipo, serie string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.contadores[tipo+"/"+serie], nil
}

// ── Authority ─────────────────────────────────────────────────────────────────

type fakeAutoridad struct {
	mu       sync.Mutex
	estado   string
	err      error
	enviados []infra.DocumentoFiscal
}

func (a *fakeAutoridad) Enviar(ctx context.Context, doc infra.DocumentoFiscal) (*infra.RespuestaAutoridad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enviados = append(a.enviados, doc)
	if a.err != nil {
		return nil, a.err
	}
	estado := a.estado
	if estado == "" {
		estado = infra.RespuestaAceptado
	}
	return &infra.RespuestaAutoridad{Estado: estado, Codigo: "0", Mensaje: "ok"}, nil
}

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	store     *memStore
	autoridad *fakeAutoridad
	reglas    Reglas

	ordenes     OrdenService
	caja        CajaService
	facturacion FacturacionService
	pagos       PagoService

	mesa      *model.Mesa
	lomo      *model.Producto // 42.00, required size group
	grande    *model.Variante // +5.00
	limonada  *model.Producto // 30.00, no variants
	clienteRU *model.Cliente

	mozo   Actor
	cajero Actor
	cocina Actor
	admin  Actor
}

func testReglas() Reglas {
	return Reglas{
		Zona:             time.UTC,
		TasaImpuesto:     decimal.RequireFromString("0.18"),
		Tolerancia:       decimal.RequireFromString("0.01"),
		VentanaAnulacion: 7 * 24 * time.Hour,
		EnvioVencido:     time.Minute,
		ActorSistema:     uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		Series: Series{
			NotaVenta: "NV01",
			Boleta:    "B001",
			Factura:   "F001",
			NCBoleta:  "BC01",
			NCFactura: "FC01",
		},
		Emisor: Emisor{RUC: "20000000001", RazonSocial: "RestoPOS S.A.C."},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := newMemStore()
	f := &fixture{store: s, autoridad: &fakeAutoridad{}, reglas: testReglas()}

	f.mesa = &model.Mesa{ID: uuid.New(), Numero: 5, Capacidad: 4, Estado: model.MesaLibre, Activo: true}
	s.mesas[f.mesa.ID] = f.mesa

	grupo := model.GrupoVariante{ID: uuid.New(), Nombre: "Tamano", Obligatorio: true}
	f.grande = &model.Variante{ID: uuid.New(), GrupoID: grupo.ID, Nombre: "Grande", PrecioAdicional: decimal.RequireFromString("5.00"), Activo: true}
	grupo.Variantes = []model.Variante{
		{ID: uuid.New(), GrupoID: grupo.ID, Nombre: "Regular", PrecioAdicional: decimal.Zero, Activo: true},
		*f.grande,
	}
	f.lomo = &model.Producto{
		ID: uuid.New(), Nombre: "Lomo saltado", Precio: decimal.RequireFromString("42.00"),
		AreaPreparacion: "cocina", Activo: true, Disponible: true,
		GruposVariante: []model.GrupoVariante{grupo},
	}
	grupo.ProductoID = f.lomo.ID
	f.limonada = &model.Producto{
		ID: uuid.New(), Nombre: "Limonada", Precio: decimal.RequireFromString("30.00"),
		AreaPreparacion: "bar", Activo: true, Disponible: true,
	}
	s.productos[f.lomo.ID] = f.lomo
	s.productos[f.limonada.ID] = f.limonada

	f.clienteRU = &model.Cliente{ID: uuid.New(), TipoDocumento: model.ClienteRUC, NumeroDocumento: "20123456789", RazonSocial: "Cliente SAC"}
	s.clientes[f.clienteRU.ID] = f.clienteRU

	f.mozo = Actor{UsuarioID: uuid.New(), Rol: RolMozo}
	f.cajero = Actor{UsuarioID: uuid.New(), Rol: RolCajero}
	f.cocina = Actor{UsuarioID: uuid.New(), Rol: RolCocina}
	f.admin = Actor{UsuarioID: uuid.New(), Rol: RolAdministrador}

	ordenRepo := &fakeOrdenRepo{s: s}
	catalogo := &fakeCatalogoRepo{s: s}
	correlativos := &fakeCorrelativoRepo{s: s}

	f.ordenes = NewOrdenService(ordenRepo, catalogo, correlativos, f.reglas)
	f.caja = NewCajaService(&fakeCajaRepo{s: s}, f.reglas)
	f.facturacion = NewFacturacionService(&fakeVentaRepo{s: s}, catalogo, correlativos, f.autoridad, f.reglas)
	f.pagos = NewPagoService(&fakePagoRepo{s: s}, ordenRepo, f.ordenes, f.caja, f.facturacion, f.reglas)
	return f
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func (f *fixture) abrirOrden(t *testing.T) *dto.OrdenResponse {
	t.Helper()
	o, err := f.ordenes.Abrir(context.Background(), f.mozo, dto.AbrirOrdenRequest{MesaID: f.mesa.ID.String(), Comensales: 4})
	require.NoError(t, err)
	return o
}

func (f *fixture) agregarLomo(t *testing.T, ordenID string, cantidad int) *dto.AgregarItemResponse {
	t.Helper()
	it, err := f.ordenes.AgregarItem(context.Background(), f.mozo, uuid.MustParse(ordenID), dto.AgregarItemRequest{
		ProductoID: f.lomo.ID.String(),
		Cantidad:   cantidad,
		Variantes:  []string{f.grande.ID.String()},
	})
	require.NoError(t, err)
	return it
}

func (f *fixture) agregarLimonada(t *testing.T, ordenID string) *dto.AgregarItemResponse {
	t.Helper()
	it, err := f.ordenes.AgregarItem(context.Background(), f.mozo, uuid.MustParse(ordenID), dto.AgregarItemRequest{
		ProductoID: f.limonada.ID.String(),
		Cantidad:   1,
	})
	require.NoError(t, err)
	return it
}

func (f *fixture) cerrar(t *testing.T, ordenID string) {
	t.Helper()
	_, err := f.ordenes.Cerrar(context.Background(), f.mozo, uuid.MustParse(ordenID))
	require.NoError(t, err)
}

func (f *fixture) abrirCaja(t *testing.T, inicial string) *dto.SesionCajaResponse {
	t.Helper()
	s, err := f.caja.Abrir(context.Background(), f.cajero, dto.AbrirCajaRequest{MontoInicial: dec(inicial)})
	require.NoError(t, err)
	return s
}

func (f *fixture) contarPagos() int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return len(f.store.pagos)
}

func (f *fixture) estadoMesa() string {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.mesa.Estado
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	e, ok := apierror.As(err)
	require.True(t, ok, "expected apierror, got %v", err)
	require.Equal(t, code, e.Code, e.Detail)
}
