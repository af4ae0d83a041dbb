package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"restopos/internal/apierror"
	"restopos/internal/dto"
	"restopos/internal/infra"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SolicitudDocumento is a validated request to mint a document for a payment.
type SolicitudDocumento struct {
	Tipo    string
	Cliente *model.Cliente
}

type FacturacionService interface {
	// ResolverDocumento validates the document request before any write.
	// Returns nil when no document was requested.
	ResolverDocumento(ctx context.Context, generar bool, tipo string, clienteID *string) (*SolicitudDocumento, error)
	// EmitirTx mints the Venta for pago inside the payment transaction.
	EmitirTx(ctx context.Context, tx *gorm.DB, actor Actor, pago *model.Pago, items map[uuid.UUID]*model.OrdenItem, sol *SolicitudDocumento) (*model.Venta, error)
	// Enviar submits a committed document to the authority. Never call it
	// inside the minting transaction.
	Enviar(ctx context.Context, ventaID uuid.UUID) (*dto.VentaResponse, error)
	Reenviar(ctx context.Context, ventaID uuid.UUID) (*dto.VentaResponse, error)
	Anular(ctx context.Context, actor Actor, ventaID uuid.UUID, req dto.AnularVentaRequest) (*dto.AnularVentaResponse, error)
	Obtener(ctx context.Context, ventaID uuid.UUID) (*dto.VentaResponse, error)
	ListarPorOrden(ctx context.Context, ordenID uuid.UUID) ([]dto.VentaResponse, error)
	GenerarPDF(ctx context.Context, ventaID uuid.UUID) ([]byte, string, error)
}

type facturacionService struct {
	repo         repository.VentaRepository
	catalogo     repository.CatalogoRepository
	correlativos repository.CorrelativoRepository
	autoridad    infra.ClienteAutoridad
	reglas       Reglas
}

func NewFacturacionService(
	repo repository.VentaRepository,
	catalogo repository.CatalogoRepository,
	correlativos repository.CorrelativoRepository,
	autoridad infra.ClienteAutoridad,
	reglas Reglas,
) FacturacionService {
	return &facturacionService{
		repo:         repo,
		catalogo:     catalogo,
		correlativos: correlativos,
		autoridad:    autoridad,
		reglas:       reglas,
	}
}

// estados desde los que un documento puede (re)enviarse
var reenviables = []string{model.AutoridadPendiente, model.AutoridadRechazado, model.AutoridadObservado}

func numeroCompleto(serie string, correlativo int64) string {
	return fmt.Sprintf("%s-%08d", serie, correlativo)
}

func errVentaNoEncontrada(id uuid.UUID) error {
	return apierror.NotFound("SALE_NOT_FOUND", "venta %s no encontrada", id)
}

// ── ResolverDocumento ─────────────────────────────────────────────────────────

func (s *facturacionService) ResolverDocumento(ctx context.Context, generar bool, tipo string, clienteID *string) (*SolicitudDocumento, error) {
	if !generar {
		return nil, nil
	}
	sol := &SolicitudDocumento{Tipo: strings.ToUpper(strings.TrimSpace(tipo))}
	if sol.Tipo == "" {
		sol.Tipo = model.DocBoleta
	}
	switch sol.Tipo {
	case model.DocNotaVenta, model.DocBoleta, model.DocFactura:
	default:
		return nil, apierror.Validation("INVALID_DOCUMENT_TYPE", "tipo de documento %q invalido", tipo)
	}

	if clienteID != nil && *clienteID != "" {
		id, err := uuid.Parse(*clienteID)
		if err != nil {
			return nil, apierror.Validation("INVALID_CLIENT_ID", "client_id invalido")
		}
		c, err := s.catalogo.FindCliente(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return nil, apierror.NotFound("CLIENT_NOT_FOUND", "cliente %s no encontrado", id)
			}
			return nil, err
		}
		sol.Cliente = c
	}

	if sol.Tipo == model.DocFactura {
		if sol.Cliente == nil {
			return nil, apierror.Validation("BUYER_REQUIRED", "la factura requiere un cliente")
		}
		if sol.Cliente.TipoDocumento != model.ClienteRUC {
			return nil, apierror.Validation("BUYER_RUC_REQUIRED", "la factura requiere un cliente con RUC")
		}
	}
	return sol, nil
}

// ── EmitirTx ──────────────────────────────────────────────────────────────────

func (s *facturacionService) EmitirTx(ctx context.Context, tx *gorm.DB, actor Actor, pago *model.Pago, items map[uuid.UUID]*model.OrdenItem, sol *SolicitudDocumento) (*model.Venta, error) {
	ventaID := uuid.New()
	lineas := lineasVenta(ventaID, pago, items)

	v := &model.Venta{
		ID:            ventaID,
		PagoID:        pago.ID,
		OrdenID:       pago.OrdenID,
		TipoDocumento: sol.Tipo,
		Serie:         s.reglas.Series.Para(sol.Tipo),
		TasaImpuesto:  s.reglas.TasaImpuesto,
		EmitidoPor:    actor.UsuarioID,
		CreatedAt:     time.Now(),
		Items:         lineas,
	}
	v.EstadoAutoridad = model.AutoridadPendiente
	if sol.Tipo == model.DocNotaVenta {
		v.EstadoAutoridad = model.AutoridadNoAplica
	}

	base, impuesto, total := decimal.Zero, decimal.Zero, decimal.Zero
	for i := range v.Items {
		l := &v.Items[i]
		l.BaseImponible, l.MontoImpuesto = desglosarImpuesto(l.Total, s.reglas.TasaImpuesto)
		base = base.Add(l.BaseImponible)
		impuesto = impuesto.Add(l.MontoImpuesto)
		total = total.Add(l.Total)
	}
	v.BaseImponible, v.MontoImpuesto, v.Total = base, impuesto, total

	if c := sol.Cliente; c != nil {
		v.ClienteID = &c.ID
		v.ClienteTipoDocumento = &c.TipoDocumento
		v.ClienteNumeroDocumento = &c.NumeroDocumento
		v.ClienteNombre = &c.RazonSocial
		v.ClienteDireccion = c.Direccion
	}

	// The counter row stays locked until the payment transaction commits, so
	// numbers are handed out in commit order and a rollback returns the number.
	_, err := s.correlativos.Reservar(ctx, tx, v.TipoDocumento, v.Serie, func(numero int64) error {
		v.Correlativo = numero
		v.NumeroCompleto = numeroCompleto(v.Serie, numero)
		return s.repo.Create(ctx, tx, v)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("venta_id", v.ID.String()).
		Str("numero", v.NumeroCompleto).
		Str("total", v.Total.StringFixed(2)).
		Msg("documento emitido")
	return v, nil
}

// lineasVenta copies the payment allocations into sale lines. The last line
// absorbs rounding so the lines always add up to the payment amount.
func lineasVenta(ventaID uuid.UUID, pago *model.Pago, items map[uuid.UUID]*model.OrdenItem) []model.VentaItem {
	lineas := make([]model.VentaItem, 0, len(pago.Asignaciones))
	suma := decimal.Zero
	for _, a := range pago.Asignaciones {
		it, ok := items[a.OrdenItemID]
		if !ok {
			continue
		}
		itemID := it.ID
		lineas = append(lineas, model.VentaItem{
			ID:             uuid.New(),
			VentaID:        ventaID,
			OrdenItemID:    &itemID,
			Descripcion:    descripcionItem(it),
			Cantidad:       a.Cantidad,
			PrecioUnitario: it.PrecioConVariantes(),
			Total:          a.Monto,
		})
		suma = suma.Add(a.Monto)
	}
	if len(lineas) == 0 {
		return []model.VentaItem{{
			ID:             uuid.New(),
			VentaID:        ventaID,
			Descripcion:    "Consumo",
			Cantidad:       1,
			PrecioUnitario: pago.Monto,
			Total:          pago.Monto,
		}}
	}
	if diff := pago.Monto.Sub(suma); !diff.IsZero() {
		last := &lineas[len(lineas)-1]
		last.Total = last.Total.Add(diff)
	}
	return lineas
}

func descripcionItem(it *model.OrdenItem) string {
	if len(it.Variantes) == 0 {
		return it.ProductoNombre
	}
	nombres := make([]string, 0, len(it.Variantes))
	for _, v := range it.Variantes {
		nombres = append(nombres, v.Nombre)
	}
	return it.ProductoNombre + " (" + strings.Join(nombres, ", ") + ")"
}

// ── Envio a la autoridad ──────────────────────────────────────────────────────

func (s *facturacionService) Enviar(ctx context.Context, ventaID uuid.UUID) (*dto.VentaResponse, error) {
	// The document is committed; a client hang-up must not strand it in ENVIANDO.
	ctx = context.WithoutCancel(ctx)
	v, err := s.repo.FindByID(ctx, ventaID)
	if err != nil {
		if isNotFound(err) {
			return nil, errVentaNoEncontrada(ventaID)
		}
		return nil, err
	}
	if v.EstadoAutoridad == model.AutoridadNoAplica {
		return ventaToResponse(v), nil
	}
	tomado, err := s.repo.MarcarEnviando(ctx, v.ID, reenviables, s.envioVencido())
	if err != nil {
		return nil, err
	}
	if !tomado {
		// Already final, or another request is submitting it right now.
		return ventaToResponse(v), nil
	}
	v.Intentos++

	resp, envioErr := s.autoridad.Enviar(ctx, s.documentoDeVenta(v))
	aplicarRespuesta(&v.EstadoAutoridad, &v.CodigoRespuesta, &v.MensajeAutoridad, &v.EnviadoAt, &v.AceptadoAt, resp, envioErr)
	if err := s.repo.UpdateAutoridad(ctx, nil, v); err != nil {
		return nil, err
	}
	logRespuesta(v.NumeroCompleto, v.EstadoAutoridad, envioErr)
	return ventaToResponse(v), nil
}

func (s *facturacionService) Reenviar(ctx context.Context, ventaID uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.repo.FindByID(ctx, ventaID)
	if err != nil {
		if isNotFound(err) {
			return nil, errVentaNoEncontrada(ventaID)
		}
		return nil, err
	}
	switch v.EstadoAutoridad {
	case model.AutoridadNoAplica:
		return nil, apierror.InvalidState("NO_AUTHORITY_DOCUMENT", "la nota de venta no se envia a la autoridad")
	case model.AutoridadAceptado, model.AutoridadAnulado:
		return nil, apierror.InvalidState("SALE_ALREADY_ACCEPTED", "el documento ya fue aceptado").
			With("authority_status", v.EstadoAutoridad)
	case model.AutoridadEnviando:
		// A submission older than EnvioVencido died before recording its
		// outcome and may be taken over.
		if v.EnviandoDesde == nil || v.EnviandoDesde.After(s.envioVencido()) {
			return nil, apierror.InvalidState("SALE_SUBMITTING", "el documento se esta enviando").
				With("stale_after_seconds", strconv.Itoa(int(s.reglas.EnvioVencido.Seconds())))
		}
	}
	return s.Enviar(ctx, ventaID)
}

func (s *facturacionService) envioVencido() time.Time {
	return time.Now().Add(-s.reglas.EnvioVencido)
}

func (s *facturacionService) enviarNota(ctx context.Context, v *model.Venta, n *model.NotaCredito) {
	ctx = context.WithoutCancel(ctx)
	tomado, err := s.repo.MarcarNotaEnviando(ctx, n.ID, reenviables, s.envioVencido())
	if err != nil || !tomado {
		if err != nil {
			log.Warn().Err(err).Str("nota_credito", n.NumeroCompleto).Msg("no se pudo marcar la nota para envio")
		}
		return
	}
	n.Intentos++
	resp, envioErr := s.autoridad.Enviar(ctx, s.documentoDeNota(v, n))
	aplicarRespuesta(&n.EstadoAutoridad, &n.CodigoRespuesta, &n.MensajeAutoridad, &n.EnviadoAt, &n.AceptadoAt, resp, envioErr)
	if err := s.repo.UpdateNotaAutoridad(ctx, n); err != nil {
		log.Warn().Err(err).Str("nota_credito", n.NumeroCompleto).Msg("no se pudo guardar la respuesta de la autoridad")
		return
	}
	logRespuesta(n.NumeroCompleto, n.EstadoAutoridad, envioErr)
}

// aplicarRespuesta maps one submission outcome onto the tracking columns.
// Transport failures leave the document OBSERVADO for a manual resend.
func aplicarRespuesta(estado *string, codigo, mensaje **string, enviadoAt, aceptadoAt **time.Time, resp *infra.RespuestaAutoridad, envioErr error) {
	now := time.Now()
	*enviadoAt = &now
	if envioErr != nil {
		msg := envioErr.Error()
		*estado = model.AutoridadObservado
		*mensaje = &msg
		return
	}
	cod, msg := resp.Codigo, resp.Mensaje
	*codigo = &cod
	*mensaje = &msg
	switch resp.Estado {
	case infra.RespuestaAceptado:
		*estado = model.AutoridadAceptado
		*aceptadoAt = &now
	case infra.RespuestaRechazado:
		*estado = model.AutoridadRechazado
	default:
		*estado = model.AutoridadObservado
	}
}

func logRespuesta(numero, estado string, envioErr error) {
	if envioErr != nil {
		log.Warn().Err(envioErr).Str("numero", numero).Msg("envio a la autoridad fallido")
		return
	}
	log.Info().Str("numero", numero).Str("estado", estado).Msg("respuesta de la autoridad")
}

func (s *facturacionService) documentoDeVenta(v *model.Venta) infra.DocumentoFiscal {
	doc := infra.DocumentoFiscal{
		Tipo:          v.TipoDocumento,
		Serie:         v.Serie,
		Correlativo:   v.Correlativo,
		Fecha:         v.CreatedAt.In(s.reglas.Zona).Format("2006-01-02"),
		EmisorRUC:     s.reglas.Emisor.RUC,
		EmisorNombre:  s.reglas.Emisor.RazonSocial,
		BaseImponible: v.BaseImponible.StringFixed(2),
		MontoImpuesto: v.MontoImpuesto.StringFixed(2),
		Total:         v.Total.StringFixed(2),
	}
	if v.ClienteNumeroDocumento != nil {
		doc.ReceptorNumeroDocumento = *v.ClienteNumeroDocumento
	}
	if v.ClienteTipoDocumento != nil {
		doc.ReceptorTipoDocumento = *v.ClienteTipoDocumento
	}
	if v.ClienteNombre != nil {
		doc.ReceptorNombre = *v.ClienteNombre
	}
	return doc
}

func (s *facturacionService) documentoDeNota(v *model.Venta, n *model.NotaCredito) infra.DocumentoFiscal {
	doc := s.documentoDeVenta(v)
	doc.Tipo = model.DocNotaCredito
	doc.Serie = n.Serie
	doc.Correlativo = n.Correlativo
	doc.Fecha = n.CreatedAt.In(s.reglas.Zona).Format("2006-01-02")
	doc.BaseImponible = n.BaseImponible.StringFixed(2)
	doc.MontoImpuesto = n.MontoImpuesto.StringFixed(2)
	doc.Total = n.Total.StringFixed(2)
	doc.Referencia = v.NumeroCompleto
	doc.TipoNota = n.TipoNota
	doc.Motivo = n.Motivo
	return doc
}

// ── Anular ────────────────────────────────────────────────────────────────────

func (s *facturacionService) Anular(ctx context.Context, actor Actor, ventaID uuid.UUID, req dto.AnularVentaRequest) (*dto.AnularVentaResponse, error) {
	motivo := strings.TrimSpace(req.Motivo)
	if motivo == "" {
		return nil, apierror.Validation("VOID_REASON_REQUIRED", "indique el motivo de la anulacion")
	}
	var (
		venta *model.Venta
		nota  *model.NotaCredito
	)
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.repo.FindForUpdate(ctx, tx, ventaID)
		if err != nil {
			if isNotFound(err) {
				return errVentaNoEncontrada(ventaID)
			}
			return err
		}
		if err := s.validarAnulacion(ctx, tx, v, time.Now()); err != nil {
			return err
		}

		n := &model.NotaCredito{
			ID:              uuid.New(),
			VentaID:         v.ID,
			TipoNota:        req.TipoNota,
			Motivo:          motivo,
			Serie:           s.reglas.Series.NotaCreditoPara(v.TipoDocumento),
			BaseImponible:   v.BaseImponible.Neg(),
			MontoImpuesto:   v.MontoImpuesto.Neg(),
			Total:           v.Total.Neg(),
			EstadoAutoridad: model.AutoridadPendiente,
			EmitidoPor:      actor.UsuarioID,
			CreatedAt:       time.Now(),
		}
		_, err = s.correlativos.Reservar(ctx, tx, model.DocNotaCredito, n.Serie, func(numero int64) error {
			n.Correlativo = numero
			n.NumeroCompleto = numeroCompleto(n.Serie, numero)
			if err := s.repo.CreateNotaCredito(ctx, tx, n); err != nil {
				if isDuplicate(err) {
					return apierror.Conflict("DUPLICATE_REVERSAL", "la venta %s ya fue anulada", v.NumeroCompleto)
				}
				return err
			}
			return nil
		})
		if err != nil {
			return err
		}

		v.EstadoAutoridad = model.AutoridadAnulado
		if err := s.repo.UpdateAutoridad(ctx, tx, v); err != nil {
			return err
		}
		venta, nota = v, n
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("venta", venta.NumeroCompleto).
		Str("nota_credito", nota.NumeroCompleto).
		Str("motivo", motivo).
		Msg("venta anulada")
	s.enviarNota(ctx, venta, nota)

	actualizada, err := s.repo.FindByID(ctx, ventaID)
	if err != nil {
		return nil, err
	}
	return &dto.AnularVentaResponse{
		Venta:       *ventaToResponse(actualizada),
		NotaCredito: notaToResponse(nota),
	}, nil
}

// validarAnulacion checks, in order: window, tier, prior reversal, acceptance.
// The window is checked first so an old sale is refused whatever its status.
func (s *facturacionService) validarAnulacion(ctx context.Context, tx *gorm.DB, v *model.Venta, now time.Time) error {
	if now.Sub(v.CreatedAt) > s.reglas.VentanaAnulacion {
		return apierror.InvalidState("VOID_WINDOW_EXPIRED", "la venta %s supera el plazo de anulacion", v.NumeroCompleto).
			With("issued_at", v.CreatedAt.Format(time.RFC3339))
	}
	if v.TipoDocumento == model.DocNotaVenta || v.EstadoAutoridad == model.AutoridadNoAplica {
		return apierror.InvalidState("NO_AUTHORITY_DOCUMENT", "una nota de venta no se anula con nota de credito")
	}
	if v.EstadoAutoridad == model.AutoridadAnulado {
		return apierror.Conflict("DUPLICATE_REVERSAL", "la venta %s ya fue anulada", v.NumeroCompleto)
	}
	if _, err := s.repo.FindNotaByVenta(ctx, tx, v.ID); err == nil {
		return apierror.Conflict("DUPLICATE_REVERSAL", "la venta %s ya tiene nota de credito", v.NumeroCompleto)
	} else if !isNotFound(err) {
		return err
	}
	if v.EstadoAutoridad != model.AutoridadAceptado {
		return apierror.InvalidState("SALE_NOT_ACCEPTED", "solo se anulan documentos aceptados por la autoridad").
			With("authority_status", v.EstadoAutoridad)
	}
	return nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *facturacionService) Obtener(ctx context.Context, ventaID uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.repo.FindByID(ctx, ventaID)
	if err != nil {
		if isNotFound(err) {
			return nil, errVentaNoEncontrada(ventaID)
		}
		return nil, err
	}
	return ventaToResponse(v), nil
}

func (s *facturacionService) ListarPorOrden(ctx context.Context, ordenID uuid.UUID) ([]dto.VentaResponse, error) {
	ventas, err := s.repo.ListByOrden(ctx, ordenID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		out = append(out, *ventaToResponse(&ventas[i]))
	}
	return out, nil
}

// GenerarPDF renders the document and returns it with a download file name.
func (s *facturacionService) GenerarPDF(ctx context.Context, ventaID uuid.UUID) ([]byte, string, error) {
	v, err := s.repo.FindByID(ctx, ventaID)
	if err != nil {
		if isNotFound(err) {
			return nil, "", errVentaNoEncontrada(ventaID)
		}
		return nil, "", err
	}
	emisor := infra.EmisorPDF{
		RUC:         s.reglas.Emisor.RUC,
		RazonSocial: s.reglas.Emisor.RazonSocial,
		Direccion:   s.reglas.Emisor.Direccion,
	}
	pdf, err := infra.GenerarPDFVenta(v, emisor, s.reglas.Zona)
	if err != nil {
		return nil, "", err
	}
	return pdf, v.NumeroCompleto + ".pdf", nil
}
