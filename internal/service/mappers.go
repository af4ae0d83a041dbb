package service

import (
	"time"

	"restopos/internal/dto"
	"restopos/internal/model"

	"github.com/google/uuid"
)

func fmtTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func fmtUUID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func itemToResponse(it *model.OrdenItem) dto.OrdenItemResponse {
	variantes := make([]dto.VarianteResponse, 0, len(it.Variantes))
	for _, v := range it.Variantes {
		variantes = append(variantes, dto.VarianteResponse{
			VarianteID:      v.VarianteID.String(),
			GrupoID:         v.GrupoID.String(),
			Nombre:          v.Nombre,
			PrecioAdicional: v.PrecioAdicional,
		})
	}
	return dto.OrdenItemResponse{
		ID:                it.ID.String(),
		OrdenID:           it.OrdenID.String(),
		ProductoID:        it.ProductoID.String(),
		ProductoNombre:    it.ProductoNombre,
		NombreCorto:       it.NombreCorto,
		PrecioUnitario:    it.PrecioUnitario,
		AreaPreparacion:   it.AreaPreparacion,
		Cantidad:          it.Cantidad,
		CantidadPagada:    it.CantidadPagada,
		Variantes:         variantes,
		TotalVariantes:    it.TotalVariantes,
		TotalLinea:        it.TotalLinea,
		Estado:            it.Estado,
		Notas:             it.Notas,
		Cancelado:         it.Cancelado,
		MotivoCancelacion: it.MotivoCancelacion,
		Pagado:            it.Pagado,
		EnviadoAt:         fmtTime(it.EnviadoAt),
		CreatedAt:         it.CreatedAt.Format(time.RFC3339),
	}
}

func ordenToResponse(o *model.Orden) *dto.OrdenResponse {
	resp := &dto.OrdenResponse{
		ID:                o.ID.String(),
		NumeroDiario:      o.NumeroDiario,
		Fecha:             o.Fecha,
		MesaID:            o.MesaID.String(),
		MozoID:            o.MozoID.String(),
		Comensales:        o.Comensales,
		Estado:            o.Estado,
		Subtotal:          o.Subtotal,
		TotalCancelado:    o.TotalCancelado,
		TotalPagado:       o.TotalPagado,
		TotalPendiente:    o.TotalPendiente,
		EsPagoDividido:    o.EsPagoDividido,
		CantidadPagos:     o.CantidadPagos,
		Notas:             o.Notas,
		MotivoCancelacion: o.MotivoCancelacion,
		CreatedAt:         o.CreatedAt.Format(time.RFC3339),
		CerradaAt:         fmtTime(o.CerradaAt),
		PagadaAt:          fmtTime(o.PagadaAt),
		CanceladaAt:       fmtTime(o.CanceladaAt),
	}
	for i := range o.Items {
		resp.Items = append(resp.Items, itemToResponse(&o.Items[i]))
	}
	return resp
}

func ordenToResumen(o *model.Orden) dto.OrdenResumen {
	return dto.OrdenResumen{
		ID:             o.ID.String(),
		Estado:         o.Estado,
		Subtotal:       o.Subtotal,
		TotalPagado:    o.TotalPagado,
		TotalPendiente: o.TotalPendiente,
	}
}

func pagoToResponse(p *model.Pago) dto.PagoResponse {
	asignaciones := make([]dto.AsignacionResponse, 0, len(p.Asignaciones))
	for _, a := range p.Asignaciones {
		asignaciones = append(asignaciones, dto.AsignacionResponse{
			ItemID:   a.OrdenItemID.String(),
			Cantidad: a.Cantidad,
			Monto:    a.Monto,
		})
	}
	return dto.PagoResponse{
		ID:            p.ID.String(),
		OrdenID:       p.OrdenID.String(),
		SesionCajaID:  p.SesionCajaID.String(),
		Numero:        p.Numero,
		Tipo:          p.Tipo,
		Metodo:        p.Metodo,
		Monto:         p.Monto,
		MontoRecibido: p.MontoRecibido,
		Vuelto:        p.Vuelto,
		NombrePagador: p.NombrePagador,
		ProcesadoPor:  p.ProcesadoPor.String(),
		Asignaciones:  asignaciones,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

func sesionToResponse(s *model.SesionCaja) dto.SesionCajaResponse {
	resp := dto.SesionCajaResponse{
		ID:            s.ID.String(),
		UsuarioID:     s.UsuarioID.String(),
		Estado:        s.Estado,
		MontoInicial:  s.MontoInicial,
		TotalVentas:   s.TotalVentas,
		TotalIngresos: s.TotalIngresos,
		TotalEgresos:  s.TotalEgresos,
		MontoEsperado: s.MontoEsperado,
		MontoFinal:    s.MontoFinal,
		Diferencia:    s.Diferencia,
		Notas:         s.Notas,
		OpenedAt:      s.OpenedAt.Format(time.RFC3339),
		ClosedAt:      fmtTime(s.ClosedAt),
	}
	if s.Diferencia != nil && s.DesvioPct != nil && s.Clasificacion != nil {
		resp.Desvio = &dto.DesvioResponse{
			Monto:         *s.Diferencia,
			Porcentaje:    *s.DesvioPct,
			Clasificacion: *s.Clasificacion,
		}
	}
	return resp
}

func movimientoToResponse(m *model.MovimientoCaja) dto.MovimientoResponse {
	return dto.MovimientoResponse{
		ID:            m.ID.String(),
		Tipo:          m.Tipo,
		Monto:         m.Monto,
		Motivo:        m.Motivo,
		Automatico:    m.Automatico,
		PagoID:        fmtUUID(m.PagoID),
		MetodoPago:    m.MetodoPago,
		RegistradoPor: m.RegistradoPor.String(),
		CreatedAt:     m.CreatedAt.Format(time.RFC3339),
	}
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	resp := &dto.VentaResponse{
		ID:               v.ID.String(),
		PagoID:           v.PagoID.String(),
		OrdenID:          v.OrdenID.String(),
		TipoDocumento:    v.TipoDocumento,
		Serie:            v.Serie,
		Correlativo:      v.Correlativo,
		NumeroCompleto:   v.NumeroCompleto,
		BaseImponible:    v.BaseImponible,
		MontoImpuesto:    v.MontoImpuesto,
		Total:            v.Total,
		TasaImpuesto:     v.TasaImpuesto,
		EstadoAutoridad:  v.EstadoAutoridad,
		CodigoRespuesta:  v.CodigoRespuesta,
		MensajeAutoridad: v.MensajeAutoridad,
		Intentos:         v.Intentos,
		Items:            make([]dto.VentaItemResponse, 0, len(v.Items)),
		CreatedAt:        v.CreatedAt.Format(time.RFC3339),
	}
	if v.ClienteID != nil {
		resp.Cliente = &dto.ClienteSnapshot{
			ID:        v.ClienteID.String(),
			Direccion: v.ClienteDireccion,
		}
		if v.ClienteTipoDocumento != nil {
			resp.Cliente.TipoDocumento = *v.ClienteTipoDocumento
		}
		if v.ClienteNumeroDocumento != nil {
			resp.Cliente.NumeroDocumento = *v.ClienteNumeroDocumento
		}
		if v.ClienteNombre != nil {
			resp.Cliente.Nombre = *v.ClienteNombre
		}
	}
	for _, it := range v.Items {
		resp.Items = append(resp.Items, dto.VentaItemResponse{
			OrdenItemID:    fmtUUID(it.OrdenItemID),
			Descripcion:    it.Descripcion,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			BaseImponible:  it.BaseImponible,
			MontoImpuesto:  it.MontoImpuesto,
			Total:          it.Total,
		})
	}
	return resp
}

func notaToResponse(n *model.NotaCredito) dto.NotaCreditoResponse {
	return dto.NotaCreditoResponse{
		ID:               n.ID.String(),
		VentaID:          n.VentaID.String(),
		TipoNota:         n.TipoNota,
		Motivo:           n.Motivo,
		Serie:            n.Serie,
		Correlativo:      n.Correlativo,
		NumeroCompleto:   n.NumeroCompleto,
		BaseImponible:    n.BaseImponible,
		MontoImpuesto:    n.MontoImpuesto,
		Total:            n.Total,
		EstadoAutoridad:  n.EstadoAutoridad,
		MensajeAutoridad: n.MensajeAutoridad,
		CreatedAt:        n.CreatedAt.Format(time.RFC3339),
	}
}
