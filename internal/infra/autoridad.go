package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// DocumentoFiscal is the payload handed to the tax-authority sidecar. The
// sidecar owns signing and the authority web service; this process only
// tracks the result.
type DocumentoFiscal struct {
	Tipo         string `json:"tipo"` // BOLETA | FACTURA | NOTA_CREDITO
	Serie        string `json:"serie"`
	Correlativo  int64  `json:"correlativo"`
	Fecha        string `json:"fecha"` // YYYY-MM-DD
	EmisorRUC    string `json:"emisor_ruc"`
	EmisorNombre string `json:"emisor_razon_social"`

	ReceptorTipoDocumento   string `json:"receptor_tipo_doc,omitempty"`
	ReceptorNumeroDocumento string `json:"receptor_num_doc,omitempty"`
	ReceptorNombre          string `json:"receptor_nombre,omitempty"`

	BaseImponible string `json:"base_imponible"`
	MontoImpuesto string `json:"monto_impuesto"`
	Total         string `json:"total"`

	// Referencia, TipoNota and Motivo are set for credit notes only
	Referencia string `json:"referencia,omitempty"`
	TipoNota   string `json:"tipo_nota,omitempty"`
	Motivo     string `json:"motivo,omitempty"`
}

// Estados devueltos por la autoridad
const (
	RespuestaAceptado  = "ACEPTADO"
	RespuestaRechazado = "RECHAZADO"
	RespuestaObservado = "OBSERVADO"
)

type RespuestaAutoridad struct {
	Estado  string `json:"estado"`
	Codigo  string `json:"codigo"`
	Mensaje string `json:"mensaje"`
}

// ClienteAutoridad submits one fiscal document and reports the verdict.
type ClienteAutoridad interface {
	Enviar(ctx context.Context, doc DocumentoFiscal) (*RespuestaAutoridad, error)
}

// GatewayAutoridad is an HTTP client for the authority sidecar.
type GatewayAutoridad struct {
	baseURL    string
	httpClient *http.Client
}

func NewGatewayAutoridad(baseURL string) *GatewayAutoridad {
	return &GatewayAutoridad{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *GatewayAutoridad) Enviar(ctx context.Context, doc DocumentoFiscal) (*RespuestaAutoridad, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("autoridad: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documentos", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("autoridad: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("autoridad: sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("autoridad: sidecar returned %d", resp.StatusCode)
	}

	var result RespuestaAutoridad
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("autoridad: decode response: %w", err)
	}
	switch result.Estado {
	case RespuestaAceptado, RespuestaRechazado, RespuestaObservado:
	default:
		return nil, fmt.Errorf("autoridad: estado desconocido %q", result.Estado)
	}
	return &result, nil
}

// AutoridadSimulada accepts every document. Used when no sidecar is configured.
type AutoridadSimulada struct {
	seq atomic.Int64
}

func (a *AutoridadSimulada) Enviar(ctx context.Context, doc DocumentoFiscal) (*RespuestaAutoridad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := a.seq.Add(1)
	return &RespuestaAutoridad{
		Estado:  RespuestaAceptado,
		Codigo:  "0",
		Mensaje: fmt.Sprintf("%s %s-%d aceptado (simulado #%d)", doc.Tipo, doc.Serie, doc.Correlativo, n),
	}, nil
}

// AutoridadProtegida routes every submission through a circuit breaker.
type AutoridadProtegida struct {
	cliente ClienteAutoridad
	cb      *CircuitBreaker
}

func NewAutoridadProtegida(cliente ClienteAutoridad, cb *CircuitBreaker) *AutoridadProtegida {
	return &AutoridadProtegida{cliente: cliente, cb: cb}
}

func (a *AutoridadProtegida) Enviar(ctx context.Context, doc DocumentoFiscal) (*RespuestaAutoridad, error) {
	var out *RespuestaAutoridad
	err := a.cb.Execute(ctx, func(ctx context.Context) error {
		r, err := a.cliente.Enviar(ctx, doc)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, fmt.Errorf("autoridad: %w", err)
	}
	return out, err
}

func (a *AutoridadProtegida) Breaker() *CircuitBreaker { return a.cb }
