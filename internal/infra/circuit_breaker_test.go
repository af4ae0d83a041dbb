package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relojFijo struct{ t time.Time }

func (r *relojFijo) now() time.Time { return r.t }

func newTestBreaker(r *relojFijo) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
		Now:              r.now,
	})
}

var errSidecar = errors.New("sidecar down")

func fallar(context.Context) error { return errSidecar }
func exito(context.Context) error  { return nil }

func TestCircuitBreaker_AbreTrasFallosConsecutivos(t *testing.T) {
	r := &relojFijo{t: time.Now()}
	cb := newTestBreaker(r)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fallar), errSidecar)
	}
	// A success resets the streak.
	require.NoError(t, cb.Execute(ctx, exito))
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fallar), errSidecar)
	}
	assert.Equal(t, CBOpen, cb.State())

	llamado := false
	err := cb.Execute(ctx, func(context.Context) error { llamado = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, llamado)
}

func TestCircuitBreaker_SemiAbiertoCierraConExitos(t *testing.T) {
	r := &relojFijo{t: time.Now()}
	cb := newTestBreaker(r)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fallar)
	}

	r.t = r.t.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, exito))
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, exito))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_SondaFallidaReabre(t *testing.T) {
	r := &relojFijo{t: time.Now()}
	cb := newTestBreaker(r)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fallar)
	}
	r.t = r.t.Add(2 * time.Minute)

	assert.ErrorIs(t, cb.Execute(ctx, fallar), errSidecar)
	assert.Equal(t, CBOpen, cb.State())
}

func TestCircuitBreaker_UnaSondaALaVez(t *testing.T) {
	r := &relojFijo{t: time.Now()}
	cb := newTestBreaker(r)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fallar)
	}
	r.t = r.t.Add(time.Minute)

	err := cb.Execute(ctx, func(ctx context.Context) error {
		// A concurrent caller while the probe is out fails fast.
		assert.ErrorIs(t, cb.Execute(ctx, exito), ErrCircuitOpen)
		return nil
	})
	require.NoError(t, err)
}

func TestCircuitBreaker_CancelacionNoCuenta(t *testing.T) {
	r := &relojFijo{t: time.Now()}
	cb := newTestBreaker(r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	}
	assert.Equal(t, CBClosed, cb.State())
}

// ── Authority clients ─────────────────────────────────────────────────────────

func TestGatewayAutoridad_Enviar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documentos", r.URL.Path)
		var doc DocumentoFiscal
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Equal(t, "B001", doc.Serie)
		_ = json.NewEncoder(w).Encode(RespuestaAutoridad{Estado: RespuestaAceptado, Codigo: "0", Mensaje: "ok"})
	}))
	defer srv.Close()

	resp, err := NewGatewayAutoridad(srv.URL).Enviar(context.Background(), DocumentoFiscal{Tipo: "BOLETA", Serie: "B001", Correlativo: 1})
	require.NoError(t, err)
	assert.Equal(t, RespuestaAceptado, resp.Estado)
}

func TestGatewayAutoridad_EstadoDesconocido(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(RespuestaAutoridad{Estado: "TAL VEZ"})
	}))
	defer srv.Close()

	_, err := NewGatewayAutoridad(srv.URL).Enviar(context.Background(), DocumentoFiscal{})
	assert.Error(t, err)
}

func TestAutoridadProtegida_AbreConSidecarCaido(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := &relojFijo{t: time.Now()}
	cb := newTestBreaker(r)
	cliente := NewAutoridadProtegida(NewGatewayAutoridad(srv.URL), cb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cliente.Enviar(ctx, DocumentoFiscal{})
		require.Error(t, err)
	}
	_, err := cliente.Enviar(ctx, DocumentoFiscal{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, CBOpen, cliente.Breaker().State())
}

func TestAutoridadSimulada_AceptaTodo(t *testing.T) {
	a := &AutoridadSimulada{}
	resp, err := a.Enviar(context.Background(), DocumentoFiscal{Tipo: "BOLETA", Serie: "B001", Correlativo: 9})
	require.NoError(t, err)
	assert.Equal(t, RespuestaAceptado, resp.Estado)
	assert.Contains(t, resp.Mensaje, "B001-9")
}
