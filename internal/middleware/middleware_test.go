package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"restopos/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-256-bits-long-enough!!"

func init() { gin.SetMode(gin.TestMode) }

func firmar(t *testing.T, claims JWTClaims, secret string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func claimsValidas(rol string) JWTClaims {
	return JWTClaims{
		UserID:   uuid.NewString(),
		Username: "ana",
		Rol:      rol,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

// ── Auth ──────────────────────────────────────────────────────────────────────

func authRouter() *gin.Engine {
	r := gin.New()
	r.GET("/caja", JWTAuth(testSecret), RequireRole("cajero", "administrador"), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).Rol)
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	expirado := claimsValidas("cajero")
	expirado.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	sinUsuario := claimsValidas("cajero")
	sinUsuario.UserID = "7"

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"sin header", "", http.StatusUnauthorized},
		{"esquema incorrecto", "Basic abc", http.StatusUnauthorized},
		{"firma ajena", "Bearer " + firmar(t, claimsValidas("cajero"), "otra"), http.StatusUnauthorized},
		{"expirado", "Bearer " + firmar(t, expirado, testSecret), http.StatusUnauthorized},
		{"usuario invalido", "Bearer " + firmar(t, sinUsuario, testSecret), http.StatusUnauthorized},
		{"rol sin permiso", "Bearer " + firmar(t, claimsValidas("mozo"), testSecret), http.StatusForbidden},
		{"cajero", "Bearer " + firmar(t, claimsValidas("cajero"), testSecret), http.StatusOK},
	}
	r := authRouter()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/caja", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestGetClaims_SinAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetClaims(c))
}

// ── Rate limit ────────────────────────────────────────────────────────────────

type contadorCaido struct{}

func (contadorCaido) Incrementar(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis: connection refused")
}

func TestRateLimiter_UsaContadorLocalSiRedisFalla(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(contadorCaido{}, 2, time.Minute))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestContadorLocal_VentanaSeReinicia(t *testing.T) {
	l := NewContadorLocal()
	ahora := time.Now()
	l.now = func() time.Time { return ahora }
	ctx := context.Background()

	n, ttl, _ := l.Incrementar(ctx, "k", time.Minute)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, time.Minute, ttl)
	n, _, _ = l.Incrementar(ctx, "k", time.Minute)
	assert.Equal(t, int64(2), n)

	ahora = ahora.Add(61 * time.Second)
	n, _, _ = l.Incrementar(ctx, "k", time.Minute)
	assert.Equal(t, int64(1), n)
}

// ── Idempotency ───────────────────────────────────────────────────────────────

type memIdem struct {
	mu        sync.Mutex
	guardadas map[string]infra.RespuestaGuardada
	enCurso   map[string]bool
	caido     bool
}

func newMemIdem() *memIdem {
	return &memIdem{guardadas: map[string]infra.RespuestaGuardada{}, enCurso: map[string]bool{}}
}

func (m *memIdem) Iniciar(_ context.Context, key string) (*infra.RespuestaGuardada, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.caido {
		return nil, errors.New("redis down")
	}
	if r, ok := m.guardadas[key]; ok {
		return &r, nil
	}
	if m.enCurso[key] {
		return nil, infra.ErrEnCurso
	}
	m.enCurso[key] = true
	return nil, nil
}

func (m *memIdem) Completar(_ context.Context, key string, r infra.RespuestaGuardada) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guardadas[key] = r
	delete(m.enCurso, key)
	return nil
}

func (m *memIdem) Liberar(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.enCurso, key)
	return nil
}

func idemRouter(store IdempotencyBackend, status *int, llamadas *int) *gin.Engine {
	r := gin.New()
	r.POST("/v1/payments", Idempotency(store), func(c *gin.Context) {
		*llamadas++
		c.JSON(*status, gin.H{"n": *llamadas})
	})
	return r
}

func post(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/payments", nil)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_RepiteRespuestaGuardada(t *testing.T) {
	store := newMemIdem()
	status, llamadas := http.StatusCreated, 0
	r := idemRouter(store, &status, &llamadas)

	w1 := post(r, "abc")
	w2 := post(r, "abc")

	assert.Equal(t, 1, llamadas)
	assert.Equal(t, http.StatusCreated, w2.Code)
	assert.JSONEq(t, w1.Body.String(), w2.Body.String())
	assert.Equal(t, "true", w2.Header().Get(IdempotencyReplayHeader))
	assert.Empty(t, w1.Header().Get(IdempotencyReplayHeader))

	post(r, "otra")
	assert.Equal(t, 2, llamadas)
}

func TestIdempotency_SinHeaderNoGuarda(t *testing.T) {
	store := newMemIdem()
	status, llamadas := http.StatusCreated, 0
	r := idemRouter(store, &status, &llamadas)

	post(r, "")
	post(r, "")
	assert.Equal(t, 2, llamadas)
	assert.Empty(t, store.guardadas)
}

func TestIdempotency_ErrorDeServidorLiberaLaClave(t *testing.T) {
	store := newMemIdem()
	status, llamadas := http.StatusInternalServerError, 0
	r := idemRouter(store, &status, &llamadas)

	post(r, "k")
	status = http.StatusCreated
	w := post(r, "k")

	assert.Equal(t, 2, llamadas)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestIdempotency_ErrorInternoNoSeGuarda(t *testing.T) {
	store := newMemIdem()
	llamadas := 0
	r := gin.New()
	r.Use(ErrorHandler())
	r.POST("/v1/payments", Idempotency(store), func(c *gin.Context) {
		llamadas++
		if llamadas == 1 {
			_ = c.Error(errors.New("pq: could not serialize access due to concurrent update"))
			return
		}
		c.JSON(http.StatusCreated, gin.H{"n": llamadas})
	})

	w := post(r, "k")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, store.guardadas)
	assert.Empty(t, store.enCurso)

	w = post(r, "k")
	assert.Equal(t, 2, llamadas)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get(IdempotencyReplayHeader))
}

func TestIdempotency_ErrorDeNegocioSeGuarda(t *testing.T) {
	store := newMemIdem()
	status, llamadas := http.StatusBadRequest, 0
	r := idemRouter(store, &status, &llamadas)

	post(r, "k")
	w := post(r, "k")
	assert.Equal(t, 1, llamadas)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdempotency_EnCursoYCaido(t *testing.T) {
	store := newMemIdem()
	store.enCurso["/v1/payments:k"] = true
	status, llamadas := http.StatusCreated, 0
	r := idemRouter(store, &status, &llamadas)

	w := post(r, "k")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "IDEMPOTENCY_IN_FLIGHT")

	store.caido = true
	w = post(r, "z")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Zero(t, llamadas)
}

// ── CORS ──────────────────────────────────────────────────────────────────────

func TestCORS_OrigenesConfigurados(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://caja.local"}))
	r.POST("/v1/payments", func(c *gin.Context) { c.Status(http.StatusCreated) })

	pedir := func(method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/v1/payments", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := pedir(http.MethodOptions, "https://caja.local")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://caja.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), IdempotencyHeader)
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), IdempotencyReplayHeader)

	w = pedir(http.MethodPost, "https://otro.example")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// ── Request ID ────────────────────────────────────────────────────────────────

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "caja-3-0001")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "caja-3-0001", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "caja-3-0001", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRecovery_NoExponePanico(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(c *gin.Context) { panic("nil map in salon") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "nil map")
}
