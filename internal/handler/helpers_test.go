package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"restopos/internal/apierror"
	"restopos/internal/dto"
	"restopos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRespondError_MapeaTipos(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apierror.NotFound("ORDER_NOT_FOUND", "orden no encontrada"), http.StatusNotFound, "ORDER_NOT_FOUND"},
		{apierror.Conflict("TABLE_OCCUPIED", "mesa ocupada").With("order_id", "x"), http.StatusConflict, "TABLE_OCCUPIED"},
		{apierror.InvalidState("ORDER_NOT_OPEN", "orden cerrada"), http.StatusBadRequest, "ORDER_NOT_OPEN"},
		{apierror.Forbidden("FORBIDDEN_TRANSITION", "sin permiso"), http.StatusForbidden, "FORBIDDEN_TRANSITION"},
		{apierror.Precondition("CASH_REGISTER_REQUIRED", "sin caja"), http.StatusForbidden, "CASH_REGISTER_REQUIRED"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body apierror.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestRespondError_ErrorInternoVaAlMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/", func(c *gin.Context) {
		respondError(c, errors.New("pq: relation \"ordenes\" does not exist"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "relation")
}

func bindRouter() *gin.Engine {
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var req dto.AbrirOrdenRequest
		if !bindAndValidate(c, &req) {
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestBindAndValidate(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"json roto", `{"table_id":`, http.StatusBadRequest},
		{"mesa no es uuid", `{"table_id":"5","diners_count":2}`, http.StatusUnprocessableEntity},
		{"sin comensales", `{"table_id":"` + uuid.NewString() + `"}`, http.StatusUnprocessableEntity},
		{"valido", `{"table_id":"` + uuid.NewString() + `","diners_count":2}`, http.StatusNoContent},
	}
	r := bindRouter()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestValidate_DecimalConTags(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	// amount has gt=0; a zero payment is rejected without a panic.
	ok := validateStruct(c, &dto.PagoSimpleRequest{
		OrdenID:   uuid.NewString(),
		DatosPago: dto.DatosPago{Metodo: "EFECTIVO"},
	})
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUUIDParam(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "mesa-5"}}

	_, ok := uuidParam(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActorFrom_SinClaims(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, ok := actorFrom(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
