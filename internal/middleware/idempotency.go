package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"restopos/internal/apierror"
	"restopos/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	IdempotencyHeader       = "Idempotency-Key"
	IdempotencyReplayHeader = "Idempotency-Replayed"
)

// IdempotencyBackend is implemented by infra.IdempotencyStore.
type IdempotencyBackend interface {
	Iniciar(ctx context.Context, key string) (*infra.RespuestaGuardada, error)
	Completar(ctx context.Context, key string, r infra.RespuestaGuardada) error
	Liberar(ctx context.Context, key string) error
}

type capturaWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturaWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturaWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Requests without the header pass through untouched. Keys are scoped per
// user and route so two cashiers can never collide.
func Idempotency(store IdempotencyBackend) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(IdempotencyHeader)
		if raw == "" {
			c.Next()
			return
		}
		if len(raw) > 128 {
			c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New("Idempotency-Key demasiado largo"))
			return
		}

		key := c.FullPath() + ":" + raw
		if claims := GetClaims(c); claims != nil {
			key = claims.UserID + ":" + key
		}

		ctx := c.Request.Context()
		prev, err := store.Iniciar(ctx, key)
		switch {
		case errors.Is(err, infra.ErrEnCurso):
			c.AbortWithStatusJSON(http.StatusConflict, &apierror.APIError{
				Detail: "Una solicitud con la misma Idempotency-Key esta en curso",
				Code:   "IDEMPOTENCY_IN_FLIGHT",
			})
			return
		case err != nil:
			log.Warn().Err(err).Msg("idempotency store unavailable")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, apierror.New("Servicio de idempotencia no disponible"))
			return
		case prev != nil:
			c.Header(IdempotencyReplayHeader, "true")
			c.Data(prev.Status, prev.ContentType, prev.Body)
			c.Abort()
			return
		}

		w := &capturaWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// Detached from the request so a client hang-up still settles the key.
		bg := context.WithoutCancel(ctx)
		// Errors pushed with c.Error are only written by ErrorHandler after this
		// returns, so the writer still reports 200 for them.
		status := w.Status()
		if len(c.Errors) > 0 || !w.Written() || status >= http.StatusInternalServerError {
			if err := store.Liberar(bg, key); err != nil {
				log.Warn().Err(err).Msg("idempotency: release failed")
			}
			return
		}
		err = store.Completar(bg, key, infra.RespuestaGuardada{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		})
		if err != nil {
			log.Warn().Err(err).Msg("idempotency: store response failed")
		}
	}
}
