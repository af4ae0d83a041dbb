package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates and validates a go-redis client connection.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// ── Idempotency keys ──────────────────────────────────────────────────────────

// RespuestaGuardada is a response captured for replay under an idempotency key.
type RespuestaGuardada struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ErrEnCurso is returned when another request holds the key.
var ErrEnCurso = errors.New("idempotency key in flight")

// IdempotencyStore keeps one marker per key while the request runs and the
// final response afterwards.
type IdempotencyStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
	prefix  string
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		rdb:     rdb,
		ttl:     ttl,
		lockTTL: time.Minute,
		prefix:  "idem:",
	}
}

// Iniciar claims key for the caller. It returns the stored response when the
// key already completed, or ErrEnCurso if it is still running elsewhere.
func (s *IdempotencyStore) Iniciar(ctx context.Context, key string) (*RespuestaGuardada, error) {
	if r, err := s.obtener(ctx, key); err != nil || r != nil {
		return r, err
	}
	ok, err := s.rdb.SetNX(ctx, s.prefix+key+":lock", "1", s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("idempotency: lock: %w", err)
	}
	if !ok {
		return nil, ErrEnCurso
	}
	// The response may have landed between the read and the lock.
	if r, err := s.obtener(ctx, key); err != nil || r != nil {
		_ = s.Liberar(ctx, key)
		return r, err
	}
	return nil, nil
}

// Completar stores the response and releases the in-flight marker.
func (s *IdempotencyStore) Completar(ctx context.Context, key string, r RespuestaGuardada) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("idempotency: marshal: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.prefix+key, raw, s.ttl)
		p.Del(ctx, s.prefix+key+":lock")
		return nil
	})
	return err
}

// Liberar drops the in-flight marker without storing anything, so the
// client may retry.
func (s *IdempotencyStore) Liberar(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key+":lock").Err()
}

func (s *IdempotencyStore) obtener(ctx context.Context, key string) (*RespuestaGuardada, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency: get: %w", err)
	}
	var r RespuestaGuardada
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("idempotency: decode: %w", err)
	}
	return &r, nil
}

// ── Rate limit ────────────────────────────────────────────────────────────────

// ContadorVentana is a fixed-window request counter shared by every instance.
type ContadorVentana struct {
	rdb    *redis.Client
	prefix string
}

func NewContadorVentana(rdb *redis.Client) *ContadorVentana {
	return &ContadorVentana{rdb: rdb, prefix: "rl:"}
}

// Incrementar counts one hit for key in the current window and returns the
// running count plus the time left in the window.
func (c *ContadorVentana) Incrementar(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	slot := time.Now().UnixNano() / int64(window)
	k := fmt.Sprintf("%s%s:%d", c.prefix, key, slot)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.ExpireNX(ctx, k, window)
		ttl = p.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}
