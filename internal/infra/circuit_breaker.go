package infra

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Closed → Open → Half-Open. Guards the authority sidecar so a dead sidecar
// costs one fast failure per submission instead of a 30s timeout.
//
// Half-open lets exactly one probe through; concurrent callers fail fast
// until the probe reports back.

type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling fn while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures to trip open
	SuccessThreshold int           // consecutive probe successes to close
	OpenTimeout      time.Duration // time spent open before probing
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}
}

type CircuitBreaker struct {
	mu        sync.Mutex
	cfg       CircuitBreakerConfig
	state     CBState
	fallos    int
	exitos    int
	abiertoAt time.Time
	probando  bool
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg, state: CBClosed}
}

// State reports the current state, promoting open to half-open once the
// timeout has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.avanzar()
	return cb.state
}

// Execute runs fn unless the breaker is open. Context cancellation by the
// caller is not counted as a failure of the protected service.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.admitir(); err != nil {
		return err
	}
	err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CBHalfOpen {
		cb.probando = false
	}
	switch {
	case err == nil:
		cb.registrarExito()
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// caller gave up, not the sidecar's fault
	default:
		cb.registrarFallo()
	}
	return err
}

func (cb *CircuitBreaker) admitir() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.avanzar()
	switch cb.state {
	case CBOpen:
		return ErrCircuitOpen
	case CBHalfOpen:
		if cb.probando {
			return ErrCircuitOpen
		}
		cb.probando = true
	}
	return nil
}

// avanzar must be called under lock.
func (cb *CircuitBreaker) avanzar() {
	if cb.state == CBOpen && cb.cfg.Now().Sub(cb.abiertoAt) >= cb.cfg.OpenTimeout {
		cb.state = CBHalfOpen
		cb.exitos = 0
		cb.probando = false
	}
}

func (cb *CircuitBreaker) registrarFallo() {
	switch cb.state {
	case CBClosed:
		cb.fallos++
		if cb.fallos >= cb.cfg.FailureThreshold {
			cb.abrir()
		}
	case CBHalfOpen:
		cb.abrir()
	}
}

func (cb *CircuitBreaker) registrarExito() {
	switch cb.state {
	case CBClosed:
		cb.fallos = 0
	case CBHalfOpen:
		cb.exitos++
		if cb.exitos >= cb.cfg.SuccessThreshold {
			cb.state = CBClosed
			cb.fallos = 0
			cb.exitos = 0
		}
	}
}

func (cb *CircuitBreaker) abrir() {
	cb.state = CBOpen
	cb.abiertoAt = cb.cfg.Now()
	cb.fallos = 0
	cb.exitos = 0
}
