package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/p-iacone88/booksearch/internal/domain/user"
)

var ErrCircuitOpen = errors.New("profile cache circuit open")

type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half_open"
)

type ProtectedConfig struct {
	Timeout          time.Duration // hard timeout per call
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

// ProtectedProfiles wraps a remote Profiles with a per-call timeout and a
// circuit breaker, so an unhealthy cache fails fast instead of slowing every
// request down.
type ProtectedProfiles struct {
	inner Profiles
	cfg   ProtectedConfig
	now   func() time.Time

	mu                  sync.Mutex
	state               breakerState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtectedProfiles(inner Profiles, cfg ProtectedConfig) *ProtectedProfiles {
	//defaults
	if cfg.Timeout <= 0 {
		cfg.Timeout = 200 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedProfiles{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: stateClosed,
	}
}

func (p *ProtectedProfiles) Get(ctx context.Context, id string) (user.User, bool, error) {
	var (
		u   user.User
		hit bool
	)

	err := p.call(ctx, func(ctx context.Context) error {
		var err error
		u, hit, err = p.inner.Get(ctx, id)
		return err
	})

	return u, hit, err
}

func (p *ProtectedProfiles) Set(ctx context.Context, u user.User) error {
	return p.call(ctx, func(ctx context.Context) error {
		return p.inner.Set(ctx, u)
	})
}

func (p *ProtectedProfiles) Delete(ctx context.Context, id string) error {
	return p.call(ctx, func(ctx context.Context) error {
		return p.inner.Delete(ctx, id)
	})
}

func (p *ProtectedProfiles) call(ctx context.Context, fn func(ctx context.Context) error) error {
	// fail-fast gate
	if !p.allowRequest() {
		return ErrCircuitOpen
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	err := fn(callCtx)

	p.afterRequest(err)

	return err
}

func (p *ProtectedProfiles) allowRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateOpen:
		if p.now().Sub(p.openedAt) >= p.cfg.Cooldown {
			p.state = stateHalfOpen
			p.halfOpenInFlight = 1
			return true
		}
		return false
	case stateHalfOpen:
		if p.halfOpenInFlight >= p.cfg.HalfOpenMaxCalls {
			return false
		}
		p.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (p *ProtectedProfiles) afterRequest(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateHalfOpen && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}

	if err == nil {
		p.consecutiveFailures = 0
		p.state = stateClosed
		return
	}

	p.consecutiveFailures++

	// a failed trial reopens immediately
	if p.state == stateHalfOpen || p.consecutiveFailures >= p.cfg.FailureThreshold {
		p.state = stateOpen
		p.openedAt = p.now()
	}
}
