package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit matches every OpenError.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// OpenError is returned while a breaker refuses deliveries to its target.
// RetryIn is the remaining cool-off; zero means a trial delivery is in flight.
type OpenError struct {
	Target  string
	RetryIn time.Duration
}

func (e *OpenError) Error() string {
	if e.RetryIn <= 0 {
		return fmt.Sprintf("resilience: %s breaker open, trial delivery in flight", e.Target)
	}
	return fmt.Sprintf("resilience: %s breaker open, retry in %s", e.Target, e.RetryIn.Round(time.Millisecond))
}

// Is lets errors.Is(err, ErrOpenCircuit) match.
func (e *OpenError) Is(target error) bool { return target == ErrOpenCircuit }

type state int

const (
	closed state = iota
	open
	halfOpen
)

func (s state) String() string {
	switch s {
	case closed:
		return "closed"
	case open:
		return "open"
	default:
		return "half_open"
	}
}

// gauge values exported as breaker_state.
func (s state) gauge() float64 {
	return float64(s)
}

// BreakerConfig tunes a Breaker. Target names the provider and labels metrics.
type BreakerConfig struct {
	Target       string
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
	Logger       zerolog.Logger
}

// Breaker stops calling a delivery provider once too many of its recent calls
// failed. It judges the last 2*MinRequests outcomes and, after OpenFor, lets a
// single trial call through before closing again.
type Breaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	state    state
	outcomes []bool
	next     int
	seen     int
	failures int
	openedAt time.Time
	trial    bool
	now      func() time.Time
}

// NewBreaker constructs a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = 1
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = 0.5
	}
	if cfg.FailureRatio > 1 {
		cfg.FailureRatio = 1
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	cfg.Target = strings.TrimSpace(cfg.Target)
	if cfg.Target == "" {
		cfg.Target = "default"
	}
	b := &Breaker{
		cfg:      cfg,
		outcomes: make([]bool, 2*cfg.MinRequests),
		now:      time.Now,
	}
	if BreakerState != nil {
		BreakerState.WithLabelValues(cfg.Target).Set(closed.gauge())
	}
	return b
}

// Target is the provider the breaker guards.
func (b *Breaker) Target() string { return b.cfg.Target }

// Allow returns nil when a call may proceed and an *OpenError otherwise.
func (b *Breaker) Allow(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case open:
		if wait := b.cfg.OpenFor - b.now().Sub(b.openedAt); wait > 0 {
			return &OpenError{Target: b.cfg.Target, RetryIn: wait}
		}
		b.transitionLocked(ctx, halfOpen)
		b.trial = true
		return nil
	case halfOpen:
		if b.trial {
			return &OpenError{Target: b.cfg.Target}
		}
		b.trial = true
		return nil
	default:
		return nil
	}
}

// Report records the outcome of a call admitted by Allow.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case open:
		return
	case halfOpen:
		b.trial = false
		if success {
			b.transitionLocked(ctx, closed)
		} else {
			b.transitionLocked(ctx, open)
		}
		return
	}

	b.recordLocked(!success)
	if b.seen >= b.cfg.MinRequests && float64(b.failures)/float64(b.seen) >= b.cfg.FailureRatio {
		b.transitionLocked(ctx, open)
	}
}

// recordLocked pushes one outcome into the ring, evicting the oldest.
func (b *Breaker) recordLocked(failed bool) {
	if b.seen == len(b.outcomes) {
		if b.outcomes[b.next] {
			b.failures--
		}
	} else {
		b.seen++
	}
	b.outcomes[b.next] = failed
	if failed {
		b.failures++
	}
	b.next = (b.next + 1) % len(b.outcomes)
}

func (b *Breaker) transitionLocked(ctx context.Context, to state) {
	from := b.state
	b.state = to
	b.next, b.seen, b.failures = 0, 0, 0
	if to == open {
		b.openedAt = b.now()
	}

	target := b.cfg.Target
	if BreakerState != nil {
		BreakerState.WithLabelValues(target).Set(to.gauge())
	}
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(target, from.String(), to.String()).Inc()
	}
	if to == open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(target).Inc()
	}

	evt := b.cfg.Logger.Warn()
	if to == closed {
		evt = b.cfg.Logger.Info()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Str("provider", target).Str("from_state", from.String()).Str("to_state", to.String()).Msg("delivery breaker transition")
}
