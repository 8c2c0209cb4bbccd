package resilience

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed lets calls through.
	StateClosed State = iota
	// StateOpen rejects calls.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned while the circuit rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in callbacks.
	Name string `yaml:"name" mapstructure:"name"`
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures" validate:"gte=0"`
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// HalfOpenMaxCalls is the number of probe calls allowed while half-open.
	HalfOpenMaxCalls int `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls"`

	// OnStateChange is called on every transition.
	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-"`
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	cfg := CircuitBreakerConfig{Name: name}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero-value fields.
func (c *CircuitBreakerConfig) ApplyDefaults() {
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = 1
	}
}

// CircuitBreaker fails fast while a downstream service is unhealthy.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	config.ApplyDefaults()
	return &CircuitBreaker{config: config, now: time.Now}
}

// Execute runs fn through the breaker. A non-nil error from fn counts as a
// failure.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.Allow(); err != nil {
		return err
	}
	err := fn()
	cb.Record(err == nil)
	return err
}

// Allow reserves a call. It returns ErrCircuitOpen when the call must not be
// made. Every successful Allow must be followed by one Record.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.current() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxCalls {
			return ErrCircuitOpen
		}
		cb.probes++
	}
	return nil
}

// Record reports the outcome of a call reserved with Allow.
func (cb *CircuitBreaker) Record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.current()
	if success {
		switch state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.successes++
			if cb.successes >= cb.config.HalfOpenMaxCalls {
				cb.transition(StateClosed)
			}
		}
		return
	}

	cb.failures++
	if state == StateHalfOpen || (state == StateClosed && cb.failures >= cb.config.MaxFailures) {
		cb.openedAt = cb.now()
		cb.transition(StateOpen)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current()
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.failures = 0
}

// current moves an expired open circuit to half-open. Callers hold mu.
func (cb *CircuitBreaker) current() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.Timeout {
		cb.transition(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.successes = 0
	cb.probes = 0
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
