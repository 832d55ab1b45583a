// Package resilience wraps calls to the upstream artifact marketplace
// (C6 Sync Engine) with a circuit breaker so a flaky or slow
// marketplace can't cascade into stuck syncs.
package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// CircuitBreaker implements the three-state (closed/open/half-open)
// circuit breaker pattern around a fallible operation.
type CircuitBreaker struct {
	name            string
	config          *CircuitBreakerConfig
	state           State
	failures        uint32
	successes       uint32
	requests        uint32
	lastFailureTime time.Time
	lastStateChange time.Time
	mu              sync.RWMutex
	metrics         *CircuitBreakerMetrics
	stateListeners  []StateChangeListener
}

// State represents circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

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

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	FailureThreshold    uint32        `yaml:"failure_threshold"`
	SuccessThreshold    uint32        `yaml:"success_threshold"`
	FailureRatio        float64       `yaml:"failure_ratio"`
	MinimumRequestCount uint32        `yaml:"minimum_request_count"`
}

// DefaultMarketplaceConfig tunes the breaker for the upstream
// marketplace sync path: tolerate brief blips, trip fast on sustained
// failure, and recover cautiously.
func DefaultMarketplaceConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxRequests:         5,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		FailureThreshold:    5,
		SuccessThreshold:    2,
		FailureRatio:        0.5,
		MinimumRequestCount: 10,
	}
}

// CircuitBreakerMetrics tracks circuit breaker activity.
type CircuitBreakerMetrics struct {
	TotalRequests     int64
	TotalFailures     int64
	TotalSuccesses    int64
	ConsecutiveErrors int64
	LastFailureTime   time.Time
	StateChanges      int64
	CurrentState      string
}

// StateChangeListener is notified on every state transition.
type StateChangeListener func(from, to State, metrics *CircuitBreakerMetrics)

func NewCircuitBreaker(name string, config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultMarketplaceConfig()
	}
	return &CircuitBreaker{
		name:            name,
		config:          config,
		state:           StateClosed,
		lastStateChange: time.Now(),
		metrics:         &CircuitBreakerMetrics{},
	}
}

// Execute runs fn under circuit breaker protection.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.ExecuteContext(context.Background(), func(ctx context.Context) (interface{}, error) {
		return fn()
	})
}

// ExecuteContext runs fn under circuit breaker protection, applying the
// configured timeout to ctx.
func (cb *CircuitBreaker) ExecuteContext(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	if err := cb.beforeRequest(); err != nil {
		return nil, err
	}

	if cb.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cb.config.Timeout)
		defer cancel()
	}

	result, err := fn(ctx)
	cb.afterRequest(err)
	return result, err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	switch cb.state {
	case StateOpen:
		if now.Sub(cb.lastStateChange) > cb.config.Timeout {
			cb.transitionTo(StateHalfOpen)
			cb.requests = 0
			return nil
		}
		cb.metrics.TotalRequests++
		return ErrCircuitBreakerOpen

	case StateHalfOpen:
		if cb.requests >= cb.config.MaxRequests {
			return ErrTooManyRequests
		}
		cb.requests++
		cb.metrics.TotalRequests++
		return nil

	default: // StateClosed
		if cb.config.Interval > 0 && now.Sub(cb.lastStateChange) > cb.config.Interval {
			cb.failures = 0
			cb.successes = 0
			cb.requests = 0
		}
		cb.requests++
		cb.metrics.TotalRequests++
		return nil
	}
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.successes++
	atomic.AddInt64(&cb.metrics.TotalSuccesses, 1)
	atomic.StoreInt64(&cb.metrics.ConsecutiveErrors, 0)

	if cb.state == StateHalfOpen && cb.successes >= cb.config.SuccessThreshold {
		cb.transitionTo(StateClosed)
		cb.failures = 0
		cb.successes = 0
		cb.requests = 0
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailureTime = time.Now()
	atomic.AddInt64(&cb.metrics.TotalFailures, 1)
	atomic.AddInt64(&cb.metrics.ConsecutiveErrors, 1)
	cb.metrics.LastFailureTime = cb.lastFailureTime

	switch cb.state {
	case StateClosed:
		if cb.shouldOpen() {
			cb.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		cb.transitionTo(StateOpen)
	}
}

func (cb *CircuitBreaker) shouldOpen() bool {
	if cb.requests < cb.config.MinimumRequestCount {
		return false
	}
	if cb.failures >= cb.config.FailureThreshold {
		return true
	}
	if cb.config.FailureRatio > 0 && cb.requests > 0 {
		ratio := float64(cb.failures) / float64(cb.requests)
		return ratio >= cb.config.FailureRatio
	}
	return false
}

func (cb *CircuitBreaker) transitionTo(state State) {
	if cb.state == state {
		return
	}
	from := cb.state
	cb.state = state
	cb.lastStateChange = time.Now()
	atomic.AddInt64(&cb.metrics.StateChanges, 1)
	cb.metrics.CurrentState = state.String()

	for _, listener := range cb.stateListeners {
		go listener(from, state, cb.metrics)
	}
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

func (cb *CircuitBreaker) GetMetrics() *CircuitBreakerMetrics {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return &CircuitBreakerMetrics{
		TotalRequests:     atomic.LoadInt64(&cb.metrics.TotalRequests),
		TotalFailures:     atomic.LoadInt64(&cb.metrics.TotalFailures),
		TotalSuccesses:    atomic.LoadInt64(&cb.metrics.TotalSuccesses),
		ConsecutiveErrors: atomic.LoadInt64(&cb.metrics.ConsecutiveErrors),
		LastFailureTime:   cb.metrics.LastFailureTime,
		StateChanges:      atomic.LoadInt64(&cb.metrics.StateChanges),
		CurrentState:      cb.state.String(),
	}
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
	cb.lastStateChange = time.Now()
}

func (cb *CircuitBreaker) AddStateChangeListener(listener StateChangeListener) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.stateListeners = append(cb.stateListeners, listener)
}

var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrTooManyRequests    = errors.New("too many requests in half-open state")
)

// CircuitBreakerGroup keys one breaker per remote (e.g. per marketplace
// host), creating them lazily on first use.
type CircuitBreakerGroup struct {
	breakers map[string]*CircuitBreaker
	config   *CircuitBreakerConfig
	mu       sync.RWMutex
}

func NewCircuitBreakerGroup(config *CircuitBreakerConfig) *CircuitBreakerGroup {
	return &CircuitBreakerGroup{breakers: make(map[string]*CircuitBreaker), config: config}
}

func (cbg *CircuitBreakerGroup) Get(key string) *CircuitBreaker {
	cbg.mu.RLock()
	cb, exists := cbg.breakers[key]
	cbg.mu.RUnlock()
	if exists {
		return cb
	}

	cbg.mu.Lock()
	defer cbg.mu.Unlock()
	if cb, exists = cbg.breakers[key]; exists {
		return cb
	}
	cb = NewCircuitBreaker(key, cbg.config)
	cbg.breakers[key] = cb
	return cb
}

func (cbg *CircuitBreakerGroup) Execute(key string, fn func() (interface{}, error)) (interface{}, error) {
	return cbg.Get(key).Execute(fn)
}

func (cbg *CircuitBreakerGroup) GetMetrics() map[string]*CircuitBreakerMetrics {
	cbg.mu.RLock()
	defer cbg.mu.RUnlock()
	result := make(map[string]*CircuitBreakerMetrics, len(cbg.breakers))
	for k, v := range cbg.breakers {
		result[k] = v.GetMetrics()
	}
	return result
}

func (cbg *CircuitBreakerGroup) ResetAll() {
	cbg.mu.RLock()
	defer cbg.mu.RUnlock()
	for _, cb := range cbg.breakers {
		cb.Reset()
	}
}
