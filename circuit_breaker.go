package synapse

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
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

// errBreakerFailure marks a 5xx response as a breaker failure without
// turning it into a transport error.
var errBreakerFailure = errors.New("server failure")

// CircuitBreaker trips after FailureThreshold consecutive 5xx or network
// failures and rejects calls until RecoveryTimeout has passed.
type CircuitBreaker struct {
	config  CircuitBreakerConfig
	breaker *gobreaker.CircuitBreaker
	onState func(name string, state CircuitState)
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.Name == "" {
		config.Name = "default"
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 2
	}

	cb := &CircuitBreaker{config: config}
	cb.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: uint32(config.SuccessThreshold),
		Timeout:     config.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.FailureThreshold)
		},
		OnStateChange: func(name string, _ gobreaker.State, to gobreaker.State) {
			if cb.onState != nil {
				cb.onState(name, convertGobreakerState(to))
			}
		},
	})
	return cb
}

// Name returns the breaker name used in metrics.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() CircuitState {
	return convertGobreakerState(cb.breaker.State())
}

// execute runs fn through the breaker. fn returns breakerFailure=true for
// results that count as failures but must still reach the caller.
func (cb *CircuitBreaker) execute(fn func() (any, bool, error)) (any, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		res, failed, err := fn()
		if err != nil {
			return res, err
		}
		if failed {
			return res, errBreakerFailure
		}
		return res, nil
	})
	if errors.Is(err, errBreakerFailure) {
		return result, nil
	}
	return result, err
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func convertGobreakerState(state gobreaker.State) CircuitState {
	switch state {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
