package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrOpen            = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests while half-open")
)

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

type Settings struct {
	Name string
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker rejects calls before probing.
	OpenTimeout time.Duration
	// HalfOpenRequests successful probes close it again.
	HalfOpenRequests uint32
	OnStateChange    func(name string, from, to State)
}

// CircuitBreaker stops calling a dependency that keeps failing. Results of
// calls that started before a state change are ignored.
type CircuitBreaker struct {
	settings Settings

	mutex       sync.Mutex
	state       State
	generation  uint64
	failures    uint32
	successes   uint32
	inFlight    uint32
	openedUntil time.Time
	now         func() time.Time
}

func New(st Settings) *CircuitBreaker {
	if st.FailureThreshold == 0 {
		st.FailureThreshold = 5
	}
	if st.OpenTimeout <= 0 {
		st.OpenTimeout = 30 * time.Second
	}
	if st.HalfOpenRequests == 0 {
		st.HalfOpenRequests = 1
	}
	return &CircuitBreaker{settings: st, now: time.Now}
}

func (cb *CircuitBreaker) Name() string {
	return cb.settings.Name
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	generation, err := cb.beforeCall()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.afterCall(generation, false)
			panic(r)
		}
	}()

	err = fn()
	cb.afterCall(generation, err == nil)
	return err
}

func (cb *CircuitBreaker) beforeCall() (uint64, error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.currentState() {
	case StateOpen:
		return cb.generation, ErrOpen
	case StateHalfOpen:
		if cb.inFlight >= cb.settings.HalfOpenRequests {
			return cb.generation, ErrTooManyRequests
		}
	}

	cb.inFlight++
	return cb.generation, nil
}

func (cb *CircuitBreaker) afterCall(generation uint64, success bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	state := cb.currentState()
	if generation != cb.generation {
		return
	}
	cb.inFlight--

	if success {
		cb.failures = 0
		cb.successes++
		if state == StateHalfOpen && cb.successes >= cb.settings.HalfOpenRequests {
			cb.setState(StateClosed)
		}
		return
	}

	cb.successes = 0
	cb.failures++
	if state == StateHalfOpen || cb.failures >= cb.settings.FailureThreshold {
		cb.setState(StateOpen)
	}
}

// currentState moves an expired open breaker to half-open. Callers hold the
// mutex.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && !cb.now().Before(cb.openedUntil) {
		cb.setState(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) setState(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to
	cb.generation++
	cb.failures = 0
	cb.successes = 0
	cb.inFlight = 0
	if to == StateOpen {
		cb.openedUntil = cb.now().Add(cb.settings.OpenTimeout)
	}

	if cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.settings.Name, from, to)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.currentState()
}
