package notification

import (
	"context"
	"io"

	"shape/pkg/circuitbreaker"
	"shape/pkg/logger"
	"shape/pkg/metrics"
)

// BreakerSender stops hitting a mail backend that keeps failing. While the
// breaker is open, Send fails fast with circuitbreaker.ErrOpen.
type BreakerSender struct {
	next    Sender
	breaker *circuitbreaker.CircuitBreaker
}

func NewBreakerSender(next Sender, settings circuitbreaker.Settings, log logger.Logger) *BreakerSender {
	log = log.Named("circuit_breaker")

	settings.OnStateChange = func(name string, from, to circuitbreaker.State) {
		metrics.SetCircuitBreakerState(name, int(to))
		log.Warn("Circuit breaker state changed", map[string]interface{}{
			"name": name,
			"from": from.String(),
			"to":   to.String(),
		})
	}
	metrics.SetCircuitBreakerState(settings.Name, int(circuitbreaker.StateClosed))

	return &BreakerSender{
		next:    next,
		breaker: circuitbreaker.New(settings),
	}
}

func (s *BreakerSender) Send(ctx context.Context, msg WelcomeEmail) error {
	return s.breaker.Execute(func() error {
		return s.next.Send(ctx, msg)
	})
}

func (s *BreakerSender) State() circuitbreaker.State {
	return s.breaker.State()
}

func (s *BreakerSender) Close() error {
	if closer, ok := s.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
