package mail

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"doc-library/internal/logging"
	"doc-library/internal/metrics"
)

// BreakerConfig configures the circuit breaker around a Mailer.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32        // consecutive failures before opening
	Timeout          time.Duration // open duration before a half-open probe
}

// BreakerMailer fails fast while the wrapped Mailer keeps failing.
type BreakerMailer struct {
	next Mailer
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerMailer(next Mailer, cfg BreakerConfig) *BreakerMailer {
	if cfg.Name == "" {
		cfg.Name = "smtp"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.MailBreakerState.Set(float64(to))
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("mail circuit breaker state changed")
		},
	}
	return &BreakerMailer{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](st),
	}
}

// Send returns gobreaker.ErrOpenState without calling the wrapped Mailer
// while the breaker is open.
func (b *BreakerMailer) Send(ctx context.Context, msg Message) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Send(ctx, msg)
	})
	return err
}

// State reports the current breaker state.
func (b *BreakerMailer) State() gobreaker.State {
	return b.cb.State()
}
