package mail

import (
	"context"
	"errors"
	"sync"
	"time"

	"doc-library/internal/logging"
	"doc-library/internal/metrics"
)

var (
	ErrQueueFull = errors.New("mail queue full")
	ErrClosed    = errors.New("mail dispatcher closed")
)

// Dispatcher sends queued messages from a single background goroutine.
type Dispatcher struct {
	mailer      Mailer
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	done   chan struct{}
}

// NewDispatcher starts the worker. size bounds the queue.
func NewDispatcher(m Mailer, size int, sendTimeout time.Duration) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	if sendTimeout <= 0 {
		sendTimeout = time.Minute
	}
	d := &Dispatcher{
		mailer:      m,
		sendTimeout: sendTimeout,
		queue:       make(chan Message, size),
		done:        make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue never blocks. A full queue drops msg and returns ErrQueueFull.
func (d *Dispatcher) Enqueue(msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.MailFailuresTotal.WithLabelValues("closed").Inc()
		return ErrClosed
	}
	select {
	case d.queue <- msg:
		metrics.MailQueueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		metrics.MailFailuresTotal.WithLabelValues("queue_full").Inc()
		logging.Error().Str("to", msg.To).Msg("mail queue full, message dropped")
		return ErrQueueFull
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		metrics.MailQueueDepth.Set(float64(len(d.queue)))

		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		err := d.mailer.Send(ctx, msg)
		cancel()

		if err != nil {
			metrics.MailFailuresTotal.WithLabelValues("send").Inc()
			logging.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("mail delivery failed")
			continue
		}
		metrics.MailSentTotal.Inc()
		logging.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail sent")
	}
}

// Close stops accepting messages and waits for queued ones to be sent or
// for ctx to expire, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
