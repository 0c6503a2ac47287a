package queue

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a send does not finish in time.  The send
// may still complete later, so callers should treat it as retryable.
var ErrTimeout = errors.New("notification timed out")

// Sender is anything that delivers a message out of band.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// TimeoutSender bounds every Send of the wrapped sender.
type TimeoutSender struct {
	next    Sender
	timeout time.Duration
}

// WithTimeout wraps next so that each Send returns ErrTimeout after d.
func WithTimeout(next Sender, d time.Duration) *TimeoutSender {
	return &TimeoutSender{next: next, timeout: d}
}

func (s *TimeoutSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if s.timeout <= 0 {
		return s.next.Send(ctx, to, subject, htmlBody)
	}
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.next.Send(tctx, to, subject, htmlBody) }()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrTimeout
		}
		return err
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrTimeout
	}
}
