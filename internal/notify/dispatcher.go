package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"notifygate/internal/notify/mailer"
)

// Dispatcher sends best-effort secondary emails. A failure is logged and
// dropped: never surfaced to the visitor, never retried.
type Dispatcher struct {
	mailer  mailer.Mailer
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher over the given mailer.
func NewDispatcher(m mailer.Mailer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:  m,
		logger:  logger,
		timeout: 15 * time.Second,
	}
}

// SendAsync dispatches msg in the background. The send gets its own context
// so it is not cancelled when the originating request finishes.
func (d *Dispatcher) SendAsync(msg mailer.Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.mailer.Send(ctx, msg); err != nil {
			d.logger.Error("best-effort notification failed",
				"to", msg.To,
				"subject", msg.Subject,
				"error", err,
			)
		}
	}()
}

// Wait blocks until in-flight sends finish. Called during shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
