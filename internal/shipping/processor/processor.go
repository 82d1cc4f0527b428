// Package processor is the downstream worker that picks up shipment
// notifications and starts processing the shipments they name.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jcmexdev/eshop/internal/shipping"
)

// Advancer starts a shipment, moving it from CREATED to IN_PROGRESS. It
// must leave a shipment that is already past CREATED unchanged.
type Advancer interface {
	StartShipping(ctx context.Context, shippingID string) (bool, error)
}

// MaxAttempts bounds how many ticks a failing shipment is retried on.
const MaxAttempts = 5

type retry struct {
	id       string
	attempts int
}

// Processor is driven by a single goroutine; Tick is not safe for
// concurrent use.
type Processor struct {
	consumer shipping.Consumer
	svc      Advancer
	interval time.Duration
	logger   *slog.Logger
	retries  []retry
}

func New(consumer shipping.Consumer, svc Advancer, interval time.Duration, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Processor{consumer: consumer, svc: svc, interval: interval, logger: logger}
}

// Run polls until ctx is cancelled. Poll errors are logged and retried on the
// next tick.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "shipment processor started", "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Tick(ctx); err != nil && ctx.Err() == nil {
			p.logger.ErrorContext(ctx, "poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "shipment processor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick handles the shipments that failed on earlier ticks and then one
// polled batch, returning how many it moved to IN_PROGRESS. A shipment that
// fails is kept for the next tick, up to MaxAttempts; unknown shipments are
// dropped. The poll error, if any, is returned after the batch is handled.
func (p *Processor) Tick(ctx context.Context) (int, error) {
	ids, pollErr := p.consumer.Poll(ctx)

	work := p.retries
	p.retries = nil
	for _, id := range ids {
		work = append(work, retry{id: id})
	}

	advanced := 0
	for _, r := range work {
		if ctx.Err() != nil {
			p.retries = append(p.retries, r)
			continue
		}
		started, err := p.svc.StartShipping(ctx, r.id)
		switch {
		case errors.Is(err, shipping.ErrShipmentNotFound):
			p.logger.WarnContext(ctx, "notification for unknown shipment", "shipping_id", r.id)
		case err != nil:
			r.attempts++
			if r.attempts >= MaxAttempts {
				p.logger.ErrorContext(ctx, "giving up on shipment",
					"shipping_id", r.id, "attempts", r.attempts, "error", err)
				continue
			}
			p.logger.ErrorContext(ctx, "process shipment",
				"shipping_id", r.id, "attempts", r.attempts, "error", err)
			p.retries = append(p.retries, r)
		case started:
			advanced++
		default:
			p.logger.InfoContext(ctx, "shipment already past CREATED", "shipping_id", r.id)
		}
	}
	return advanced, pollErr
}

// Pending reports how many failed shipments wait for the next tick.
func (p *Processor) Pending() int { return len(p.retries) }
