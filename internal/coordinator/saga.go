// Package coordinator runs a sequence of compensable steps. When a step
// fails, the steps that already succeeded are compensated in reverse order.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/eshop/internal/coordinator/sagalog"
)

// Step represents a single unit of work in the saga.
// Compensate must undo what Execute did; steps with nothing to undo return nil.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Orchestrator manages the execution of a collection of Steps for one saga.
type Orchestrator struct {
	sagaID  string
	steps   []Step
	log     sagalog.Repository
	logger  *slog.Logger
	tracer  trace.Tracer
	payload string
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// WithPayload attaches the JSON input of the saga to its STARTED log row.
func WithPayload(payload string) Option { return func(o *Orchestrator) { o.payload = payload } }

// NewOrchestrator builds an orchestrator. log may be nil, in which case no
// placement log rows are written.
func NewOrchestrator(sagaID string, steps []Step, log sagalog.Repository, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sagaID: sagaID,
		steps:  steps,
		log:    log,
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/jcmexdev/eshop/internal/coordinator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start runs the steps sequentially. If a step fails, every previously
// successful step is compensated (LIFO) and the step's error is returned
// as is.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, span := o.tracer.Start(ctx, "saga "+o.sagaID)
	defer span.End()
	span.SetAttributes(attribute.String("saga.id", o.sagaID), attribute.Int("saga.steps", len(o.steps)))

	o.record(ctx, sagalog.StatusStarted, "", o.payload, nil)

	var successfulSteps []Step
	for _, step := range o.steps {
		o.logger.DebugContext(ctx, "executing step", "saga_id", o.sagaID, "step", step.Name())

		if err := o.execute(ctx, step); err != nil {
			o.logger.WarnContext(ctx, "step failed, rolling back",
				"saga_id", o.sagaID, "step", step.Name(), "error", err)
			span.SetStatus(codes.Error, err.Error())

			errs := []string{fmt.Sprintf("step %s failed: %v", step.Name(), err)}
			o.record(ctx, sagalog.StatusCompensating, step.Name(), "", errs)
			errs = append(errs, o.rollback(ctx, successfulSteps)...)
			o.record(ctx, sagalog.StatusFailed, step.Name(), "", errs)
			return err
		}
		successfulSteps = append(successfulSteps, step)
		o.record(ctx, sagalog.StatusStepDone, step.Name(), "", nil)
	}

	o.record(ctx, sagalog.StatusCompleted, "", "", nil)
	o.logger.DebugContext(ctx, "saga completed", "saga_id", o.sagaID)
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, step Step) error {
	ctx, span := o.tracer.Start(ctx, step.Name())
	defer span.End()
	if err := step.Execute(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// rollback compensates steps in reverse and returns the compensation errors.
func (o *Orchestrator) rollback(ctx context.Context, steps []Step) []string {
	var errs []string
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		o.logger.InfoContext(ctx, "compensating step", "saga_id", o.sagaID, "step", step.Name())
		if err := step.Compensate(ctx); err != nil {
			o.logger.ErrorContext(ctx, "compensation failed",
				"saga_id", o.sagaID, "step", step.Name(), "error", err)
			errs = append(errs, fmt.Sprintf("compensation of %s failed: %v", step.Name(), err))
		}
	}
	return errs
}

// record appends a placement log row. A log write failure never changes the
// outcome of the saga.
func (o *Orchestrator) record(ctx context.Context, status sagalog.Status, step, payload string, errs []string) {
	if o.log == nil {
		return
	}
	entry := sagalog.NewEntry(ctx, o.sagaID, status, step, payload, errs)
	if err := o.log.Save(ctx, entry); err != nil {
		o.logger.ErrorContext(ctx, "placement log write failed",
			"saga_id", o.sagaID, "status", status, "error", err)
	}
}
