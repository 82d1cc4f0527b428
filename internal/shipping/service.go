package shipping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jcmexdev/eshop/internal/shipping"

var availableShippingTypes = []string{"Нова Пошта", "Укр Пошта", "Meest Express", "Самовивіз"}

// ListAvailableShippingType returns the supported shipping types. The first
// element is the default choice.
func ListAvailableShippingType() []string {
	return slices.Clone(availableShippingTypes)
}

// Service validates shipment requests, persists records and publishes
// creation events.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   Metrics
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

func WithMetrics(m Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithClock replaces time.Now, mainly for due-date tests.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDGenerator replaces the uuid based shipping id generator.
func WithIDGenerator(gen func() string) Option { return func(s *Service) { s.newID = gen } }

func NewService(repo Repository, publisher Publisher, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		publisher: publisher,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		metrics:   nopMetrics{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListAvailableShippingType() []string {
	return ListAvailableShippingType()
}

// ValidateRequest checks the shipping type and due date without creating
// anything. Callers use it to reject an order before committing stock.
func (s *Service) ValidateRequest(shippingType string, dueDate time.Time) error {
	if !slices.Contains(availableShippingTypes, shippingType) {
		return fmt.Errorf("%w: %q", ErrInvalidShippingType, shippingType)
	}
	if !dueDate.After(s.now()) {
		return fmt.Errorf("%w: %s", ErrInvalidDueDate, dueDate.UTC().Format(time.RFC3339))
	}
	return nil
}

// CreateShipping persists a CREATED shipment and publishes its id. When the
// publish fails the record is removed again, so an order whose placement
// failed leaves no shipment behind.
func (s *Service) CreateShipping(ctx context.Context, shippingType string, productIDs []string, orderID string, dueDate time.Time) (string, error) {
	ctx, span := s.tracer.Start(ctx, "shipping.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("shipping.type", shippingType),
		attribute.Int("shipping.product_count", len(productIDs)),
	)

	if err := s.ValidateRequest(shippingType, dueDate); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	now := s.now().UTC()
	shipment := &Shipment{
		ShippingID:   s.newID(),
		OrderID:      orderID,
		ProductIDs:   slices.Clone(productIDs),
		ShippingType: shippingType,
		Status:       StatusCreated,
		DueDate:      dueDate.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	span.SetAttributes(attribute.String("shipping.id", shipment.ShippingID))

	if err := s.repo.Create(ctx, shipment); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("persist shipment for order %s: %w", orderID, err)
	}

	if err := s.publisher.Publish(ctx, shipment.ShippingID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		// The delete must run even when ctx was what failed the publish.
		if derr := s.repo.Delete(context.WithoutCancel(ctx), shipment.ShippingID); derr != nil {
			s.logger.ErrorContext(ctx, "unpublished shipment could not be removed",
				"shipping_id", shipment.ShippingID, "order_id", orderID, "error", derr)
		}
		return "", fmt.Errorf("publish shipment %s: %w", shipment.ShippingID, err)
	}
	s.metrics.ShipmentTransition(string(StatusCreated))

	s.logger.InfoContext(ctx, "shipment created",
		"shipping_id", shipment.ShippingID,
		"order_id", orderID,
		"shipping_type", shippingType,
		"due_date", shipment.DueDate,
	)
	return shipment.ShippingID, nil
}

func (s *Service) GetShipping(ctx context.Context, shippingID string) (*Shipment, error) {
	return s.repo.Get(ctx, shippingID)
}

// CheckStatus returns the persisted status, or ErrShipmentNotFound.
func (s *Service) CheckStatus(ctx context.Context, shippingID string) (Status, error) {
	shipment, err := s.repo.Get(ctx, shippingID)
	if err != nil {
		return "", err
	}
	return shipment.Status, nil
}

// StartShipping moves a CREATED shipment to IN_PROGRESS and reports whether
// it did. A shipment that is already past CREATED is left alone, so a
// notification delivered twice never completes a shipment.
func (s *Service) StartShipping(ctx context.Context, shippingID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "shipping.start")
	defer span.End()
	span.SetAttributes(attribute.String("shipping.id", shippingID))

	err := s.repo.UpdateStatus(ctx, shippingID, StatusInProgress)
	if errors.Is(err, ErrInvalidTransition) {
		return false, nil
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrShipmentNotFound) {
			return false, err
		}
		return false, fmt.Errorf("start shipment %s: %w", shippingID, err)
	}
	s.metrics.ShipmentTransition(string(StatusInProgress))
	s.logger.InfoContext(ctx, "shipment advanced",
		"shipping_id", shippingID, "from", StatusCreated, "to", StatusInProgress)
	return true, nil
}

// ProcessShipping advances a shipment by one step: CREATED to IN_PROGRESS,
// IN_PROGRESS to COMPLETED. A completed shipment is left alone.
func (s *Service) ProcessShipping(ctx context.Context, shippingID string) (Status, error) {
	ctx, span := s.tracer.Start(ctx, "shipping.process")
	defer span.End()
	span.SetAttributes(attribute.String("shipping.id", shippingID))

	shipment, err := s.repo.Get(ctx, shippingID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if shipment.Status.Terminal() {
		return shipment.Status, nil
	}

	next := shipment.Status.Next()
	if err := s.repo.UpdateStatus(ctx, shippingID, next); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// Another processor advanced it first; report what is stored now.
			return s.CheckStatus(ctx, shippingID)
		}
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("update shipment %s: %w", shippingID, err)
	}
	s.metrics.ShipmentTransition(string(next))
	span.SetAttributes(attribute.String("shipping.status", string(next)))

	s.logger.InfoContext(ctx, "shipment advanced",
		"shipping_id", shippingID, "from", shipment.Status, "to", next)
	return next, nil
}
