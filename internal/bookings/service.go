package bookings

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/spa-line-booking/internal/observability/metrics"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

var bookingsTracer = otel.Tracer("spa.internal.bookings")

// Service creates bookings committed by the chat flow.
type Service struct {
	repo    Repository
	logger  *logging.Logger
	metrics *metrics.FlowMetrics
}

// NewService constructs a bookings service. metrics may be nil.
func NewService(repo Repository, logger *logging.Logger, m *metrics.FlowMetrics) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger, metrics: m}
}

// Create persists a PENDING booking with a freshly allocated number.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer span.End()
	if req != nil {
		span.SetAttributes(
			attribute.String("spa.user_id", req.UserID),
			attribute.String("spa.service_id", req.ServiceID),
		)
	}

	booking, err := s.repo.Create(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("spa.booking_number", booking.BookingNumber))
	s.metrics.BookingCreated()
	s.logger.Info("booking created",
		"booking_number", booking.BookingNumber,
		"user_id", booking.UserID,
		"service_id", booking.ServiceID,
		"appointment_date", booking.AppointmentDate,
		"appointment_time", booking.AppointmentTime,
	)
	return booking, nil
}

// Recent lists the user's latest bookings.
func (s *Service) Recent(ctx context.Context, userID string, limit int) ([]Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.recent")
	defer span.End()

	list, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return list, nil
}
