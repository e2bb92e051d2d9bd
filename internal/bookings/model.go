package bookings

import (
	"fmt"
	"strings"
	"time"
)

// Booking statuses.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// DefaultPrefix starts every booking number.
	DefaultPrefix = "BK"
)

// Booking is an appointment created from the LINE flow.
type Booking struct {
	ID              string    `json:"id"`
	BookingNumber   string    `json:"booking_number"`
	UserID          string    `json:"user_id"`
	ServiceID       string    `json:"service_id"`
	ServiceName     string    `json:"service_name"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalAmount     float64   `json:"total_amount"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	CustomerNotes   string    `json:"customer_notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateRequest holds everything needed to persist a booking.
type CreateRequest struct {
	UserID          string
	ServiceID       string
	ServiceName     string
	AppointmentDate string
	AppointmentTime string
	DurationMinutes int
	TotalAmount     float64
	Notes           string
}

// Validate checks required fields and date/time layouts.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return ErrInvalidRequest
	}
	if strings.TrimSpace(r.UserID) == "" || strings.TrimSpace(r.ServiceID) == "" {
		return fmt.Errorf("%w: user and service are required", ErrInvalidRequest)
	}
	if _, err := time.Parse(DateLayout, r.AppointmentDate); err != nil {
		return fmt.Errorf("%w: appointment date %q", ErrInvalidRequest, r.AppointmentDate)
	}
	if _, err := time.Parse(TimeLayout, r.AppointmentTime); err != nil {
		return fmt.Errorf("%w: appointment time %q", ErrInvalidRequest, r.AppointmentTime)
	}
	if r.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidRequest)
	}
	if r.TotalAmount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidRequest)
	}
	return nil
}

// FormatNumber renders prefix + YYYYMMDD + 4-digit daily sequence.
func FormatNumber(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s%s%04d", prefix, day.Format("20060102"), seq)
}
