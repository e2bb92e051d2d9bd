package bookings

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists bookings. Create allocates the booking number atomically.
type Repository interface {
	Create(ctx context.Context, req *CreateRequest) (*Booking, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Booking, error)
}

// Option customizes a repository.
type Option func(*numbering)

type numbering struct {
	prefix   string
	location *time.Location
	now      func() time.Time
}

func defaultNumbering() numbering {
	return numbering{prefix: DefaultPrefix, location: time.UTC, now: time.Now}
}

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(n *numbering) {
		if prefix != "" {
			n.prefix = prefix
		}
	}
}

// WithLocation sets the time zone whose calendar day scopes the sequence.
func WithLocation(loc *time.Location) Option {
	return func(n *numbering) {
		if loc != nil {
			n.location = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(n *numbering) {
		if now != nil {
			n.now = now
		}
	}
}

func (n numbering) today() time.Time {
	return n.now().In(n.location)
}

// InMemoryRepository keeps bookings in process memory with a per-day counter.
type InMemoryRepository struct {
	mu       sync.Mutex
	bookings []Booking
	seq      map[string]int
	num      numbering
}

func NewInMemoryRepository(opts ...Option) *InMemoryRepository {
	num := defaultNumbering()
	for _, opt := range opts {
		opt(&num)
	}
	return &InMemoryRepository{seq: make(map[string]int), num: num}
}

func (r *InMemoryRepository) Create(_ context.Context, req *CreateRequest) (*Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	day := r.num.today()
	key := day.Format("20060102")
	r.seq[key]++
	booking := newBooking(req, FormatNumber(r.num.prefix, day, r.seq[key]), day)
	r.bookings = append(r.bookings, booking)
	return &booking, nil
}

func (r *InMemoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for i := len(r.bookings) - 1; i >= 0; i-- {
		if r.bookings[i].UserID != userID {
			continue
		}
		out = append(out, r.bookings[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns every stored booking in creation order.
func (r *InMemoryRepository) All() []Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Booking, len(r.bookings))
	copy(out, r.bookings)
	return out
}

func newBooking(req *CreateRequest, number string, createdAt time.Time) Booking {
	return Booking{
		ID:              uuid.NewString(),
		BookingNumber:   number,
		UserID:          req.UserID,
		ServiceID:       req.ServiceID,
		ServiceName:     req.ServiceName,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		DurationMinutes: req.DurationMinutes,
		TotalAmount:     req.TotalAmount,
		Status:          StatusPending,
		PaymentStatus:   StatusPending,
		CustomerNotes:   req.Notes,
		CreatedAt:       createdAt,
	}
}
