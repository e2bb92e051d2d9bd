package conversation

import (
	"context"
	"errors"
	"time"
)

// State is the step a LINE user currently occupies in the chat flow.
type State string

const (
	StateIdle                 State = "IDLE"
	StateRegistrationPhone    State = "REGISTRATION_PHONE"
	StateRegistrationEmail    State = "REGISTRATION_EMAIL"
	StateBookingSelectService State = "BOOKING_SELECT_SERVICE"
	StateBookingSelectDate    State = "BOOKING_SELECT_DATE"
	StateBookingSelectTime    State = "BOOKING_SELECT_TIME"
	StateBookingConfirm       State = "BOOKING_CONFIRM"
)

// DefaultTTL bounds how long an untouched session stays live.
const DefaultTTL = 30 * time.Minute

// Session data keys.
const (
	KeyPhone       = "phone"
	KeyEmail       = "email"
	KeyServiceID   = "serviceId"
	KeyServiceName = "serviceName"
	KeyPrice       = "price"
	KeyDate        = "appointmentDate"
	KeyTime        = "appointmentTime"
)

// ErrEmptyUserID is returned when a store call carries no LINE user id.
var ErrEmptyUserID = errors.New("conversation: user id is required")

// Session is the per-user conversation record.
type Session struct {
	UserID    string            `json:"userId"`
	State     State             `json:"state"`
	Data      map[string]string `json:"data"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Expired reports whether the session is strictly older than ttl at now.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	if s == nil {
		return true
	}
	return now.Sub(s.UpdatedAt) > ttl
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Data = copyData(s.Data)
	return &out
}

// Store keeps conversation sessions keyed by LINE user id.
//
// Reads treat an expired session as absent. SetState merges the patch into
// the existing data; UpdateData does the same but leaves the state alone and
// is a no-op when no live session exists.
type Store interface {
	GetState(ctx context.Context, userID string) (State, error)
	GetData(ctx context.Context, userID string) (map[string]string, error)
	SetState(ctx context.Context, userID string, state State, patch map[string]string) error
	UpdateData(ctx context.Context, userID string, patch map[string]string) error
	ClearState(ctx context.Context, userID string) error
	Load(ctx context.Context, userID string) (*Session, error)
}

func copyData(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func mergeData(base, patch map[string]string) map[string]string {
	out := copyData(base)
	for k, v := range patch {
		out[k] = v
	}
	return out
}
