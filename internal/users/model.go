package users

import (
	"strings"
	"time"
)

// DefaultDisplayName is used when the LINE profile cannot be fetched.
const DefaultDisplayName = "LINE User"

// User is a LINE customer of the spa.
type User struct {
	ID              string     `json:"id"`
	LineUserID      string     `json:"line_user_id"`
	DisplayName     string     `json:"display_name"`
	PictureURL      string     `json:"picture_url,omitempty"`
	Phone           *string    `json:"phone,omitempty"`
	Email           *string    `json:"email,omitempty"`
	IsActive        bool       `json:"is_active"`
	MembershipLevel string     `json:"membership_level"`
	Points          int        `json:"points"`
	TotalSpent      float64    `json:"total_spent"`
	LastActiveAt    *time.Time `json:"last_active_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Registered reports whether the user completed registration (has a phone).
func (u *User) Registered() bool {
	return u != nil && u.Phone != nil && strings.TrimSpace(*u.Phone) != ""
}

// UpsertRequest carries the LINE profile captured on follow.
type UpsertRequest struct {
	LineUserID  string
	DisplayName string
	PictureURL  string
}

func (r *UpsertRequest) normalize() error {
	r.LineUserID = strings.TrimSpace(r.LineUserID)
	if r.LineUserID == "" {
		return ErrMissingLineID
	}
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if r.DisplayName == "" {
		r.DisplayName = DefaultDisplayName
	}
	return nil
}
