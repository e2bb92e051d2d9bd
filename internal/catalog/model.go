package catalog

import (
	"sort"
	"strings"
)

// Service is a bookable spa treatment.
type Service struct {
	ID                  string   `json:"id"`
	Code                string   `json:"code"`
	Name                string   `json:"name"`
	Description         string   `json:"description,omitempty"`
	Category            string   `json:"category,omitempty"`
	Price               float64  `json:"price"`
	MemberPrice         *float64 `json:"member_price,omitempty"`
	DurationMinutes     int      `json:"duration_minutes"`
	IsActive            bool     `json:"is_active"`
	IsFeatured          bool     `json:"is_featured"`
	SortOrder           int      `json:"sort_order"`
	RequiredSpecialties []string `json:"required_specialties,omitempty"`
}

// SortForDisplay orders services featured first, then by sort order, then name.
func SortForDisplay(services []Service) {
	sort.SliceStable(services, func(i, j int) bool {
		a, b := services[i], services[j]
		if a.IsFeatured != b.IsFeatured {
			return a.IsFeatured
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}
