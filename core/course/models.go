package course

import (
	"sort"
	"time"

	"github.com/trezcool/darasa/core"
)

type CourseOffer struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FolderID int    `json:"folder_id"`
}

// Participation is one user's enrollment in a course offer.
type Participation struct {
	ID              int       `json:"id"`
	CourseOfferID   int       `json:"course_offer_id"`
	CourseOfferName string    `json:"course_offer_name"`
	UserID          int       `json:"user_id"`
	Status          string    `json:"status"`
	EnrolledAt      time.Time `json:"enrolled_at"` // UTC
}

// Participation statuses
const (
	StatusEnrolled   = "enrolled"
	StatusWaitlisted = "waitlisted"
	StatusLeft       = "left"
)

// SortParticipations re-sorts an already-loaded list in place; no re-query.
// Unknown fields fall back to enrollment time.
func SortParticipations(parts []Participation, orderings []core.Ordering) {
	if len(orderings) == 0 {
		return
	}
	ord := orderings[0]
	sort.SliceStable(parts, func(i, j int) bool {
		a, b := parts[i], parts[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "name":
			return a.CourseOfferName < b.CourseOfferName
		case "status":
			return a.Status < b.Status
		default:
			return a.EnrolledAt.Before(b.EnrolledAt)
		}
	})
}

// FilterParticipationsByStatus filters an already-loaded list in memory.
func FilterParticipationsByStatus(parts []Participation, status string) []Participation {
	if status == "" {
		return parts
	}
	out := make([]Participation, 0, len(parts))
	for _, p := range parts {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}
