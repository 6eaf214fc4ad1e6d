package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/darasa/core/course"
)

type CourseRepository struct {
	mu             sync.RWMutex
	offers         map[int]course.CourseOffer
	participations map[int]course.Participation
}

var _ course.Repository = (*CourseRepository)(nil)

func NewCourseRepository() *CourseRepository {
	return &CourseRepository{
		offers:         make(map[int]course.CourseOffer),
		participations: make(map[int]course.Participation),
	}
}

// AddOffer and AddParticipation seed test data; the caller assigns IDs.
func (repo *CourseRepository) AddOffer(o course.CourseOffer) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.offers[o.ID] = o
}

func (repo *CourseRepository) AddParticipation(p course.Participation) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.participations[p.ID] = p
}

func (repo *CourseRepository) GetCourseOfferByID(ctx context.Context, id int) (course.CourseOffer, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if o, ok := repo.offers[id]; ok {
		return o, nil
	}
	return course.CourseOffer{}, course.ErrNotFound
}

func (repo *CourseRepository) QueryParticipationsByUser(ctx context.Context, userID int) ([]course.Participation, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	parts := make([]course.Participation, 0)
	for _, p := range repo.participations {
		if p.UserID != userID {
			continue
		}
		if offer, ok := repo.offers[p.CourseOfferID]; ok {
			p.CourseOfferName = offer.Name
		}
		parts = append(parts, p)
	}
	// newest enrollment first, matching the SQL repository's default order
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].EnrolledAt.Equal(parts[j].EnrolledAt) {
			return parts[i].ID > parts[j].ID
		}
		return parts[i].EnrolledAt.After(parts[j].EnrolledAt)
	})
	return parts, nil
}
