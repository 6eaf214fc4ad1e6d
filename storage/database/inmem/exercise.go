package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core/exercise"
)

type ExerciseRepository struct {
	mu          sync.RWMutex
	exercises   map[int]exercise.Exercise
	submissions map[int]exercise.Submission // comments embedded
	resources   map[int]exercise.Resource
}

var _ exercise.Repository = (*ExerciseRepository)(nil)

func NewExerciseRepository() *ExerciseRepository {
	return &ExerciseRepository{
		exercises:   make(map[int]exercise.Exercise),
		submissions: make(map[int]exercise.Submission),
		resources:   make(map[int]exercise.Resource),
	}
}

// Seed helpers; the caller assigns IDs.

func (repo *ExerciseRepository) AddExercise(exo exercise.Exercise) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.exercises[exo.ID] = exo
}

func (repo *ExerciseRepository) AddSubmission(sub exercise.Submission) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.submissions[sub.ID] = sub
}

func (repo *ExerciseRepository) AddResource(res exercise.Resource) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.resources[res.ID] = res
}

func (repo *ExerciseRepository) GetExerciseByID(ctx context.Context, id int) (exercise.Exercise, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if exo, ok := repo.exercises[id]; ok {
		return exo, nil
	}
	return exercise.Exercise{}, exercise.ErrNotFound
}

func (repo *ExerciseRepository) QuerySubmissionsByExercise(ctx context.Context, exerciseID int) ([]exercise.Submission, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	subs := make([]exercise.Submission, 0)
	for _, sub := range repo.submissions {
		if sub.ExerciseID == exerciseID {
			subs = append(subs, sub)
		}
	}
	exercise.SortSubmissionsByCreatedDesc(subs)
	return subs, nil
}

func (repo *ExerciseRepository) GetSubmissionByID(ctx context.Context, id int) (exercise.Submission, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if sub, ok := repo.submissions[id]; ok {
		return sub, nil
	}
	return exercise.Submission{}, exercise.ErrNotFound
}

func (repo *ExerciseRepository) DeleteSubmission(ctx context.Context, id int) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	delete(repo.submissions, id)
	return nil
}

func (repo *ExerciseRepository) GetResourceByID(ctx context.Context, id int) (exercise.Resource, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if res, ok := repo.resources[id]; ok {
		return res, nil
	}
	return exercise.Resource{}, exercise.ErrResourceNotFound
}
