package exercise

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/content"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("exercise not found")
	ErrResourceNotFound = errors.New("resource not found")
)

type (
	Repository interface {
		GetExerciseByID(ctx context.Context, id int) (Exercise, error)
		// QuerySubmissionsByExercise fetches submissions with their comments
		// eagerly in one call.
		QuerySubmissionsByExercise(ctx context.Context, exerciseID int) ([]Submission, error)
		GetSubmissionByID(ctx context.Context, id int) (Submission, error)
		DeleteSubmission(ctx context.Context, id int) error
		GetResourceByID(ctx context.Context, id int) (Resource, error)
	}

	// BlobStore holds resource binaries keyed by opaque storage keys.
	BlobStore interface {
		Open(ctx context.Context, key string) (io.ReadCloser, error)
		Save(ctx context.Context, r io.Reader) (key string, err error)
	}

	Service struct {
		repo       Repository
		blobs      BlobStore
		contentSvc *content.Service
	}
)

func NewService(repo Repository, blobs BlobStore, contentSvc *content.Service) *Service {
	return &Service{
		repo:       repo,
		blobs:      blobs,
		contentSvc: contentSvc,
	}
}

func (svc *Service) GetExercise(ctx context.Context, id int) (Exercise, error) {
	return svc.repo.GetExerciseByID(ctx, id)
}

func (svc *Service) Folder(ctx context.Context, ex Exercise) (content.Folder, error) {
	return svc.contentSvc.GetFolder(ctx, ex.FolderID)
}

// Submissions loads an exercise's submissions eagerly, applies the default
// newest-first ordering and derives the aggregate counts in a single pass.
func (svc *Service) Submissions(ctx context.Context, ex Exercise) ([]Submission, Counts, error) {
	subs, err := svc.repo.QuerySubmissionsByExercise(ctx, ex.ID)
	if err != nil {
		return nil, Counts{}, errors.Wrapf(err, "loading submissions of exercise %d", ex.ID)
	}
	SortSubmissionsByCreatedDesc(subs)
	return subs, CountSubmissions(subs), nil
}

func (svc *Service) GetSubmission(ctx context.Context, id int) (Submission, error) {
	return svc.repo.GetSubmissionByID(ctx, id)
}

// DeleteSubmission removes a submission after re-checking the actor's Grade
// right on the exercise's folder. The check runs here, immediately before the
// mutation, independent of any read check done when the list was loaded.
func (svc *Service) DeleteSubmission(ctx context.Context, actor user.User, sub Submission) error {
	ex, err := svc.repo.GetExerciseByID(ctx, sub.ExerciseID)
	if err != nil {
		return errors.Wrapf(err, "resolving exercise of submission %d", sub.ID)
	}
	folder, err := svc.contentSvc.GetFolder(ctx, ex.FolderID)
	if err != nil {
		return errors.Wrapf(err, "resolving folder of exercise %d", ex.ID)
	}
	ok, err := svc.contentSvc.CanGrade(ctx, actor, folder)
	if err != nil {
		return err
	}
	if !ok {
		return content.ErrPermissionDenied
	}
	return svc.repo.DeleteSubmission(ctx, sub.ID)
}

func (svc *Service) GetResource(ctx context.Context, id int) (Resource, error) {
	return svc.repo.GetResourceByID(ctx, id)
}

// OpenResource resolves a resource and opens its binary for streaming.
func (svc *Service) OpenResource(ctx context.Context, id int) (Resource, io.ReadCloser, error) {
	res, err := svc.repo.GetResourceByID(ctx, id)
	if err != nil {
		return Resource{}, nil, err
	}
	rc, err := svc.blobs.Open(ctx, res.StorageKey)
	if err != nil {
		return Resource{}, nil, errors.Wrapf(err, "opening blob of resource %d", res.ID)
	}
	return res, rc, nil
}
