package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/content"
	"github.com/trezcool/darasa/core/user"
)

var ErrNotFound = errors.New("course offer not found")

type (
	Repository interface {
		GetCourseOfferByID(ctx context.Context, id int) (CourseOffer, error)
		// QueryParticipationsByUser fetches the user's participations eagerly
		// (offer names included), pre-sorted by enrollment time descending.
		QueryParticipationsByUser(ctx context.Context, userID int) ([]Participation, error)
	}

	Service struct {
		repo       Repository
		contentSvc *content.Service
	}
)

func NewService(repo Repository, contentSvc *content.Service) *Service {
	return &Service{repo: repo, contentSvc: contentSvc}
}

func (svc *Service) GetOffer(ctx context.Context, id int) (CourseOffer, error) {
	return svc.repo.GetCourseOfferByID(ctx, id)
}

// MyParticipations loads the user's participations in one eager query;
// further filtering and sorting happens in memory only.
func (svc *Service) MyParticipations(ctx context.Context, usr user.User) ([]Participation, error) {
	return svc.repo.QueryParticipationsByUser(ctx, usr.ID)
}

// IsAllowedToTestCourse reports whether usr may run the course offer in test
// mode; this requires a read right on the offer's folder.
func (svc *Service) IsAllowedToTestCourse(ctx context.Context, usr user.User, offer CourseOffer) (bool, error) {
	folder, err := svc.contentSvc.GetFolder(ctx, offer.FolderID)
	if err != nil {
		return false, errors.Wrapf(err, "resolving folder of course offer %d", offer.ID)
	}
	return svc.contentSvc.CanRead(ctx, usr, folder)
}
