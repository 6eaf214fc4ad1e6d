package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
)

type CourseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*CourseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (repo *CourseRepository) GetCourseOfferByID(ctx context.Context, id int) (course.CourseOffer, error) {
	var offer course.CourseOffer
	q := `SELECT id, name, folder_id FROM course_offer WHERE id = $1`
	if err := repo.db.GetContext(ctx, &offer, q, id); err != nil {
		if err == sql.ErrNoRows {
			return course.CourseOffer{}, course.ErrNotFound
		}
		return course.CourseOffer{}, errors.Wrap(err, "getting course offer")
	}
	return offer, nil
}

func (repo *CourseRepository) QueryParticipationsByUser(ctx context.Context, userID int) ([]course.Participation, error) {
	type row struct {
		ID              int    `db:"id"`
		CourseOfferID   int    `db:"course_offer_id"`
		CourseOfferName string `db:"course_offer_name"`
		UserID          int    `db:"user_id"`
		Status          string `db:"status"`
		EnrolledAt      sql.NullTime `db:"enrolled_at"`
	}
	q := `SELECT p.id, p.course_offer_id, o.name AS course_offer_name, p.user_id, p.status, p.enrolled_at
          FROM participation p
          JOIN course_offer o ON o.id = p.course_offer_id
          WHERE p.user_id = $1
          ORDER BY p.enrolled_at DESC, p.id DESC`
	var rows []row
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying participations")
	}
	parts := make([]course.Participation, 0, len(rows))
	for _, r := range rows {
		p := course.Participation{
			ID:              r.ID,
			CourseOfferID:   r.CourseOfferID,
			CourseOfferName: r.CourseOfferName,
			UserID:          r.UserID,
			Status:          r.Status,
		}
		if r.EnrolledAt.Valid {
			p.EnrolledAt = r.EnrolledAt.Time.UTC()
		}
		parts = append(parts, p)
	}
	return parts, nil
}
