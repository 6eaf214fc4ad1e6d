package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/exercise"
)

type ExerciseRepository struct {
	db *sqlx.DB
}

var _ exercise.Repository = (*ExerciseRepository)(nil)

func NewExerciseRepository(db *sqlx.DB) *ExerciseRepository {
	return &ExerciseRepository{db: db}
}

func (repo *ExerciseRepository) GetExerciseByID(ctx context.Context, id int) (exercise.Exercise, error) {
	var exo exercise.Exercise
	q := `SELECT id, name, folder_id FROM exercise WHERE id = $1`
	if err := repo.db.GetContext(ctx, &exo, q, id); err != nil {
		if err == sql.ErrNoRows {
			return exercise.Exercise{}, exercise.ErrNotFound
		}
		return exercise.Exercise{}, errors.Wrap(err, "getting exercise")
	}
	return exo, nil
}

type submissionRow struct {
	ID               int       `db:"id"`
	ExerciseID       int       `db:"exercise_id"`
	AuthorID         int       `db:"author_id"`
	AuthorName       string    `db:"author_name"`
	IsTestSubmission bool      `db:"is_test_submission"`
	CreatedAt        time.Time `db:"created_at"`
}

func (r submissionRow) submission() exercise.Submission {
	return exercise.Submission{
		ID:               r.ID,
		ExerciseID:       r.ExerciseID,
		AuthorID:         r.AuthorID,
		AuthorName:       r.AuthorName,
		IsTestSubmission: r.IsTestSubmission,
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

const submissionQuery = `
SELECT s.id, s.exercise_id, s.author_id, u.name AS author_name, s.is_test_submission, s.created_at
FROM submission s
JOIN "user" u ON u.id = s.author_id`

// QuerySubmissionsByExercise loads the submissions and all their comments in
// two queries total, whatever the list size.
func (repo *ExerciseRepository) QuerySubmissionsByExercise(ctx context.Context, exerciseID int) ([]exercise.Submission, error) {
	var rows []submissionRow
	q := submissionQuery + ` WHERE s.exercise_id = $1 ORDER BY s.created_at DESC, s.id DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, exerciseID); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]exercise.Submission, 0, len(rows))
	byID := make(map[int]int, len(rows)) // submission id -> index in subs
	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		byID[r.ID] = len(subs)
		ids = append(ids, r.ID)
		subs = append(subs, r.submission())
	}
	if len(subs) == 0 {
		return subs, nil
	}

	cq, args, err := sqlx.In(`SELECT id, submission_id, author_id, text, created_at
                              FROM submission_comment WHERE submission_id IN (?) ORDER BY created_at`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building comments query")
	}
	type commentRow struct {
		ID           int       `db:"id"`
		SubmissionID int       `db:"submission_id"`
		AuthorID     int       `db:"author_id"`
		Text         string    `db:"text"`
		CreatedAt    time.Time `db:"created_at"`
	}
	var crows []commentRow
	if err := repo.db.SelectContext(ctx, &crows, repo.db.Rebind(cq), args...); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	for _, c := range crows {
		i := byID[c.SubmissionID]
		subs[i].Comments = append(subs[i].Comments, exercise.Comment{
			ID:           c.ID,
			SubmissionID: c.SubmissionID,
			AuthorID:     c.AuthorID,
			Text:         c.Text,
			CreatedAt:    c.CreatedAt.UTC(),
		})
	}
	return subs, nil
}

func (repo *ExerciseRepository) GetSubmissionByID(ctx context.Context, id int) (exercise.Submission, error) {
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, submissionQuery+` WHERE s.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return exercise.Submission{}, exercise.ErrNotFound
		}
		return exercise.Submission{}, errors.Wrap(err, "getting submission")
	}
	return row.submission(), nil
}

func (repo *ExerciseRepository) DeleteSubmission(ctx context.Context, id int) error {
	// comments cascade via the schema
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM submission WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	return nil
}

func (repo *ExerciseRepository) GetResourceByID(ctx context.Context, id int) (exercise.Resource, error) {
	var res exercise.Resource
	type row struct {
		ID          int    `db:"id"`
		Filename    string `db:"filename"`
		ContentType string `db:"content_type"`
		Size        int64  `db:"size"`
		StorageKey  string `db:"storage_key"`
		FolderID    int    `db:"folder_id"`
	}
	var r row
	q := `SELECT id, filename, content_type, size, storage_key, folder_id FROM resource WHERE id = $1`
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		if err == sql.ErrNoRows {
			return exercise.Resource{}, exercise.ErrResourceNotFound
		}
		return exercise.Resource{}, errors.Wrap(err, "getting resource")
	}
	res = exercise.Resource{
		ID:          r.ID,
		Filename:    r.Filename,
		ContentType: r.ContentType,
		Size:        r.Size,
		StorageKey:  r.StorageKey,
		FolderID:    r.FolderID,
	}
	return res, nil
}
