package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/content"
)

type folderRow struct {
	ID                 int      `db:"id"`
	Name               string   `db:"name"`
	ParentID           null.Int `db:"parent_id"`
	OwnerID            null.Int `db:"owner_id"`
	IsRoot             bool     `db:"is_root"`
	IsPresentationRoot bool     `db:"is_presentation_root"`
}

func (r folderRow) folder() content.Folder {
	f := content.Folder{
		ID:                 r.ID,
		Name:               r.Name,
		IsRoot:             r.IsRoot,
		IsPresentationRoot: r.IsPresentationRoot,
	}
	if r.ParentID.Valid {
		pid := r.ParentID.Int
		f.ParentID = &pid
	}
	if r.OwnerID.Valid {
		oid := r.OwnerID.Int
		f.OwnerID = &oid
	}
	return f
}

type ContentRepository struct {
	db *sqlx.DB
}

var _ content.Repository = (*ContentRepository)(nil)

func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (repo *ContentRepository) GetFolderByID(ctx context.Context, id int) (content.Folder, error) {
	var row folderRow
	q := `SELECT id, name, parent_id, owner_id, is_root, is_presentation_root FROM folder WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return content.Folder{}, content.ErrNotFound
		}
		return content.Folder{}, errors.Wrap(err, "getting folder")
	}
	return row.folder(), nil
}

func (repo *ContentRepository) GetFolderRights(ctx context.Context, folderID int) ([]content.UserRight, error) {
	type rightRow struct {
		FolderID int   `db:"folder_id"`
		UserID   int   `db:"user_id"`
		Value    uint8 `db:"value"`
	}
	var rows []rightRow
	q := `SELECT folder_id, user_id, value FROM folder_right WHERE folder_id = $1`
	if err := repo.db.SelectContext(ctx, &rows, q, folderID); err != nil {
		return nil, errors.Wrap(err, "querying folder rights")
	}
	rights := make([]content.UserRight, 0, len(rows))
	for _, r := range rows {
		rights = append(rights, content.UserRight{
			FolderID: r.FolderID,
			UserID:   r.UserID,
			Right:    content.AccessRight(r.Value),
		})
	}
	return rights, nil
}

// SetFolderRights replaces the given users' entries in one transaction. An
// entry with a zero right drops the stored row instead of keeping dead weight.
func (repo *ContentRepository) SetFolderRights(ctx context.Context, folderID int, rights []content.UserRight) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	del := `DELETE FROM folder_right WHERE folder_id = $1 AND user_id = $2`
	ins := `INSERT INTO folder_right (folder_id, user_id, value) VALUES ($1, $2, $3)
            ON CONFLICT (folder_id, user_id) DO UPDATE SET value = EXCLUDED.value`
	for _, r := range rights {
		if r.Right == content.None {
			if _, err := tx.ExecContext(ctx, del, folderID, r.UserID); err != nil {
				return errors.Wrap(err, "deleting folder right")
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, ins, folderID, r.UserID, uint8(r.Right)); err != nil {
			return errors.Wrap(err, "upserting folder right")
		}
	}
	return errors.Wrap(tx.Commit(), "committing folder rights")
}
