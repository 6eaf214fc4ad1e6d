package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/user"
)

type userRow struct {
	ID           int        `db:"id"`
	Name         string     `db:"name"`
	Username     string     `db:"username"`
	Email        string     `db:"email"`
	IsActive     bool       `db:"is_active"`
	IsExternal   bool       `db:"is_external"`
	Roles        string     `db:"roles"`
	PasswordHash null.Bytes `db:"password_hash"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	LastLogin    null.Time  `db:"last_login"`
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		IsActive:     r.IsActive,
		IsExternal:   r.IsExternal,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.Roles != "" {
		usr.Roles = strings.Split(r.Roles, ",")
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

type UserRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userCols = `id, name, username, email, is_active, is_external, roles, password_hash, created_at, updated_at, last_login`

func (repo *UserRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	exclIDs := make([]int, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}
	if len(exclIDs) == 0 {
		exclIDs = append(exclIDs, 0)
	}

	check := func(col, val string, exists error) error {
		if val == "" {
			return nil
		}
		q, args, err := sqlx.In(
			`SELECT COUNT(*) FROM "user" WHERE `+col+` = ? AND id NOT IN (?)`, val, exclIDs)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		var n int
		if err := repo.db.GetContext(ctx, &n, repo.db.Rebind(q), args...); err != nil {
			return errors.Wrap(err, "checking uniqueness")
		}
		if n > 0 {
			return exists
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo *UserRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO "user" (name, username, email, is_active, is_external, roles, password_hash, created_at, updated_at)
          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := repo.db.QueryRowContext(ctx, q,
		usr.Name, usr.Username, usr.Email, usr.IsActive, usr.IsExternal,
		strings.Join(usr.Roles, ","), null.BytesFromPtr(&usr.PasswordHash), usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *UserRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+userCols+` FROM "user"`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM "user"`); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return n, nil
}

func (repo *UserRepository) getUser(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+userCols+` FROM "user" WHERE `+where, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.user(), nil
}

func (repo *UserRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.getUser(ctx, `id = $1`, id)
}

func (repo *UserRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, `username = $1`, username)
}

func (repo *UserRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, `email = $1`, email)
}

func (repo *UserRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, `username = $1 OR email = $1`, username)
}

func (repo *UserRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	q := `SELECT ` + userCols + ` FROM "user" WHERE 1=1`
	var args []interface{}

	if filter.Search != "" {
		q += ` AND (name ILIKE ? OR username ILIKE ? OR email ILIKE ?)`
		pat := "%" + filter.Search + "%"
		args = append(args, pat, pat, pat)
	}
	if filter.IsActive != nil {
		q += ` AND is_active = ?`
		args = append(args, *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		q += ` AND created_at >= ?`
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		q += ` AND created_at <= ?`
		args = append(args, filter.CreatedTo.UTC())
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}

	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		usr := r.user()
		if filter.Roles != nil && !hasAnyRolePrefix(usr, filter.Roles) {
			continue
		}
		users = append(users, usr)
	}
	return users, nil
}

// hasAnyRolePrefix matches the role filter against role prefixes so that
// e.g. "admin:" matches "admin:owner".
func hasAnyRolePrefix(usr user.User, roles []string) bool {
	for _, role := range roles {
		if usr.RoleStartsWith(role) {
			return true
		}
	}
	return false
}

func (repo *UserRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	// only save set fields
	orig, err := repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		return user.User{}, err
	}
	if usr.Roles != nil {
		orig.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Username != "" {
		orig.Username = usr.Username
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if !usr.LastLogin.IsZero() {
		orig.LastLogin = usr.LastLogin
	}
	orig.UpdatedAt = usr.UpdatedAt

	q := `UPDATE "user" SET name = $2, username = $3, email = $4, is_active = $5, roles = $6,
          password_hash = $7, updated_at = $8, last_login = $9 WHERE id = $1`
	_, err = repo.db.ExecContext(ctx, q,
		orig.ID, orig.Name, orig.Username, orig.Email, orig.IsActive,
		strings.Join(orig.Roles, ","), null.BytesFromPtr(&orig.PasswordHash),
		orig.UpdatedAt, null.TimeFrom(orig.LastLogin),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return orig, nil
}

func (repo *UserRepository) ClearPasswordHashes(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`UPDATE "user" SET password_hash = NULL WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building clear-passwords query")
	}
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "clearing password hashes")
	}
	return nil
}

func (repo *UserRepository) DeleteUsersByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
