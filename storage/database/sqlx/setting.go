package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/setting"
)

type SettingRepository struct {
	db *sqlx.DB
}

var _ setting.Repository = (*SettingRepository)(nil)

func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func (repo *SettingRepository) GetValue(ctx context.Context, key string) (string, error) {
	var val string
	err := repo.db.GetContext(ctx, &val, `SELECT value FROM setting WHERE key = $1`, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", setting.ErrNotFound
		}
		return "", errors.Wrap(err, "getting setting")
	}
	return val, nil
}

func (repo *SettingRepository) SetValue(ctx context.Context, key, value string) error {
	q := `INSERT INTO setting (key, value) VALUES ($1, $2)
          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := repo.db.ExecContext(ctx, q, key, value); err != nil {
		return errors.Wrap(err, "setting value")
	}
	return nil
}

func (repo *SettingRepository) AllValues(ctx context.Context) (map[string]string, error) {
	rows, err := repo.db.QueryxContext(ctx, `SELECT key, value FROM setting`)
	if err != nil {
		return nil, errors.Wrap(err, "querying settings")
	}
	defer rows.Close()

	vals := make(map[string]string)
	for rows.Next() {
		var key, val string
		if err := rows.Scan(&key, &val); err != nil {
			return nil, errors.Wrap(err, "scanning setting")
		}
		vals[key] = val
	}
	return vals, errors.Wrap(rows.Err(), "iterating settings")
}
