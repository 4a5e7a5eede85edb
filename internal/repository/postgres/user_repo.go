package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taskhive/taskhive/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct{ db *DB }

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `
id, email, first_name, last_name, avatar, role, is_active, prefs, created_at, updated_at`

const (
	qUserByID = `
SELECT ` + userCols + `
FROM users
WHERE id = $1;`

	qUsersActive = `
SELECT ` + userCols + `
FROM users
WHERE id = ANY($1) AND is_active = TRUE;`

	qUserPrefs = `
UPDATE users
SET prefs = $2, updated_at = NOW()
WHERE id = $1;`
)

func scanUser(row pgx.Row, out *user.User) error {
	var prefs []byte
	if err := row.Scan(
		&out.ID,
		&out.Email,
		&out.FirstName,
		&out.LastName,
		&out.Avatar,
		&out.Role,
		&out.Active,
		&prefs,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}

	out.Prefs = user.DefaultPrefs()
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &out.Prefs); err != nil {
			return fmt.Errorf("decode prefs: %w", err)
		}
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.Pool.QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindActive(ctx context.Context, ids []int64) ([]*user.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qUsersActive, ids)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	out := make([]*user.User, 0, len(ids))
	for rows.Next() {
		var u user.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		uc := u
		out = append(out, &uc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *UserRepo) UpdatePrefs(ctx context.Context, id int64, p user.Prefs) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qUserPrefs, id, raw)
	if err != nil {
		return fmt.Errorf("update prefs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
