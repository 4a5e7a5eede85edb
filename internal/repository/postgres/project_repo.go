package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taskhive/taskhive/internal/domain/project"
)

var _ project.Repo = (*ProjectRepo)(nil)

type ProjectRepo struct{ db *DB }

func NewProjectRepo(db *DB) *ProjectRepo { return &ProjectRepo{db: db} }

const (
	qProjectByID = `
SELECT id, name, owner_id, status, color, created_at, updated_at
FROM projects
WHERE id = $1;`

	qProjectMembers = `
SELECT user_id, role, joined_at
FROM project_members
WHERE project_id = $1
ORDER BY joined_at;`
)

func (r *ProjectRepo) GetWithMembers(ctx context.Context, id int64) (*project.Project, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var p project.Project
	if err := r.db.Pool.QueryRow(ctx, qProjectByID, id).Scan(
		&p.ID, &p.Name, &p.OwnerID, &p.Status, &p.Color, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, qProjectMembers, id)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m project.Member
		if err := rows.Scan(&m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		p.Members = append(p.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return &p, nil
}
