package project

import "context"

type Repo interface {
	// GetWithMembers loads a project with its member list populated.
	GetWithMembers(ctx context.Context, id int64) (*Project, error)
}
