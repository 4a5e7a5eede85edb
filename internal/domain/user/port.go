package user

import "context"

type Repo interface {
	GetByID(ctx context.Context, id int64) (*User, error)

	// FindActive returns the active users among ids, prefs loaded.
	// Missing and deactivated ids are silently absent from the result.
	FindActive(ctx context.Context, ids []int64) ([]*User, error)

	UpdatePrefs(ctx context.Context, id int64, p Prefs) error
}
