package notification

import (
	"context"
	"fmt"

	"github.com/taskhive/taskhive/internal/domain/notification"
	"github.com/taskhive/taskhive/internal/domain/user"
)

// PreferenceFilter narrows a candidate recipient set to the users who
// opted in to a notification kind. Inactive and unknown ids drop out
// silently; an empty result is a normal outcome.
type PreferenceFilter struct {
	users user.Repo
}

func NewPreferenceFilter(users user.Repo) *PreferenceFilter {
	return &PreferenceFilter{users: users}
}

// Filter is read-only and preserves no particular order.
func (f *PreferenceFilter) Filter(ctx context.Context, candidateIDs []int64, kind notification.Kind) ([]*user.User, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	active, err := f.users.FindActive(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("find active users: %w", err)
	}

	out := make([]*user.User, 0, len(active))
	for _, u := range active {
		if u.Prefs.FlagsFor(kind).InApp {
			out = append(out, u)
		}
	}
	return out, nil
}
