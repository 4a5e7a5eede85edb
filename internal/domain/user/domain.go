package user

import (
	"time"

	"github.com/taskhive/taskhive/internal/domain/notification"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Prefs holds a user's notification opt-ins: a default set of channel
// flags plus optional per-kind overrides. Only the default in-app flag is
// populated by the current product surface; the per-kind map exists so a
// finer policy is a data change, not a code change.
type Prefs struct {
	Default notification.Channels                        `json:"default"`
	PerKind map[notification.Kind]notification.Channels `json:"per_kind,omitempty"`
}

func DefaultPrefs() Prefs {
	return Prefs{Default: notification.DefaultChannels()}
}

// FlagsFor resolves the channel flags governing one notification kind.
func (p Prefs) FlagsFor(kind notification.Kind) notification.Channels {
	if p.PerKind != nil {
		if f, ok := p.PerKind[kind]; ok {
			return f
		}
	}
	return p.Default
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	Prefs     Prefs     `json:"prefs"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
