package project

import "time"

type MemberRole string

const (
	MemberAdmin   MemberRole = "admin"
	MemberRegular MemberRole = "member"
	MemberViewer  MemberRole = "viewer"
)

type Member struct {
	UserID   int64      `json:"user_id"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

type Status string

const (
	StatusActive    Status = "active"
	StatusArchived  Status = "archived"
	StatusCompleted Status = "completed"
)

type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id"`
	Status    Status    `json:"status"`
	Color     string    `json:"color,omitempty"`
	Members   []Member  `json:"members,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberIDs returns every member plus the owner, each id once.
func (p *Project) MemberIDs() []int64 {
	ids := make([]int64, 0, len(p.Members)+1)
	seen := map[int64]bool{}
	for _, m := range p.Members {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			ids = append(ids, m.UserID)
		}
	}
	if !seen[p.OwnerID] {
		ids = append(ids, p.OwnerID)
	}
	return ids
}
