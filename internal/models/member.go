package models

import "time"

// MemberRole represents the access level of an account.
type MemberRole string

const (
	RoleAdmin  MemberRole = "ADMIN"
	RoleCoach  MemberRole = "COACH"
	RoleMember MemberRole = "MEMBER"
)

// Member is the public profile read model used for roster enrichment and
// access control. Account lifecycle is owned by the identity service.
type Member struct {
	ID        string     `db:"id" json:"id"`
	FullName  string     `db:"full_name" json:"full_name"`
	Email     string     `db:"email" json:"email"`
	Role      MemberRole `db:"role" json:"role"`
	AvatarURL *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
