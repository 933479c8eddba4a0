package models

// Role is a member's permission level within a group.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Group is a named collection of users sharing expenses.
// Groups are created by a founding user, who becomes the first admin.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// Description is optional free text.
	Description string

	// InviteCode is empty until a member generates one.
	// Once set it only changes through explicit rotation.
	InviteCode string

	// CreatedBy is the founding user's ID.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Membership grants a user visibility and participation rights in a group.
// At most one Membership exists per (GroupID, UserID).
type Membership struct {
	GroupID  string
	UserID   string
	Role     Role
	JoinedAt int64
}

// IsAdmin reports whether the membership carries the admin role.
func (m *Membership) IsAdmin() bool {
	return m != nil && m.Role == RoleAdmin
}

// MemberDetail is a membership joined with the member's directory profile.
// User is nil when the member has never synced a profile.
type MemberDetail struct {
	Membership
	User *User
}

// GroupDetails is a group with its full member list.
type GroupDetails struct {
	Group
	Members []MemberDetail
}
