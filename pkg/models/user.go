package models

// User is a person who can belong to one or more organizations.
// PasswordHash is never serialized.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	PasswordHash string `json:"-"`
}

const (
	RoleAdmin    = "Admin"
	RoleTeamLead = "TeamLead"
	RoleMember   = "Member"
	RoleViewer   = "Viewer"
)

// ValidRole reports whether role is one of the member roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTeamLead, RoleMember, RoleViewer:
		return true
	}
	return false
}

// OrganizationMember links a user to an organization with a role and team set.
type OrganizationMember struct {
	ID     string   `json:"id"`
	OrgID  string   `json:"org_id"`
	UserID string   `json:"user_id"`
	Role   string   `json:"role"`
	Teams  []string `json:"teams"`
}

// MemberUpdate carries the mutable fields of a membership. A nil Teams slice
// leaves the team set unchanged; an empty non-nil slice clears it.
type MemberUpdate struct {
	Role  *string
	Teams []string
}
