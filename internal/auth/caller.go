package auth

// Role is a caller's profile role as reported by the auth provider.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleReviewer   Role = "reviewer"
	RoleSuperAdmin Role = "super_admin"
	RoleMember     Role = "member"
)

// Caller is the identity behind one request. It is resolved freshly per call
// and never cached across requests, so a revoked role takes effect on the very
// next invocation.
type Caller struct {
	Subject   string `json:"subject"`
	Role      Role   `json:"role"`
	IsService bool   `json:"is_service"`
}

// Anonymous is the zero-privilege caller used when no identity was resolved.
var Anonymous = Caller{}

// reviewerRoles are the profile roles allowed to operate the duplicate
// resolution workflow.
var reviewerRoles = map[Role]struct{}{
	RoleAdmin:      {},
	RoleReviewer:   {},
	RoleSuperAdmin: {},
}

// CanReviewDuplicates reports whether the caller may run duplicate detection
// review mutations: trusted service identities and admin/reviewer/super_admin
// profiles. Everything else fails closed.
func CanReviewDuplicates(c Caller) bool {
	if c.IsService {
		return true
	}
	_, ok := reviewerRoles[c.Role]
	return ok
}

// Actor returns the audit identity recorded for this caller's mutations.
func (c Caller) Actor() string {
	if c.Subject != "" {
		return c.Subject
	}
	if c.IsService {
		return "service"
	}
	return "unknown"
}
