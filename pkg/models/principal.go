package models

// Role constants for catalog principals.
// RoleAdmin is the elevated role: it approves and rejects implementations and manages definitions.
const (
	RoleGuest       = "guest"
	RoleContributor = "contributor"
	RolePremier     = "premier"
	RoleAdmin       = "admin"
)

// ValidRoles contains all valid role values, lowest privilege first.
var ValidRoles = []string{RoleGuest, RoleContributor, RolePremier, RoleAdmin}

// IsValidRole checks if the given role is valid.
func IsValidRole(role string) bool {
	return roleRank(role) >= 0
}

func roleRank(role string) int {
	for i, r := range ValidRoles {
		if r == role {
			return i
		}
	}
	return -1
}

// HighestRole picks the most privileged recognised role from a claim list.
// Unrecognised values are ignored; an empty result falls back to RoleGuest.
func HighestRole(roles []string) string {
	best := RoleGuest
	for _, r := range roles {
		if roleRank(r) > roleRank(best) {
			best = r
		}
	}
	return best
}

// Principal is the verified caller of an operation. It is built from identity
// claims on every request and never from client-supplied fields.
type Principal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Guest returns the anonymous principal.
func Guest() Principal {
	return Principal{Role: RoleGuest}
}

// IsGuest reports whether the principal is unauthenticated or holds only the guest role.
func (p Principal) IsGuest() bool {
	return p.ID == "" || p.Role == RoleGuest || !IsValidRole(p.Role)
}

// IsElevated reports whether the principal holds the admin role.
func (p Principal) IsElevated() bool {
	return p.ID != "" && p.Role == RoleAdmin
}
