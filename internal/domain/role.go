package domain

// Role is an authorization tier carried in relay tokens.
// New roles are added as new constants; existing values never change meaning.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// DefaultRole is assigned when the credential store has no role for a principal.
const DefaultRole = RoleUser

// Known reports whether the role is one this build recognizes.
func (r Role) Known() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// In reports whether r is one of allowed.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
