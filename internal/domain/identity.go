package domain

// Identity is the principal a relay token speaks for.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Normalize applies the upstream fallbacks: name defaults to email, role to DefaultRole.
func (i Identity) Normalize() Identity {
	if i.Name == "" {
		i.Name = i.Email
	}
	if i.Role == "" {
		i.Role = DefaultRole
	}
	return i
}
