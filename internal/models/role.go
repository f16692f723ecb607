package models

// Role is a closed enumeration of access levels.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// RoleSet is the capability set attached to an authenticated principal.
// It is resolved once per request and passed by value into the services,
// instead of re-deriving role strings at every check site.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from role tags, skipping unknown values.
func NewRoleSet(roles ...Role) RoleSet {
	rs := make(RoleSet, len(roles))
	for _, r := range roles {
		switch r {
		case RoleUser, RoleAdmin:
			rs[r] = struct{}{}
		}
	}
	return rs
}

// Has reports whether the set contains the role.
func (rs RoleSet) Has(role Role) bool {
	_, ok := rs[role]
	return ok
}

// IsAdmin reports whether the set grants administrative access.
func (rs RoleSet) IsAdmin() bool {
	return rs.Has(RoleAdmin)
}

// Names returns the roles as plain strings, for persistence.
func (rs RoleSet) Names() []string {
	names := make([]string, 0, len(rs))
	for r := range rs {
		names = append(names, string(r))
	}
	return names
}
