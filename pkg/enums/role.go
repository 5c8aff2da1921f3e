package enums

import "fmt"

// RoleName identifies one of the seeded platform roles.
type RoleName string

const (
	RoleVendor RoleName = "vendor"
	RoleRoot   RoleName = "root"
)

var validRoleNames = []RoleName{
	RoleVendor,
	RoleRoot,
}

// DefaultRole is assigned to every user on first sight.
const DefaultRole = RoleVendor

// SeededRoles returns the roles that must exist before users are provisioned.
func SeededRoles() []RoleName {
	out := make([]RoleName, len(validRoleNames))
	copy(out, validRoleNames)
	return out
}

// String implements fmt.Stringer.
func (r RoleName) String() string {
	return string(r)
}

// IsValid reports whether the role is known.
func (r RoleName) IsValid() bool {
	for _, candidate := range validRoleNames {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRoleName converts raw input into a RoleName.
func ParseRoleName(value string) (RoleName, error) {
	for _, candidate := range validRoleNames {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
