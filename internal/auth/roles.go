package auth

import "strings"

func (r StaffRole) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleCashier:
		return true
	}
	return false
}

// IsManager reports whether the role may approve, reject and void payments.
func (r StaffRole) IsManager() bool {
	return r == RoleOwner || r == RoleManager
}

// HasAnyRole matches role names case-insensitively.
func HasAnyRole(role StaffRole, allowed ...StaffRole) bool {
	for _, a := range allowed {
		if strings.EqualFold(string(role), string(a)) {
			return true
		}
	}
	return false
}
