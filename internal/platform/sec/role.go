// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Unrestricted system access
	RoleAdmin UserRole = "admin"

	// Manages the tour catalogue and its guides
	RoleLeadGuide UserRole = "lead-guide"

	// Leads tours and sees the monthly plan
	RoleGuide UserRole = "guide"

	// Default role for registered customers
	RoleUser UserRole = "user"
)

// Roles lists every assignable role.
var Roles = []UserRole{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// In reports whether r is a member of allowed.
func (r UserRole) In(allowed ...UserRole) bool {
	for _, role := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// RoleNames returns the roles as plain strings, in declaration order.
func RoleNames() []string {
	names := make([]string, len(Roles))
	for i, role := range Roles {
		names[i] = string(role)
	}
	return names
}
