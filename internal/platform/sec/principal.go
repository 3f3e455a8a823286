// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// Principal is the authenticated identity attached to a request after the
// session token and the backing account have both been checked.
type Principal struct {
	ID    string
	Name  string
	Email string
	Photo string
	Role  UserRole
}
