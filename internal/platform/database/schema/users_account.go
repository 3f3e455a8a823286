package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table             string
	ID                string
	Name              string
	Email             string
	Photo             string
	Role              string
	PasswordHash      string
	PasswordChangedAt string
	ResetTokenHash    string
	ResetExpiresAt    string
	IsActive          string
	CreatedAt         string
	UpdatedAt         string
	Version           string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:             "users.account",
	ID:                "id",
	Name:              "name",
	Email:             "email",
	Photo:             "photo",
	Role:              "role",
	PasswordHash:      "passwordhash",
	PasswordChangedAt: "passwordchangedat",
	ResetTokenHash:    "passwordresettoken",
	ResetExpiresAt:    "passwordresetexpiresat",
	IsActive:          "isactive",
	CreatedAt:         "createdat",
	UpdatedAt:         "updatedat",
	Version:           "version",
}
