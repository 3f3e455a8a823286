// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Credential Constraints

const (
	NameMinLength     = 3
	NameMaxLength     = 50
	PasswordMinLength = 8

	// PasswordMaxBytes is the longest input bcrypt accepts.
	PasswordMaxBytes = 72

	// passwordChangeSkew backdates passwordChangedAt by one tick of the token's
	// millisecond issue time, so the token issued in the same request stays valid.
	passwordChangeSkew = time.Millisecond
)

// # Client Messages

const (
	msgIncorrectCredentials = "Incorrect email or password"
	msgProvideCredentials   = "Please provide email and password!"
	msgNoUserWithEmail      = "There is no user with that email address."
	msgMailFailed           = "There was an error sending the email. Try again later!"
	msgTokenSent            = "Token sent to email!"
	msgCurrentPasswordWrong = "Your current password is wrong"
	msgPasswordMismatch     = "Passwords are not the same!"

	msgNotLoggedIn     = "You are not logged in! Please log in to get access."
	msgInvalidToken    = "Invalid token. Please log in again!"
	msgExpiredToken    = "Your token has expired! Please log in again."
	msgUserGone        = "The user belonging to this token does no longer exist."
	msgPasswordChanged = "User recently changed password! Please log in again."
)
