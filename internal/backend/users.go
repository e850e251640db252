// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package backend

// UserLoginResult is the completion payload of a product-backend login.
type UserLoginResult struct {
	Code Result
	// UserID is the product user id, set on success.
	UserID string
	// Continuance is set when Code is ResultInvalidUser; it must be the
	// token passed to CreateUser, not the primary provider's.
	Continuance *ContinuanceToken
}

// UserCreateResult is the completion payload of a product-user creation.
type UserCreateResult struct {
	Code   Result
	UserID string
}

// UserService is the product-user half of the session backend: it exchanges
// a primary identity token (or a device credential) for a product user id
// and owns the auth lifecycle notifications.
type UserService interface {
	// Login authenticates against the product backend.
	Login(cred UserCredential, cb func(UserLoginResult))

	// CreateUser creates a product user from a continuance token returned
	// by a failed Login.
	CreateUser(tok *ContinuanceToken, cb func(UserCreateResult))

	// CreateDeviceID provisions the local device credential. Reports
	// ResultDuplicateNotAllowed if one already exists.
	CreateDeviceID(deviceModel string, cb func(Result))

	// CopyDisplayName synchronously resolves a user's display name.
	CopyDisplayName(userID string) (Result, string)

	// NotifyAuthExpiration registers for the imminent-expiry notification.
	NotifyAuthExpiration(cb func()) *Subscription

	// NotifyLoginStatusChanged registers for login-status transitions.
	NotifyLoginStatusChanged(cb func(loggedIn bool)) *Subscription
}
