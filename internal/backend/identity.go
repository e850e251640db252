// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package backend

// LoginResult is the completion payload of a primary-provider login.
type LoginResult struct {
	Code Result
	// AccountID is the opaque primary account handle, set on success.
	AccountID string
	// Continuance is set when Code is ResultInvalidUser and the account
	// can be linked.
	Continuance *ContinuanceToken
}

// IdentityProvider is the first-factor identity backend.
type IdentityProvider interface {
	// Login starts a primary login. The callback fires on a later tick.
	Login(cred Credential, cb func(LoginResult))

	// LinkAccount consumes a continuance token to link the presented
	// credential to an existing account.
	LinkAccount(tok *ContinuanceToken, cb func(Result))

	// CopyIDToken synchronously copies a short-lived identity token for
	// the given account, for exchange with the product backend.
	CopyIDToken(accountID string) (Result, string)
}

// TicketSource produces storefront session tickets. The storefront SDK
// behind it is an external collaborator; a login with
// KindStorefrontTicket fails synchronously when no ticket is available.
type TicketSource interface {
	SessionTicket() (string, error)
}
