// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package backend

import "github.com/samber/oops"

// CredentialKind selects the first-factor login method.
type CredentialKind int

const (
	// KindDeveloperTool logs in through a locally running developer auth
	// tool. Requires the tool's URL and a configured username.
	KindDeveloperTool CredentialKind = iota
	// KindBrowserPortal hands the login off to an external browser flow.
	KindBrowserPortal
	// KindStorefrontTicket exchanges a storefront session ticket for a
	// primary identity.
	KindStorefrontTicket
	// KindDeviceID skips the primary provider entirely and logs in to the
	// product backend with a per-device credential.
	KindDeviceID
)

func (k CredentialKind) String() string {
	switch k {
	case KindDeveloperTool:
		return "developer"
	case KindBrowserPortal:
		return "portal"
	case KindStorefrontTicket:
		return "storefront"
	case KindDeviceID:
		return "device"
	default:
		return "unknown"
	}
}

// ParseCredentialKind maps a config string to a CredentialKind.
func ParseCredentialKind(s string) (CredentialKind, error) {
	switch s {
	case "developer", "dev":
		return KindDeveloperTool, nil
	case "portal", "account":
		return KindBrowserPortal, nil
	case "storefront", "steam":
		return KindStorefrontTicket, nil
	case "device":
		return KindDeviceID, nil
	default:
		return 0, oops.Code("CONFIG_INVALID").
			With("login_kind", s).
			Errorf("unknown login credential kind %q", s)
	}
}

// ScopeFlags requested on primary login.
const (
	ScopeBasicProfile = 1 << iota
	ScopeFriendsList
	ScopePresence
)

// DefaultScopes is the scope set requested for every primary login.
const DefaultScopes = ScopeBasicProfile | ScopeFriendsList | ScopePresence

// Credential is a first-factor login credential for the identity provider.
// The field meaning depends on Kind: for KindDeveloperTool, ID is the dev
// auth tool URL and Token is the username; for KindStorefrontTicket, Token
// is the storefront session ticket; for KindBrowserPortal both are empty.
type Credential struct {
	Kind   CredentialKind
	ID     string
	Token  string
	Scopes int
}

// UserLoginMethod selects how a product-backend login authenticates.
type UserLoginMethod int

const (
	// MethodIDToken presents a short-lived identity token obtained from
	// the primary provider.
	MethodIDToken UserLoginMethod = iota
	// MethodDeviceID presents the locally stored device credential.
	MethodDeviceID
)

// UserCredential is a product-backend login credential.
type UserCredential struct {
	Method UserLoginMethod
	// Token is the identity token for MethodIDToken; unused for
	// MethodDeviceID.
	Token string
	// DisplayName is the name shown for device-id users, who have no
	// primary identity to pull one from.
	DisplayName string
}
