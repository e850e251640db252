// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package identity

// Phase is the authentication state-machine state.
type Phase int

const (
	PhaseUnauthenticated Phase = iota
	PhaseAuthenticatingPrimary
	PhaseNeedsLinking
	PhaseLinkingAccount
	PhasePrimaryAuthenticated
	PhaseExchangingToken
	PhaseBackendLoggingIn
	PhaseNeedsBackendUserCreation
	PhaseCreatingBackendUser
	PhaseBackendLoggingInDevice
	PhaseCreatingDeviceID
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticatingPrimary:
		return "authenticating_primary"
	case PhaseNeedsLinking:
		return "needs_linking"
	case PhaseLinkingAccount:
		return "linking_account"
	case PhasePrimaryAuthenticated:
		return "primary_authenticated"
	case PhaseExchangingToken:
		return "exchanging_token"
	case PhaseBackendLoggingIn:
		return "backend_logging_in"
	case PhaseNeedsBackendUserCreation:
		return "needs_backend_user_creation"
	case PhaseCreatingBackendUser:
		return "creating_backend_user"
	case PhaseBackendLoggingInDevice:
		return "backend_logging_in_device"
	case PhaseCreatingDeviceID:
		return "creating_device_id"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// inFlight reports whether a login attempt is currently progressing, i.e.
// a new StartLogin must be rejected.
func (p Phase) inFlight() bool {
	switch p {
	case PhaseUnauthenticated, PhaseAuthenticated:
		return false
	default:
		return true
	}
}
