// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package session

// membershipState tracks which session, if any, the local player is in.
// At most one membership attempt is pending at a time; a second
// create/join/accept while pending or active is rejected synchronously.
type membershipState int

const (
	stateIdle membershipState = iota
	statePendingCreate
	statePendingJoin
	statePendingAccept
	stateActiveOwner
	stateActiveMember
	statePendingLeave
)

func (s membershipState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case statePendingCreate:
		return "pending_create"
	case statePendingJoin:
		return "pending_join"
	case statePendingAccept:
		return "pending_accept"
	case stateActiveOwner:
		return "active_owner"
	case stateActiveMember:
		return "active_member"
	case statePendingLeave:
		return "pending_leave"
	default:
		return "unknown"
	}
}

// busy reports whether a membership attempt is pending or active, i.e.
// whether a new create/join/accept must be rejected.
func (s membershipState) busy() bool { return s != stateIdle }

// active reports whether the player is fully in a session.
func (s membershipState) active() bool {
	return s == stateActiveOwner || s == stateActiveMember
}
