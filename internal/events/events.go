// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

// Package events contains the typed events emitted by the identity and
// session pipelines, and the bus that delivers them to presentation code.
package events

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Type identifies the kind of event.
type Type string

const (
	TypeAuthenticationFinished Type = "authentication_finished"
	TypeAccountLinkingRequired Type = "account_linking_required"
	TypeSessionCreated         Type = "session_created"
	TypeSessionSearchFinished  Type = "session_search_finished"
	TypeSessionJoined          Type = "session_joined"
	TypeSessionLeft            Type = "session_left"
	TypeSessionInviteReceived  Type = "session_invite_received"
	TypeSessionInviteAccepted  Type = "session_invite_accepted"
	TypeSessionInviteRejected  Type = "session_invite_rejected"
	TypePlayerRegistered       Type = "player_registered"
	TypePlayerUnregistered     Type = "player_unregistered"
)

// Payload is implemented by every event payload.
type Payload interface {
	EventType() Type
}

// Event wraps a payload with identity and timing.
type Event struct {
	ID      ulid.ULID
	Type    Type
	Time    time.Time
	Payload Payload
}

// Sink accepts emitted events. The pipelines emit exactly one terminal
// event per issued operation through this interface.
type Sink interface {
	Emit(p Payload)
}

// AuthenticationFinished reports the terminal outcome of a login attempt.
type AuthenticationFinished struct {
	Success      bool
	UserID       string
	ErrorMessage string
}

func (AuthenticationFinished) EventType() Type { return TypeAuthenticationFinished }

// AccountLinkingRequired reports that the primary provider needs the caller
// to link an account before login can proceed. Not a failure.
type AccountLinkingRequired struct{}

func (AccountLinkingRequired) EventType() Type { return TypeAccountLinkingRequired }

// SessionCreated reports the terminal outcome of a create attempt.
type SessionCreated struct {
	Success      bool
	SessionID    string
	ErrorMessage string
}

func (SessionCreated) EventType() Type { return TypeSessionCreated }

// SessionSummary is a plain copy of a discoverable session, safe to hand
// to a display layer.
type SessionSummary struct {
	ID         string
	OpenSlots  uint32
	MaxPlayers uint32
	Attributes map[string]string
}

// SessionSearchFinished reports a completed search. Sessions may be empty
// on success; on failure it always is.
type SessionSearchFinished struct {
	Success      bool
	Sessions     []SessionSummary
	ErrorMessage string
}

func (SessionSearchFinished) EventType() Type { return TypeSessionSearchFinished }

// SessionJoined reports the terminal outcome of a join attempt.
type SessionJoined struct {
	Success      bool
	SessionID    string
	ErrorMessage string
}

func (SessionJoined) EventType() Type { return TypeSessionJoined }

// SessionLeft reports the terminal outcome of a leave attempt.
type SessionLeft struct {
	Success      bool
	ErrorMessage string
}

func (SessionLeft) EventType() Type { return TypeSessionLeft }

// SessionInviteReceived reports a resolved incoming invite.
type SessionInviteReceived struct {
	InviteID        string
	FromUserID      string
	FromDisplayName string
	SessionID       string
}

func (SessionInviteReceived) EventType() Type { return TypeSessionInviteReceived }

// SessionInviteAccepted reports the terminal outcome of an invite accept.
type SessionInviteAccepted struct {
	Success      bool
	SessionID    string
	ErrorMessage string
}

func (SessionInviteAccepted) EventType() Type { return TypeSessionInviteAccepted }

// SessionInviteRejected reports the terminal outcome of an invite reject.
type SessionInviteRejected struct {
	Success      bool
	ErrorMessage string
}

func (SessionInviteRejected) EventType() Type { return TypeSessionInviteRejected }

// PlayerRegistered reports the terminal outcome of a roster registration.
type PlayerRegistered struct {
	Success      bool
	PlayerID     string
	ErrorMessage string
}

func (PlayerRegistered) EventType() Type { return TypePlayerRegistered }

// PlayerUnregistered reports the terminal outcome of a roster removal.
type PlayerUnregistered struct {
	Success      bool
	PlayerID     string
	ErrorMessage string
}

func (PlayerUnregistered) EventType() Type { return TypePlayerUnregistered }
