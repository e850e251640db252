// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package backend

import "github.com/samber/oops"

// ContinuanceToken is a one-time opaque value returned when an identity
// operation needs a follow-up step (account linking or user creation)
// before it can complete. It may be consumed at most once.
type ContinuanceToken struct {
	value    string
	consumed bool
}

// NewContinuanceToken wraps an opaque continuance value.
func NewContinuanceToken(value string) *ContinuanceToken {
	return &ContinuanceToken{value: value}
}

// Consume returns the opaque value and marks the token spent.
// A second call fails.
func (t *ContinuanceToken) Consume() (string, error) {
	if t.consumed {
		return "", oops.Code("CONTINUANCE_REUSED").
			Errorf("continuance token consumed twice")
	}
	t.consumed = true
	return t.value, nil
}

// SessionInfo is an immutable snapshot of a discoverable session's metadata.
type SessionInfo struct {
	ID             string
	OwnerUserID    string
	OpenSlots      uint32
	MaxPlayers     uint32
	JoinInProgress bool
	Attributes     map[string]string
}

// clone returns a deep copy so callers cannot mutate backend state.
func (si SessionInfo) clone() SessionInfo {
	attrs := make(map[string]string, len(si.Attributes))
	for k, v := range si.Attributes {
		attrs[k] = v
	}
	out := si
	out.Attributes = attrs
	return out
}

// SessionDescriptor is an owned reference to backend-held session details,
// produced by a search result copy or by invite resolution and consumed by
// join. Release must be called exactly once on every descriptor; releasing
// twice is a programming error and panics.
type SessionDescriptor struct {
	info     SessionInfo
	released bool
	onFree   func()
}

// NewSessionDescriptor creates a descriptor over a snapshot. onFree, if
// non-nil, runs when the descriptor is released.
func NewSessionDescriptor(info SessionInfo, onFree func()) *SessionDescriptor {
	return &SessionDescriptor{info: info.clone(), onFree: onFree}
}

// Info returns the session snapshot. Panics if the descriptor was released.
func (d *SessionDescriptor) Info() SessionInfo {
	if d.released {
		panic("backend: SessionDescriptor.Info after Release")
	}
	return d.info
}

// Release frees the backend-side resources behind the descriptor.
// Panics on a second call.
func (d *SessionDescriptor) Release() {
	if d.released {
		panic("backend: SessionDescriptor released twice")
	}
	d.released = true
	if d.onFree != nil {
		d.onFree()
	}
}

// Released reports whether Release has been called.
func (d *SessionDescriptor) Released() bool {
	return d.released
}
