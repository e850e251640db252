// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package backend

// PermissionLevel controls session discoverability.
type PermissionLevel int

const (
	PermissionPublicAdvertised PermissionLevel = iota
	PermissionInviteOnly
)

// SessionModification is a builder for session settings, consumed by
// UpdateSession. Obtained from SessionService.CreateModification.
type SessionModification struct {
	localKey       string
	localUserID    string
	hostAddress    string
	bucketID       string
	maxPlayers     uint32
	joinInProgress bool
	permission     PermissionLevel
	attributes     map[string]string
}

// SetHostAddress records the address clients connect to. May be a
// placeholder when the transport layer negotiates addresses itself.
func (m *SessionModification) SetHostAddress(addr string) { m.hostAddress = addr }

// SetBucketID sets the coarse matchmaking partition for the session.
func (m *SessionModification) SetBucketID(bucketID string) { m.bucketID = bucketID }

// SetMaxPlayers sets the session capacity.
func (m *SessionModification) SetMaxPlayers(n uint32) { m.maxPlayers = n }

// SetJoinInProgressAllowed controls whether players may join mid-game.
func (m *SessionModification) SetJoinInProgressAllowed(allowed bool) { m.joinInProgress = allowed }

// SetPermissionLevel controls discoverability.
func (m *SessionModification) SetPermissionLevel(p PermissionLevel) { m.permission = p }

// AddAttribute adds an advertised, searchable attribute.
func (m *SessionModification) AddAttribute(key, value string) {
	if m.attributes == nil {
		m.attributes = make(map[string]string)
	}
	m.attributes[key] = value
}

// attributeFilter is an equality constraint on an advertised attribute.
type attributeFilter struct {
	key   string
	value string
}

// SessionSearch is a builder-plus-result-cursor for a session search.
// After Find completes successfully, results are copied out one at a time;
// the search itself must be released when done.
type SessionSearch struct {
	maxResults   int
	minOpenSlots int64
	filters      []attributeFilter
	results      []SessionInfo
	newDesc      func(SessionInfo) *SessionDescriptor
	released     bool
}

// SetParameter adds an equality filter on an advertised attribute.
func (s *SessionSearch) SetParameter(key, value string) {
	s.filters = append(s.filters, attributeFilter{key: key, value: value})
}

// SetMinOpenSlots constrains results to sessions with at least n open slots.
func (s *SessionSearch) SetMinOpenSlots(n int64) { s.minOpenSlots = n }

// ResultCount returns the number of raw results after Find completed.
func (s *SessionSearch) ResultCount() int { return len(s.results) }

// CopyResult copies the i-th raw result into an owned descriptor. The
// caller assumes the release obligation for the returned descriptor.
func (s *SessionSearch) CopyResult(i int) (*SessionDescriptor, Result) {
	if s.released {
		return nil, ResultNotFound
	}
	if i < 0 || i >= len(s.results) {
		return nil, ResultInvalidParameters
	}
	return s.newDesc(s.results[i]), ResultSuccess
}

// Release frees the raw result set held by the search.
func (s *SessionSearch) Release() {
	s.results = nil
	s.released = true
}

// UpdateSessionResult is the completion payload of a session commit. It
// serves both creation (first commit for a local key) and update-in-place.
type UpdateSessionResult struct {
	Code      Result
	SessionID string
	// LocalKey echoes the caller-chosen key the commit was issued under.
	LocalKey string
}

// JoinResult is the completion payload of a join.
type JoinResult struct {
	Code Result
	// Correlation echoes the request-scoped key (local session key or
	// invite id) the join was issued under.
	Correlation string
}

// DestroyResult is the completion payload of a destroy/leave.
type DestroyResult struct {
	Code Result
	// Correlation echoes the local session key the destroy was issued
	// under. Callbacks must be matched against current state by this key,
	// never by assuming FIFO completion.
	Correlation string
}

// RosterResult is the completion payload of a register/unregister call.
// With an overall-success code a player may still appear in neither list;
// callers must treat that as a distinct, ambiguous outcome.
type RosterResult struct {
	Code        Result
	Correlation string
	Registered  []string
	Sanctioned  []string
}

// RejectInviteResult is the completion payload of an invite rejection.
type RejectInviteResult struct {
	Code     Result
	InviteID string
}

// QueryInvitesResult is the completion payload of a pull-based invite query.
type QueryInvitesResult struct {
	Code      Result
	InviteIDs []string
}

// InviteNotification is the push payload for a received session invite.
type InviteNotification struct {
	InviteID     string
	FromUserID   string
	TargetUserID string
}

// SessionService is the matchmaking/session capability surface.
type SessionService interface {
	// CreateModification begins a settings build for the session known
	// locally as localKey. Fails synchronously; no callback is involved.
	CreateModification(localKey, localUserID string) (*SessionModification, Result)

	// UpdateSession commits a modification. The first successful commit
	// for a local key creates the session.
	UpdateSession(mod *SessionModification, cb func(UpdateSessionResult))

	// CreateSearch begins a search build. Fails synchronously.
	CreateSearch(maxResults int) (*SessionSearch, Result)

	// Find executes a search; results are read from the search handle.
	Find(search *SessionSearch, localUserID string, cb func(Result))

	// Join joins the session behind desc under localKey. correlation is
	// echoed back in the completion payload.
	Join(desc *SessionDescriptor, localKey, localUserID, correlation string, presence bool, cb func(JoinResult))

	// Destroy leaves/destroys the session known locally as localKey.
	Destroy(localKey, correlation string, cb func(DestroyResult))

	// RegisterPlayers adds players to the session roster. Owner only.
	RegisterPlayers(localKey string, players []string, correlation string, cb func(RosterResult))

	// UnregisterPlayers removes players from the session roster.
	UnregisterPlayers(localKey string, players []string, correlation string, cb func(RosterResult))

	// CopyDescriptorByInviteID synchronously copies the session details
	// behind a cached invite. The caller owns the returned descriptor.
	CopyDescriptorByInviteID(inviteID string) (*SessionDescriptor, Result)

	// RejectInvite declines an invite.
	RejectInvite(inviteID, localUserID string, cb func(RejectInviteResult))

	// QueryInvites pulls the backend's cached invites for a user.
	QueryInvites(localUserID string, cb func(QueryInvitesResult))

	// NotifyInviteReceived registers for invite push notifications.
	NotifyInviteReceived(cb func(InviteNotification)) *Subscription
}
