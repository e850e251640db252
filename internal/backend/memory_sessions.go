// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package backend

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

type memSession struct {
	info       SessionInfo
	permission PermissionLevel
	bucketID   string
	registered map[string]bool
}

type localBinding struct {
	sessionID   string
	createdHere bool
}

type memInvite struct {
	fromUserID   string
	targetUserID string
	sessionID    string
}

// MemorySessionService is an in-memory SessionService for local play and
// tests. All asynchronous completions go through the shared Queue.
type MemorySessionService struct {
	q *Queue

	mu         sync.Mutex
	sessions   map[string]*memSession
	localKeys  map[string]*localBinding
	invites    map[string]*memInvite
	sanctioned map[string]bool
	// omitFromRoster players complete register calls in neither the
	// registered nor the sanctioned list despite overall success.
	omitFromRoster map[string]bool
	failNext       map[string]Result
	inviteSubs     map[int]func(InviteNotification)
	subSeq         int
	openHandles    int
}

// NewMemorySessionService creates an empty service delivering through q.
func NewMemorySessionService(q *Queue) *MemorySessionService {
	return &MemorySessionService{
		q:              q,
		sessions:       make(map[string]*memSession),
		localKeys:      make(map[string]*localBinding),
		invites:        make(map[string]*memInvite),
		sanctioned:     make(map[string]bool),
		omitFromRoster: make(map[string]bool),
		failNext:       make(map[string]Result),
		inviteSubs:     make(map[int]func(InviteNotification)),
	}
}

// FailNext forces the next completion of op ("update", "join", "destroy",
// "register", "unregister", "find", "reject", "query") to the given code.
func (s *MemorySessionService) FailNext(op string, code Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[op] = code
}

func (s *MemorySessionService) takeFailureLocked(op string) (Result, bool) {
	code, ok := s.failNext[op]
	if ok {
		delete(s.failNext, op)
	}
	return code, ok
}

// SanctionPlayer marks a player as sanctioned for roster calls.
func (s *MemorySessionService) SanctionPlayer(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sanctioned[playerID] = true
}

// OmitFromRoster makes register calls for playerID report success while
// listing the player in neither result list.
func (s *MemorySessionService) OmitFromRoster(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitFromRoster[playerID] = true
}

// OpenHandles returns the number of unreleased descriptors handed out.
func (s *MemorySessionService) OpenHandles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openHandles
}

func (s *MemorySessionService) newDescriptor(info SessionInfo) *SessionDescriptor {
	s.mu.Lock()
	s.openHandles++
	s.mu.Unlock()
	return NewSessionDescriptor(info, func() {
		s.mu.Lock()
		s.openHandles--
		s.mu.Unlock()
	})
}

// CreateModification implements SessionService.
func (s *MemorySessionService) CreateModification(localKey, localUserID string) (*SessionModification, Result) {
	if localKey == "" || localUserID == "" {
		return nil, ResultInvalidParameters
	}
	return &SessionModification{localKey: localKey, localUserID: localUserID}, ResultSuccess
}

// UpdateSession implements SessionService.
func (s *MemorySessionService) UpdateSession(mod *SessionModification, cb func(UpdateSessionResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code, ok := s.takeFailureLocked("update"); ok {
		localKey := mod.localKey
		s.q.Defer(func() { cb(UpdateSessionResult{Code: code, LocalKey: localKey}) })
		return
	}

	if binding, ok := s.localKeys[mod.localKey]; ok {
		// Update-in-place of an existing session.
		sess := s.sessions[binding.sessionID]
		if sess == nil {
			localKey := mod.localKey
			s.q.Defer(func() { cb(UpdateSessionResult{Code: ResultNotFound, LocalKey: localKey}) })
			return
		}
		if mod.maxPlayers > 0 {
			sess.info.MaxPlayers = mod.maxPlayers
		}
		for k, v := range mod.attributes {
			sess.info.Attributes[k] = v
		}
		sess.permission = mod.permission
		result := UpdateSessionResult{Code: ResultSuccess, SessionID: binding.sessionID, LocalKey: mod.localKey}
		s.q.Defer(func() { cb(result) })
		return
	}

	sessionID := ulid.Make().String()
	attrs := make(map[string]string, len(mod.attributes))
	for k, v := range mod.attributes {
		attrs[k] = v
	}
	openSlots := uint32(0)
	if mod.maxPlayers > 0 {
		// The host occupies one slot.
		openSlots = mod.maxPlayers - 1
	}
	s.sessions[sessionID] = &memSession{
		info: SessionInfo{
			ID:             sessionID,
			OwnerUserID:    mod.localUserID,
			OpenSlots:      openSlots,
			MaxPlayers:     mod.maxPlayers,
			JoinInProgress: mod.joinInProgress,
			Attributes:     attrs,
		},
		permission: mod.permission,
		bucketID:   mod.bucketID,
		registered: map[string]bool{mod.localUserID: true},
	}
	s.localKeys[mod.localKey] = &localBinding{sessionID: sessionID, createdHere: true}

	result := UpdateSessionResult{Code: ResultSuccess, SessionID: sessionID, LocalKey: mod.localKey}
	s.q.Defer(func() { cb(result) })
}

// CreateSearch implements SessionService.
func (s *MemorySessionService) CreateSearch(maxResults int) (*SessionSearch, Result) {
	if maxResults <= 0 {
		return nil, ResultInvalidParameters
	}
	return &SessionSearch{maxResults: maxResults, newDesc: s.newDescriptor}, ResultSuccess
}

// Find implements SessionService.
func (s *MemorySessionService) Find(search *SessionSearch, localUserID string, cb func(Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code, ok := s.takeFailureLocked("find"); ok {
		s.q.Defer(func() { cb(code) })
		return
	}
	if search == nil || localUserID == "" {
		s.q.Defer(func() { cb(ResultInvalidParameters) })
		return
	}

	var matches []SessionInfo
	for _, sess := range s.sessions {
		if len(matches) >= search.maxResults {
			break
		}
		if sess.permission != PermissionPublicAdvertised {
			continue
		}
		if int64(sess.info.OpenSlots) < search.minOpenSlots {
			continue
		}
		ok := true
		for _, f := range search.filters {
			if sess.info.Attributes[f.key] != f.value {
				ok = false
				break
			}
		}
		if ok {
			matches = append(matches, sess.info.clone())
		}
	}
	search.results = matches
	s.q.Defer(func() { cb(ResultSuccess) })
}

// Join implements SessionService.
func (s *MemorySessionService) Join(desc *SessionDescriptor, localKey, localUserID, correlation string, _ bool, cb func(JoinResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code, ok := s.takeFailureLocked("join"); ok {
		s.q.Defer(func() { cb(JoinResult{Code: code, Correlation: correlation}) })
		return
	}
	if desc == nil || localKey == "" || localUserID == "" {
		s.q.Defer(func() { cb(JoinResult{Code: ResultInvalidParameters, Correlation: correlation}) })
		return
	}

	sess, ok := s.sessions[desc.Info().ID]
	if !ok {
		s.q.Defer(func() { cb(JoinResult{Code: ResultNotFound, Correlation: correlation}) })
		return
	}
	if sess.info.OpenSlots == 0 {
		s.q.Defer(func() { cb(JoinResult{Code: ResultSessionFull, Correlation: correlation}) })
		return
	}
	sess.info.OpenSlots--
	s.localKeys[localKey] = &localBinding{sessionID: sess.info.ID}
	s.q.Defer(func() { cb(JoinResult{Code: ResultSuccess, Correlation: correlation}) })
}

// Destroy implements SessionService.
func (s *MemorySessionService) Destroy(localKey, correlation string, cb func(DestroyResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code, ok := s.takeFailureLocked("destroy"); ok {
		s.q.Defer(func() { cb(DestroyResult{Code: code, Correlation: correlation}) })
		return
	}

	binding, ok := s.localKeys[localKey]
	if !ok {
		s.q.Defer(func() { cb(DestroyResult{Code: ResultNotFound, Correlation: correlation}) })
		return
	}
	delete(s.localKeys, localKey)
	if binding.createdHere {
		delete(s.sessions, binding.sessionID)
	} else if sess, present := s.sessions[binding.sessionID]; present {
		sess.info.OpenSlots++
	}
	s.q.Defer(func() { cb(DestroyResult{Code: ResultSuccess, Correlation: correlation}) })
}

func (s *MemorySessionService) rosterCallLocked(op, localKey string, players []string, correlation string, register bool, cb func(RosterResult)) {
	if code, ok := s.takeFailureLocked(op); ok {
		s.q.Defer(func() { cb(RosterResult{Code: code, Correlation: correlation}) })
		return
	}

	binding, ok := s.localKeys[localKey]
	if !ok {
		s.q.Defer(func() { cb(RosterResult{Code: ResultNotFound, Correlation: correlation}) })
		return
	}
	sess := s.sessions[binding.sessionID]
	if sess == nil {
		s.q.Defer(func() { cb(RosterResult{Code: ResultNotFound, Correlation: correlation}) })
		return
	}

	result := RosterResult{Code: ResultSuccess, Correlation: correlation}
	for _, p := range players {
		switch {
		case s.omitFromRoster[p]:
			// Neither list, despite overall success.
		case register && s.sanctioned[p]:
			result.Sanctioned = append(result.Sanctioned, p)
		case register:
			sess.registered[p] = true
			result.Registered = append(result.Registered, p)
		default:
			delete(sess.registered, p)
			result.Registered = append(result.Registered, p)
		}
	}
	s.q.Defer(func() { cb(result) })
}

// RegisterPlayers implements SessionService.
func (s *MemorySessionService) RegisterPlayers(localKey string, players []string, correlation string, cb func(RosterResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rosterCallLocked("register", localKey, players, correlation, true, cb)
}

// UnregisterPlayers implements SessionService.
func (s *MemorySessionService) UnregisterPlayers(localKey string, players []string, correlation string, cb func(RosterResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rosterCallLocked("unregister", localKey, players, correlation, false, cb)
}

// CopyDescriptorByInviteID implements SessionService.
func (s *MemorySessionService) CopyDescriptorByInviteID(inviteID string) (*SessionDescriptor, Result) {
	s.mu.Lock()

	inv, ok := s.invites[inviteID]
	if !ok {
		s.mu.Unlock()
		return nil, ResultNotFound
	}
	sess, ok := s.sessions[inv.sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, ResultNotFound
	}
	info := sess.info.clone()
	s.mu.Unlock()

	return s.newDescriptor(info), ResultSuccess
}

// RejectInvite implements SessionService.
func (s *MemorySessionService) RejectInvite(inviteID, localUserID string, cb func(RejectInviteResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code, ok := s.takeFailureLocked("reject"); ok {
		s.q.Defer(func() { cb(RejectInviteResult{Code: code, InviteID: inviteID}) })
		return
	}

	inv, ok := s.invites[inviteID]
	if !ok || inv.targetUserID != localUserID {
		s.q.Defer(func() { cb(RejectInviteResult{Code: ResultNotFound, InviteID: inviteID}) })
		return
	}
	delete(s.invites, inviteID)
	s.q.Defer(func() { cb(RejectInviteResult{Code: ResultSuccess, InviteID: inviteID}) })
}

// QueryInvites implements SessionService.
func (s *MemorySessionService) QueryInvites(localUserID string, cb func(QueryInvitesResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code, ok := s.takeFailureLocked("query"); ok {
		s.q.Defer(func() { cb(QueryInvitesResult{Code: code}) })
		return
	}

	var ids []string
	for id, inv := range s.invites {
		if inv.targetUserID == localUserID {
			ids = append(ids, id)
		}
	}
	s.q.Defer(func() { cb(QueryInvitesResult{Code: ResultSuccess, InviteIDs: ids}) })
}

// NotifyInviteReceived implements SessionService.
func (s *MemorySessionService) NotifyInviteReceived(cb func(InviteNotification)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subSeq++
	id := s.subSeq
	s.inviteSubs[id] = cb
	return NewSubscription(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.inviteSubs, id)
	})
}

// Invite records an invite for targetUserID to the given session and pushes
// a notification to subscribers. Returns the invite id.
func (s *MemorySessionService) Invite(fromUserID, targetUserID, sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	inviteID := ulid.Make().String()
	s.invites[inviteID] = &memInvite{
		fromUserID:   fromUserID,
		targetUserID: targetUserID,
		sessionID:    sessionID,
	}
	n := InviteNotification{InviteID: inviteID, FromUserID: fromUserID, TargetUserID: targetUserID}
	for _, cb := range s.inviteSubs {
		cb := cb
		s.q.Defer(func() { cb(n) })
	}
	return inviteID
}

// InviteQuietly records an invite without pushing a notification, as when
// the invite arrived while the client was offline. Pull queries find it.
func (s *MemorySessionService) InviteQuietly(fromUserID, targetUserID, sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	inviteID := ulid.Make().String()
	s.invites[inviteID] = &memInvite{
		fromUserID:   fromUserID,
		targetUserID: targetUserID,
		sessionID:    sessionID,
	}
	return inviteID
}

// SessionID returns the backend id bound to a local key, for tests.
func (s *MemorySessionService) SessionID(localKey string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	binding, ok := s.localKeys[localKey]
	if !ok {
		return "", false
	}
	return binding.sessionID, true
}
