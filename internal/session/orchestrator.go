// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

// Package session orchestrates the multiplayer session lifecycle:
// create, discover, join, leave, invite handling, and roster
// registration against an asynchronous session backend.
//
// Orchestrator is not safe for concurrent use. Like the identity
// pipeline, all methods and backend completions must run on the single
// goroutine pumping the backend queue; callbacks are correlated by
// explicit keys, never by completion order.
package session

import (
	"log/slog"
	"slices"

	"github.com/samber/oops"

	"github.com/netdodge/netdodge/internal/backend"
	"github.com/netdodge/netdodge/internal/events"
	"github.com/netdodge/netdodge/pkg/errutil"
)

const (
	maxSessionPlayers  = 1000
	maxBucketIDLen     = 1000
	maxAttributeKeyLen = 32

	// hostAddress is a placeholder; the gameplay transport negotiates
	// real peer addresses itself.
	hostAddress = "peer-managed"

	defaultMaxSearchResults = 10
)

type pendingInvite struct {
	fromUserID string
	desc       *backend.SessionDescriptor
}

// Orchestrator owns the session membership state machine, the current
// search result set, and the pending-invite cache.
type Orchestrator struct {
	svc    backend.SessionService
	users  backend.UserService
	sink   events.Sink
	logger *slog.Logger

	// userID yields the authenticated backend user id, or "" when
	// unauthenticated.
	userID func() string

	state     membershipState
	localKey  string
	sessionID string

	// pendingInviteID correlates an in-flight invite accept; completions
	// for any other invite are stale and ignored.
	pendingInviteID string

	searching bool
	results   []*backend.SessionDescriptor

	invites   map[string]*pendingInvite
	inviteSub *backend.Subscription
}

// New builds an orchestrator and subscribes to invite notifications.
// users may be nil; inviter display names then stay unresolved.
func New(svc backend.SessionService, users backend.UserService, sink events.Sink, logger *slog.Logger, userID func() string) *Orchestrator {
	o := &Orchestrator{
		svc:     svc,
		users:   users,
		sink:    sink,
		logger:  logger.With("component", "session"),
		userID:  userID,
		invites: make(map[string]*pendingInvite),
	}
	o.inviteSub = svc.NotifyInviteReceived(o.onInviteNotification)
	return o
}

// InSession reports whether a session membership is fully established.
func (o *Orchestrator) InSession() bool { return o.state.active() }

// IsOwner reports whether the current membership resulted from a create.
func (o *Orchestrator) IsOwner() bool { return o.state == stateActiveOwner }

// SessionID returns the backend session id, or "" outside Active states.
func (o *Orchestrator) SessionID() string { return o.sessionID }

// LocalKey returns the caller-chosen session key, or "" when idle.
func (o *Orchestrator) LocalKey() string { return o.localKey }

func (o *Orchestrator) requireUser() (string, error) {
	uid := o.userID()
	if uid == "" {
		return "", oops.Code("SESSION_NOT_AUTHENTICATED").
			Errorf("not authenticated")
	}
	return uid, nil
}

// CreateSession creates (and becomes owner of) a new session known
// locally as localKey. Precondition failures return synchronously with
// no backend call; otherwise exactly one SessionCreated event follows.
func (o *Orchestrator) CreateSession(localKey string, maxPlayers uint32, public bool, bucketID string, attributes map[string]string) error {
	uid, err := o.requireUser()
	if err != nil {
		return err
	}
	if err := validateSettings(localKey, maxPlayers, bucketID, attributes); err != nil {
		return err
	}
	if o.state.busy() {
		return oops.Code("SESSION_ALREADY_ACTIVE").
			With("state", o.state.String()).
			With("local_key", o.localKey).
			Errorf("already in a session")
	}

	mod, code := o.svc.CreateModification(localKey, uid)
	if !code.OK() {
		return oops.Code("SESSION_MODIFICATION_FAILED").
			With("result", code.String()).
			Errorf("could not begin session settings: %s", code)
	}
	applySettings(mod, maxPlayers, public, bucketID, attributes)

	// Speculatively claim the key so a second attempt is rejected
	// before this one completes.
	o.state = statePendingCreate
	o.localKey = localKey
	Operations.WithLabelValues("create").Inc()
	o.logger.Info("creating session", "local_key", localKey, "max_players", maxPlayers, "public", public)
	o.svc.UpdateSession(mod, o.onUpdateSession)
	return nil
}

// UpdateSessionSettings commits new settings to the owned session
// in place. No event is emitted; commit failures are logged only.
func (o *Orchestrator) UpdateSessionSettings(maxPlayers uint32, public bool, bucketID string, attributes map[string]string) error {
	uid, err := o.requireUser()
	if err != nil {
		return err
	}
	if o.state != stateActiveOwner {
		return oops.Code("SESSION_NOT_OWNER").
			With("state", o.state.String()).
			Errorf("no owned session to update")
	}
	if err := validateSettings(o.localKey, maxPlayers, bucketID, attributes); err != nil {
		return err
	}
	mod, code := o.svc.CreateModification(o.localKey, uid)
	if !code.OK() {
		return oops.Code("SESSION_MODIFICATION_FAILED").
			With("result", code.String()).
			Errorf("could not begin session settings: %s", code)
	}
	applySettings(mod, maxPlayers, public, bucketID, attributes)
	Operations.WithLabelValues("update").Inc()
	o.svc.UpdateSession(mod, o.onUpdateSession)
	return nil
}

func validateSettings(localKey string, maxPlayers uint32, bucketID string, attributes map[string]string) error {
	if localKey == "" {
		return oops.Code("SESSION_INVALID_KEY").Errorf("local session key must not be empty")
	}
	if maxPlayers < 1 || maxPlayers > maxSessionPlayers {
		return oops.Code("SESSION_INVALID_CAPACITY").
			With("max_players", maxPlayers).
			Errorf("max players must be in [1,%d]", maxSessionPlayers)
	}
	if bucketID == "" || len(bucketID) > maxBucketIDLen {
		return oops.Code("SESSION_INVALID_BUCKET").
			Errorf("bucket id must be 1..%d characters", maxBucketIDLen)
	}
	for key := range attributes {
		if key == "" || len(key) > maxAttributeKeyLen {
			return oops.Code("SESSION_INVALID_ATTRIBUTE").
				With("key", key).
				Errorf("attribute keys must be 1..%d characters", maxAttributeKeyLen)
		}
	}
	return nil
}

func applySettings(mod *backend.SessionModification, maxPlayers uint32, public bool, bucketID string, attributes map[string]string) {
	mod.SetHostAddress(hostAddress)
	mod.SetBucketID(bucketID)
	mod.SetMaxPlayers(maxPlayers)
	mod.SetJoinInProgressAllowed(true)
	if public {
		mod.SetPermissionLevel(backend.PermissionPublicAdvertised)
	} else {
		mod.SetPermissionLevel(backend.PermissionInviteOnly)
	}
	for key, value := range attributes {
		mod.AddAttribute(key, value)
	}
}

func (o *Orchestrator) onUpdateSession(res backend.UpdateSessionResult) {
	switch {
	case o.state == statePendingCreate && res.LocalKey == o.localKey:
		if !res.Code.OK() {
			err := oops.Code("SESSION_CREATE_FAILED").
				With("result", res.Code.String()).
				With("local_key", res.LocalKey).
				Errorf("session creation failed: %s", res.Code)
			o.localKey = ""
			o.state = stateIdle
			errutil.LogError(o.logger, "session creation failed", err)
			o.sink.Emit(events.SessionCreated{Success: false, ErrorMessage: errutil.Message(err)})
			return
		}
		o.sessionID = res.SessionID
		o.state = stateActiveOwner
		o.logger.Info("session created", "session_id", res.SessionID, "local_key", res.LocalKey)
		o.sink.Emit(events.SessionCreated{Success: true, SessionID: res.SessionID})

	case o.state == stateActiveOwner && res.LocalKey == o.localKey:
		// Update-in-place commit; not a creation, no event.
		if !res.Code.OK() {
			o.logger.Warn("session update rejected", "result", res.Code.String(), "local_key", res.LocalKey)
			return
		}
		o.logger.Info("session updated", "session_id", res.SessionID)

	default:
		o.logger.Warn("ignoring stale session commit",
			"commit_key", res.LocalKey, "current_key", o.localKey, "state", o.state.String())
	}
}

// JoinSession joins the session behind desc under localKey. The
// descriptor stays owned by its source (search set or invite cache)
// and is not released here.
func (o *Orchestrator) JoinSession(desc *backend.SessionDescriptor, localKey string) error {
	uid, err := o.requireUser()
	if err != nil {
		return err
	}
	if desc == nil || desc.Released() {
		return oops.Code("SESSION_INVALID_DESCRIPTOR").Errorf("no session descriptor to join")
	}
	if localKey == "" {
		return oops.Code("SESSION_INVALID_KEY").Errorf("local session key must not be empty")
	}
	if o.state.busy() {
		return oops.Code("SESSION_ALREADY_ACTIVE").
			With("state", o.state.String()).
			Errorf("already in a session")
	}

	o.state = statePendingJoin
	o.localKey = localKey
	sessionID := desc.Info().ID
	Operations.WithLabelValues("join").Inc()
	o.logger.Info("joining session", "session_id", sessionID, "local_key", localKey)
	o.svc.Join(desc, localKey, uid, localKey, true, func(res backend.JoinResult) {
		o.onJoin(res, sessionID)
	})
	return nil
}

// JoinSessionByIndex joins the i-th result of the most recent search.
func (o *Orchestrator) JoinSessionByIndex(i int, localKey string) error {
	if i < 0 || i >= len(o.results) {
		return oops.Code("SESSION_INVALID_RESULT").
			With("index", i).
			With("results", len(o.results)).
			Errorf("no search result at index %d", i)
	}
	return o.JoinSession(o.results[i], localKey)
}

func (o *Orchestrator) onJoin(res backend.JoinResult, sessionID string) {
	if o.state != statePendingJoin || res.Correlation != o.localKey {
		o.logger.Warn("ignoring stale join completion",
			"correlation", res.Correlation, "current_key", o.localKey, "state", o.state.String())
		return
	}
	if !res.Code.OK() {
		err := oops.Code("SESSION_JOIN_FAILED").
			With("result", res.Code.String()).
			With("session_id", sessionID).
			Errorf("session join failed: %s", res.Code)
		o.localKey = ""
		o.sessionID = ""
		o.state = stateIdle
		errutil.LogError(o.logger, "session join failed", err)
		o.sink.Emit(events.SessionJoined{Success: false, ErrorMessage: errutil.Message(err)})
		return
	}
	o.sessionID = sessionID
	o.state = stateActiveMember
	o.logger.Info("session joined", "session_id", sessionID)
	o.sink.Emit(events.SessionJoined{Success: true, SessionID: sessionID})
}

// LeaveSession leaves the current session. Membership is cleared when
// the completion arrives with a matching key, whether or not the remote
// destroy succeeded; a stuck pending state is worse than a dangling
// remote session.
func (o *Orchestrator) LeaveSession() error {
	if !o.state.active() {
		return oops.Code("SESSION_NOT_IN_SESSION").
			With("state", o.state.String()).
			Errorf("no session to leave")
	}
	o.state = statePendingLeave
	Operations.WithLabelValues("leave").Inc()
	o.logger.Info("leaving session", "session_id", o.sessionID, "local_key", o.localKey)
	o.svc.Destroy(o.localKey, o.localKey, o.onDestroy)
	return nil
}

func (o *Orchestrator) onDestroy(res backend.DestroyResult) {
	if o.state != statePendingLeave || res.Correlation != o.localKey {
		o.logger.Warn("ignoring stale leave completion",
			"correlation", res.Correlation, "current_key", o.localKey, "state", o.state.String())
		return
	}
	if !res.Code.OK() {
		o.logger.Warn("remote session destroy failed, clearing membership anyway",
			"result", res.Code.String(), "local_key", res.Correlation)
		o.clearMembership()
		err := oops.Code("SESSION_LEAVE_FAILED").
			With("result", res.Code.String()).
			Errorf("session leave failed: %s", res.Code)
		o.sink.Emit(events.SessionLeft{Success: false, ErrorMessage: errutil.Message(err)})
		return
	}
	o.logger.Info("session left", "local_key", res.Correlation)
	o.clearMembership()
	o.sink.Emit(events.SessionLeft{Success: true})
}

// Reset clears the local membership without a backend call, for use
// when the transport layer reports a forced disconnect. Completions for
// the old key are ignored afterwards.
func (o *Orchestrator) Reset() {
	if o.state == stateIdle {
		return
	}
	o.logger.Info("resetting session membership",
		"state", o.state.String(), "local_key", o.localKey)
	o.clearMembership()
}

func (o *Orchestrator) clearMembership() {
	o.state = stateIdle
	o.localKey = ""
	o.sessionID = ""
	o.pendingInviteID = ""
}

// RegisterPlayer adds playerID to the owned session's roster. It always
// emits exactly one PlayerRegistered event, including for local
// precondition failures.
func (o *Orchestrator) RegisterPlayer(playerID string) {
	o.rosterCall(playerID, true)
}

// UnregisterPlayer removes playerID from the owned session's roster.
func (o *Orchestrator) UnregisterPlayer(playerID string) {
	o.rosterCall(playerID, false)
}

func (o *Orchestrator) rosterCall(playerID string, register bool) {
	emit := func(success bool, msg string) {
		if register {
			o.sink.Emit(events.PlayerRegistered{Success: success, PlayerID: playerID, ErrorMessage: msg})
		} else {
			o.sink.Emit(events.PlayerUnregistered{Success: success, PlayerID: playerID, ErrorMessage: msg})
		}
	}
	if playerID == "" || o.state != stateActiveOwner {
		err := oops.Code("ROSTER_NOT_OWNER").
			With("state", o.state.String()).
			Errorf("not owner or not in a session")
		errutil.LogError(o.logger, "roster change rejected", err)
		emit(false, errutil.Message(err))
		return
	}

	cb := func(res backend.RosterResult) { o.onRoster(res, emit) }
	if register {
		Operations.WithLabelValues("register").Inc()
		o.svc.RegisterPlayers(o.localKey, []string{playerID}, playerID, cb)
	} else {
		Operations.WithLabelValues("unregister").Inc()
		o.svc.UnregisterPlayers(o.localKey, []string{playerID}, playerID, cb)
	}
}

// onRoster distinguishes the three roster outcomes: processed,
// sanctioned, or present in neither list despite overall success.
func (o *Orchestrator) onRoster(res backend.RosterResult, emit func(bool, string)) {
	playerID := res.Correlation
	switch {
	case !res.Code.OK():
		err := oops.Code("ROSTER_FAILED").
			With("result", res.Code.String()).
			With("player_id", playerID).
			Errorf("roster change failed: %s", res.Code)
		errutil.LogError(o.logger, "roster change failed", err)
		emit(false, errutil.Message(err))
	case slices.Contains(res.Sanctioned, playerID):
		err := oops.Code("ROSTER_SANCTIONED").
			With("player_id", playerID).
			Errorf("player is sanctioned")
		o.logger.Warn("player sanctioned", "player_id", playerID)
		emit(false, errutil.Message(err))
	case slices.Contains(res.Registered, playerID):
		o.logger.Info("roster change applied", "player_id", playerID)
		emit(true, "")
	default:
		err := oops.Code("ROSTER_AMBIGUOUS").
			With("player_id", playerID).
			Errorf("backend reported success but player appears in no roster list")
		o.logger.Warn("ambiguous roster outcome", "player_id", playerID)
		emit(false, errutil.Message(err))
	}
}

// Close tears the orchestrator down, releasing every retained backend
// handle: the current search generation and all cached invites.
func (o *Orchestrator) Close() {
	o.inviteSub.Remove()
	o.releaseResults()
	for id := range o.invites {
		o.releaseInvite(id)
	}
}
