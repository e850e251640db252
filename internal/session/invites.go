// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package session

import (
	"github.com/samber/oops"

	"github.com/netdodge/netdodge/internal/backend"
	"github.com/netdodge/netdodge/internal/events"
	"github.com/netdodge/netdodge/pkg/errutil"
)

// unknownDisplayName stands in when the inviter's name cannot be
// resolved; enrichment is best-effort and never blocks the invite path.
const unknownDisplayName = "Unknown"

func (o *Orchestrator) onInviteNotification(n backend.InviteNotification) {
	if n.TargetUserID != "" && n.TargetUserID != o.userID() {
		o.logger.Debug("ignoring invite for another user",
			"invite_id", n.InviteID, "target", n.TargetUserID)
		return
	}
	o.resolveInvite(n.InviteID, n.FromUserID)
}

// resolveInvite copies the session descriptor behind an invite into the
// pending-invite cache and announces it. A prior entry for the same id
// is released before being overwritten.
func (o *Orchestrator) resolveInvite(inviteID, fromUserID string) {
	desc, code := o.svc.CopyDescriptorByInviteID(inviteID)
	if !code.OK() {
		o.logger.Warn("could not resolve invite",
			"invite_id", inviteID, "result", code.String())
		return
	}
	if prev, ok := o.invites[inviteID]; ok {
		prev.desc.Release()
	}
	o.invites[inviteID] = &pendingInvite{fromUserID: fromUserID, desc: desc}
	InvitesReceived.Inc()

	fromName := unknownDisplayName
	if o.users != nil && fromUserID != "" {
		if nameCode, name := o.users.CopyDisplayName(fromUserID); nameCode.OK() {
			fromName = name
		}
	}
	sessionID := desc.Info().ID
	o.logger.Info("session invite received",
		"invite_id", inviteID, "from", fromUserID, "session_id", sessionID)
	o.sink.Emit(events.SessionInviteReceived{
		InviteID:        inviteID,
		FromUserID:      fromUserID,
		FromDisplayName: fromName,
		SessionID:       sessionID,
	})
}

// QueryInvites pulls the backend's cached invites and merges them into
// the pending-invite cache. Invites already known from a push
// notification are skipped, so push followed by pull yields exactly one
// entry per invite id.
func (o *Orchestrator) QueryInvites() error {
	uid, err := o.requireUser()
	if err != nil {
		return err
	}
	o.svc.QueryInvites(uid, func(res backend.QueryInvitesResult) {
		if !res.Code.OK() {
			o.logger.Warn("invite query failed", "result", res.Code.String())
			return
		}
		for _, id := range res.InviteIDs {
			if _, known := o.invites[id]; known {
				continue
			}
			// Pull results carry no sender; enrichment is skipped.
			o.resolveInvite(id, "")
		}
	})
	return nil
}

// PendingInvites returns the cached invite ids.
func (o *Orchestrator) PendingInvites() []string {
	ids := make([]string, 0, len(o.invites))
	for id := range o.invites {
		ids = append(ids, id)
	}
	return ids
}

// AcceptInvite joins the session behind a cached invite under localKey.
// Whatever the outcome, the pending-invite entry is released and
// removed once the completion fires.
func (o *Orchestrator) AcceptInvite(inviteID, localKey string) error {
	uid, err := o.requireUser()
	if err != nil {
		return err
	}
	inv, ok := o.invites[inviteID]
	if !ok {
		return oops.Code("INVITE_UNKNOWN").
			With("invite_id", inviteID).
			Errorf("no pending invite %q", inviteID)
	}
	if localKey == "" {
		return oops.Code("SESSION_INVALID_KEY").Errorf("local session key must not be empty")
	}
	if o.state.busy() {
		return oops.Code("SESSION_ALREADY_ACTIVE").
			With("state", o.state.String()).
			Errorf("already in a session")
	}

	o.state = statePendingAccept
	o.localKey = localKey
	o.pendingInviteID = inviteID
	sessionID := inv.desc.Info().ID
	Operations.WithLabelValues("accept_invite").Inc()
	o.logger.Info("accepting invite", "invite_id", inviteID, "session_id", sessionID)
	o.svc.Join(inv.desc, localKey, uid, inviteID, true, func(res backend.JoinResult) {
		o.onAcceptJoin(res, inviteID, sessionID)
	})
	return nil
}

func (o *Orchestrator) onAcceptJoin(res backend.JoinResult, inviteID, sessionID string) {
	o.releaseInvite(inviteID)

	// Accepts are correlated by invite id: a completion for an abandoned
	// accept must not be attributed to a later attempt.
	if o.state != statePendingAccept || o.pendingInviteID != inviteID {
		o.logger.Warn("ignoring stale invite-accept completion",
			"invite_id", inviteID, "state", o.state.String())
		return
	}
	if !res.Code.OK() {
		err := oops.Code("INVITE_ACCEPT_FAILED").
			With("result", res.Code.String()).
			With("invite_id", inviteID).
			Errorf("invite accept failed: %s", res.Code)
		o.clearMembership()
		errutil.LogError(o.logger, "invite accept failed", err)
		o.sink.Emit(events.SessionInviteAccepted{Success: false, ErrorMessage: errutil.Message(err)})
		return
	}
	o.sessionID = sessionID
	o.state = stateActiveMember
	o.pendingInviteID = ""
	o.logger.Info("invite accepted", "invite_id", inviteID, "session_id", sessionID)
	o.sink.Emit(events.SessionInviteAccepted{Success: true, SessionID: sessionID})
}

// RejectInvite declines a cached invite. The entry is released and
// removed when the completion fires, regardless of outcome.
func (o *Orchestrator) RejectInvite(inviteID string) error {
	uid, err := o.requireUser()
	if err != nil {
		return err
	}
	if _, ok := o.invites[inviteID]; !ok {
		return oops.Code("INVITE_UNKNOWN").
			With("invite_id", inviteID).
			Errorf("no pending invite %q", inviteID)
	}
	Operations.WithLabelValues("reject_invite").Inc()
	o.svc.RejectInvite(inviteID, uid, func(res backend.RejectInviteResult) {
		o.releaseInvite(res.InviteID)
		if !res.Code.OK() {
			err := oops.Code("INVITE_REJECT_FAILED").
				With("result", res.Code.String()).
				With("invite_id", res.InviteID).
				Errorf("invite reject failed: %s", res.Code)
			errutil.LogError(o.logger, "invite reject failed", err)
			o.sink.Emit(events.SessionInviteRejected{Success: false, ErrorMessage: errutil.Message(err)})
			return
		}
		o.logger.Info("invite rejected", "invite_id", res.InviteID)
		o.sink.Emit(events.SessionInviteRejected{Success: true})
	})
	return nil
}

func (o *Orchestrator) releaseInvite(inviteID string) {
	inv, ok := o.invites[inviteID]
	if !ok {
		return
	}
	if !inv.desc.Released() {
		inv.desc.Release()
	}
	delete(o.invites, inviteID)
}
