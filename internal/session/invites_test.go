// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netdodge/netdodge/internal/backend"
	"github.com/netdodge/netdodge/internal/events"
	"github.com/netdodge/netdodge/pkg/errutil"
)

func TestInvitePush_ResolvesAndEnriches(t *testing.T) {
	f := newFixture(t)
	sessionID := f.hostSession(t, map[string]string{"MAP_S": "arena"})

	inviteID := f.svc.Invite("pu-host", localUser, sessionID)
	f.pump(t)

	require.Equal(t, []string{inviteID}, f.orch.PendingInvites())
	got := f.rec.OfType(events.TypeSessionInviteReceived)
	require.Len(t, got, 1)
	ev := got[0].(events.SessionInviteReceived)
	assert.Equal(t, inviteID, ev.InviteID)
	assert.Equal(t, "pu-host", ev.FromUserID)
	assert.Equal(t, "Hosty", ev.FromDisplayName)
	assert.Equal(t, sessionID, ev.SessionID)
}

func TestInvitePush_OtherTargetIgnored(t *testing.T) {
	f := newFixture(t)
	sessionID := f.hostSession(t, nil)

	f.svc.Invite("pu-host", "pu-someone-else", sessionID)
	f.pump(t)

	assert.Empty(t, f.orch.PendingInvites())
	assert.Empty(t, f.rec.OfType(events.TypeSessionInviteReceived))
}

func TestInvites_PushThenPullDeduplicates(t *testing.T) {
	f := newFixture(t)
	sessionID := f.hostSession(t, nil)

	inviteID := f.svc.Invite("pu-host", localUser, sessionID)
	f.pump(t)
	require.NoError(t, f.orch.QueryInvites())
	f.pump(t)

	assert.Equal(t, []string{inviteID}, f.orch.PendingInvites())
	assert.Len(t, f.rec.OfType(events.TypeSessionInviteReceived), 1,
		"push followed by pull must resolve exactly once")
	assert.Equal(t, 1, f.svc.OpenHandles())
}

func TestInvites_PullFindsOfflineInvite(t *testing.T) {
	f := newFixture(t)
	sessionID := f.hostSession(t, nil)
	inviteID := f.svc.InviteQuietly("pu-host", localUser, sessionID)

	require.NoError(t, f.orch.QueryInvites())
	f.pump(t)

	assert.Equal(t, []string{inviteID}, f.orch.PendingInvites())
	got := f.rec.OfType(events.TypeSessionInviteReceived)
	require.Len(t, got, 1)
	// Pull results carry no sender.
	assert.Equal(t, unknownDisplayName, got[0].(events.SessionInviteReceived).FromDisplayName)
}

func TestAcceptInvite_JoinsAndReleasesEntry(t *testing.T) {
	f := newFixture(t)
	sessionID := f.hostSession(t, nil)
	inviteID := f.svc.Invite("pu-host", localUser, sessionID)
	f.pump(t)

	require.NoError(t, f.orch.AcceptInvite(inviteID, "joined"))
	f.pump(t)

	assert.True(t, f.orch.InSession())
	assert.False(t, f.orch.IsOwner())
	assert.Equal(t, sessionID, f.orch.SessionID())
	assert.Empty(t, f.orch.PendingInvites())
	assert.Zero(t, f.svc.OpenHandles(), "accepted invites must release their descriptor")

	got := f.rec.OfType(events.TypeSessionInviteAccepted)
	require.Len(t, got, 1)
	ev := got[0].(events.SessionInviteAccepted)
	assert.True(t, ev.Success)
	assert.Equal(t, sessionID, ev.SessionID)
}

func TestAcceptInvite_FailureStillReleasesEntry(t *testing.T) {
	f := newFixture(t)
	sessionID := f.hostSession(t, nil)
	inviteID := f.svc.Invite("pu-host", localUser, sessionID)
	f.pump(t)

	f.svc.FailNext("join", backend.ResultSessionFull)
	require.NoError(t, f.orch.AcceptInvite(inviteID, "joined"))
	f.pump(t)

	assert.False(t, f.orch.InSession())
	assert.Empty(t, f.orch.PendingInvites())
	assert.Zero(t, f.svc.OpenHandles())
	got := f.rec.OfType(events.TypeSessionInviteAccepted)
	require.Len(t, got, 1)
	ev := got[0].(events.SessionInviteAccepted)
	assert.False(t, ev.Success)
	errutil.AssertMessageHasCode(t, ev.ErrorMessage, "INVITE_ACCEPT_FAILED")
}

func TestAcceptInvite_AbandonedAcceptNotAttributedToLaterOne(t *testing.T) {
	f := newFixture(t)
	sessA := f.hostSession(t, nil)
	sessB := f.hostSession(t, nil)
	invA := f.svc.Invite("pu-host", localUser, sessA)
	invB := f.svc.Invite("pu-host", localUser, sessB)
	f.pump(t)

	// The first accept is abandoned before its completion runs; the
	// second accept must not inherit that completion.
	require.NoError(t, f.orch.AcceptInvite(invA, "k1"))
	f.orch.Reset()
	require.NoError(t, f.orch.AcceptInvite(invB, "k2"))
	f.pump(t)

	assert.True(t, f.orch.InSession())
	require.Equal(t, sessB, f.orch.SessionID())
	assert.Equal(t, "k2", f.orch.LocalKey())
	assert.Empty(t, f.orch.PendingInvites())
	assert.Zero(t, f.svc.OpenHandles())

	got := f.rec.OfType(events.TypeSessionInviteAccepted)
	require.Len(t, got, 1, "the abandoned accept must not produce an event")
	ev := got[0].(events.SessionInviteAccepted)
	assert.True(t, ev.Success)
	assert.Equal(t, sessB, ev.SessionID)
}

func TestAcceptInvite_Preconditions(t *testing.T) {
	f := newFixture(t)
	sessionID := f.hostSession(t, nil)
	inviteID := f.svc.Invite("pu-host", localUser, sessionID)
	f.pump(t)

	err := f.orch.AcceptInvite("no-such-invite", "joined")
	errutil.AssertErrorCode(t, err, "INVITE_UNKNOWN")

	err = f.orch.AcceptInvite(inviteID, "")
	errutil.AssertErrorCode(t, err, "SESSION_INVALID_KEY")

	require.NoError(t, f.orch.CreateSession("s1", 4, true, "bucket", nil))
	err = f.orch.AcceptInvite(inviteID, "joined")
	errutil.AssertErrorCode(t, err, "SESSION_ALREADY_ACTIVE")
}

func TestRejectInvite_ReleasesEntry(t *testing.T) {
	f := newFixture(t)
	sessionID := f.hostSession(t, nil)
	inviteID := f.svc.Invite("pu-host", localUser, sessionID)
	f.pump(t)

	require.NoError(t, f.orch.RejectInvite(inviteID))
	f.pump(t)

	assert.Empty(t, f.orch.PendingInvites())
	assert.Zero(t, f.svc.OpenHandles())
	got := f.rec.OfType(events.TypeSessionInviteRejected)
	require.Len(t, got, 1)
	assert.True(t, got[0].(events.SessionInviteRejected).Success)
}

func TestRejectInvite_Unknown(t *testing.T) {
	f := newFixture(t)
	err := f.orch.RejectInvite("no-such-invite")
	errutil.AssertErrorCode(t, err, "INVITE_UNKNOWN")
}

func TestClose_ReleasesAllHandles(t *testing.T) {
	f := newFixture(t)
	sessionID := f.hostSession(t, nil)
	f.svc.Invite("pu-host", localUser, sessionID)
	f.pump(t)
	require.NoError(t, f.orch.FindSessions("", "", 0))
	f.pump(t)
	require.Positive(t, f.svc.OpenHandles())

	f.orch.Close()

	assert.Zero(t, f.svc.OpenHandles())
}
