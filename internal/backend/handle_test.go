// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netdodge/netdodge/pkg/errutil"
)

func TestContinuanceToken_ConsumeExactlyOnce(t *testing.T) {
	tok := NewContinuanceToken("ct-1")

	value, err := tok.Consume()
	require.NoError(t, err)
	assert.Equal(t, "ct-1", value)

	_, err = tok.Consume()
	errutil.AssertErrorCode(t, err, "CONTINUANCE_REUSED")
}

func TestSessionDescriptor_ReleaseRunsFreeHook(t *testing.T) {
	freed := 0
	desc := NewSessionDescriptor(SessionInfo{ID: "sess-1"}, func() { freed++ })

	assert.Equal(t, "sess-1", desc.Info().ID)
	assert.False(t, desc.Released())

	desc.Release()
	assert.True(t, desc.Released())
	assert.Equal(t, 1, freed)
}

func TestSessionDescriptor_DoubleReleasePanics(t *testing.T) {
	desc := NewSessionDescriptor(SessionInfo{ID: "sess-1"}, nil)
	desc.Release()
	assert.Panics(t, func() { desc.Release() })
}

func TestSessionDescriptor_InfoAfterReleasePanics(t *testing.T) {
	desc := NewSessionDescriptor(SessionInfo{ID: "sess-1"}, nil)
	desc.Release()
	assert.Panics(t, func() { desc.Info() })
}
