// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package poll

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/netdodge/netdodge/pkg/errutil"
)

type countingTicker struct {
	ticks atomic.Int64
}

func (c *countingTicker) Tick() { c.ticks.Add(1) }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoop_TickRunsAllTickersInOrder(t *testing.T) {
	var got []string
	first := tickFunc(func() { got = append(got, "first") })
	second := tickFunc(func() { got = append(got, "second") })

	loop := New(DefaultInterval, discard(), first, second)
	loop.Tick()
	loop.Tick()

	assert.Equal(t, []string{"first", "second", "first", "second"}, got)
}

type tickFunc func()

func (f tickFunc) Tick() { f() }

func TestLoop_RunWithoutTickers(t *testing.T) {
	loop := New(DefaultInterval, discard())
	err := loop.Run(context.Background())
	errutil.AssertErrorCode(t, err, "POLL_NO_TICKERS")
}

func TestLoop_RunTicksUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ticker := &countingTicker{}
	loop := New(time.Millisecond, discard(), ticker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool {
		return ticker.ticks.Load() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
}
