// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

// Package poll drives the backend completion queues at a fixed interval.
// The identity and session state machines only make forward progress when
// a tick runs: every asynchronous completion and notification is dispatched
// from the tick goroutine, which is what keeps the whole client single-
// threaded.
package poll

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// DefaultInterval matches the cadence the backends expect to be pumped at.
const DefaultInterval = 100 * time.Millisecond

// Ticker is anything that drains ready completions when ticked.
type Ticker interface {
	Tick()
}

// Loop invokes its tickers at a fixed interval until the context ends.
type Loop struct {
	interval time.Duration
	tickers  []Ticker
	logger   *slog.Logger
}

// New creates a loop. A non-positive interval falls back to
// DefaultInterval; a nil logger falls back to slog.Default.
func New(interval time.Duration, logger *slog.Logger, tickers ...Ticker) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{interval: interval, tickers: tickers, logger: logger}
}

// Tick runs one synchronous pump of every ticker, in registration order.
func (l *Loop) Tick() {
	for _, t := range l.tickers {
		t.Tick()
	}
}

// Run ticks until ctx is done. It always returns nil on context
// cancellation; the error return exists for future fatal tick conditions.
func (l *Loop) Run(ctx context.Context) error {
	if len(l.tickers) == 0 {
		return oops.Code("POLL_NO_TICKERS").Errorf("poll loop started with nothing to tick")
	}

	l.logger.Debug("poll loop started", "interval", l.interval)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("poll loop stopped")
			return nil
		case <-ticker.C:
			l.Tick()
		}
	}
}
