// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

// Package backend defines the capability surfaces consumed from the external
// identity and matchmaking backends, plus in-memory implementations of both.
//
// Every asynchronous call on these interfaces is fire-and-forget: the request
// is recorded immediately and its completion callback is invoked later, on the
// goroutine that drives Queue.Tick. No callback ever runs concurrently with
// another callback or with a new request issued from application code.
package backend
