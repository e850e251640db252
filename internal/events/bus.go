// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// subscriber buffer size. Emitters never block; a full subscriber misses
// the event.
const busBuffer = 100

// TypeAll subscribes to every event type.
const TypeAll Type = "*"

// Bus distributes emitted events to subscribers by type. It implements
// Sink for the pipelines.
type Bus struct {
	mu   sync.RWMutex
	subs map[Type][]chan Event
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[Type][]chan Event),
	}
}

// Subscribe creates a channel receiving events of the given type, or all
// events for TypeAll.
func (b *Bus) Subscribe(t Type) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, busBuffer)
	b.subs[t] = append(b.subs[t], ch)
	return ch
}

// Unsubscribe removes a channel and closes it.
func (b *Bus) Unsubscribe(t Type, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[t]
	for i, sub := range subs {
		if sub == ch {
			b.subs[t] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Emit implements Sink: it wraps the payload and delivers it to every
// subscriber of its type plus TypeAll subscribers.
func (b *Bus) Emit(p Payload) {
	event := Event{
		ID:      ulid.Make(),
		Type:    p.EventType(),
		Time:    time.Now(),
		Payload: p,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[event.Type] {
		b.deliver(ch, event)
	}
	for _, ch := range b.subs[TypeAll] {
		b.deliver(ch, event)
	}
}

func (b *Bus) deliver(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
		// The emitter has already moved on; a subscriber with a full
		// buffer misses this event.
		DroppedEvents.WithLabelValues(string(event.Type)).Inc()
		slog.Warn("event dropped: subscriber buffer full",
			"event_id", event.ID.String(),
			"event_type", event.Type,
		)
	}
}

// Recorder is a Sink that retains every emitted payload, for tests.
type Recorder struct {
	mu       sync.Mutex
	payloads []Payload
}

// Emit implements Sink.
func (r *Recorder) Emit(p Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
}

// Payloads returns a snapshot of everything emitted so far.
func (r *Recorder) Payloads() []Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Payload, len(r.payloads))
	copy(out, r.payloads)
	return out
}

// OfType returns the emitted payloads of one type, in order.
func (r *Recorder) OfType(t Type) []Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Payload
	for _, p := range r.payloads {
		if p.EventType() == t {
			out = append(out, p)
		}
	}
	return out
}
