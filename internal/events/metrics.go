// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package events

import "github.com/prometheus/client_golang/prometheus"

// DroppedEvents counts events lost to full subscriber buffers.
// Use RegisterMetrics to register this with a Prometheus registry.
var DroppedEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "netdodge_events_dropped_total",
		Help: "Total number of events dropped because a subscriber buffer was full",
	},
	[]string{"type"},
)

// RegisterMetrics registers events package metrics with the given
// Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(DroppedEvents)
}
