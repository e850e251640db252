// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package session

import "github.com/prometheus/client_golang/prometheus"

var (
	// Operations counts session operations issued to the backend.
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netdodge_session_operations_total",
			Help: "Session backend operations issued, by operation.",
		},
		[]string{"op"},
	)

	// InvitesReceived counts resolved session invites.
	InvitesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "netdodge_session_invites_received_total",
			Help: "Session invites resolved into the pending-invite cache.",
		},
	)
)

// RegisterMetrics registers session metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{Operations, InvitesReceived} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
