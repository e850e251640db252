// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package identity

import "github.com/prometheus/client_golang/prometheus"

var (
	// AuthAttempts counts login attempts by credential kind.
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netdodge_auth_attempts_total",
			Help: "Authentication attempts started, by credential kind.",
		},
		[]string{"kind"},
	)

	// AuthOutcomes counts terminal pipeline outcomes.
	AuthOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netdodge_auth_outcomes_total",
			Help: "Terminal authentication outcomes, by credential kind and status.",
		},
		[]string{"kind", "status"},
	)
)

// RegisterMetrics registers identity metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{AuthAttempts, AuthOutcomes} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
