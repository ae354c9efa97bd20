// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/talentgate/talentgate/internal/services/access"
)

// GateCollector counts feature gate decisions and license lifecycle
// operations. It plugs into the access gate and lifecycle controller as
// their recorder.
type GateCollector struct {
	gateDecisions *prometheus.CounterVec
	lifecycleOps  *prometheus.CounterVec
}

func NewGateCollector() *GateCollector {
	return &GateCollector{
		gateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "talentgate_gate_decisions_total",
				Help: "Feature gate decisions by module and decision",
			},
			[]string{"module", "decision"},
		),
		lifecycleOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "talentgate_lifecycle_operations_total",
				Help: "License lifecycle operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
}

func (c *GateCollector) RecordGateDecision(moduleCode string, decision access.Decision) {
	if moduleCode == "" {
		moduleCode = "none"
	}
	c.gateDecisions.WithLabelValues(moduleCode, string(decision)).Inc()
}

func (c *GateCollector) RecordLifecycleOperation(operation, outcome string) {
	c.lifecycleOps.WithLabelValues(operation, outcome).Inc()
}

func (c *GateCollector) Describe(ch chan<- *prometheus.Desc) {
	c.gateDecisions.Describe(ch)
	c.lifecycleOps.Describe(ch)
}

func (c *GateCollector) Collect(ch chan<- prometheus.Metric) {
	c.gateDecisions.Collect(ch)
	c.lifecycleOps.Collect(ch)
}
