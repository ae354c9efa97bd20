// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

type Manager struct {
	registry      *prometheus.Registry
	gateCollector *GateCollector
}

func NewManager() *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gateCollector := NewGateCollector()
	registry.MustRegister(gateCollector)

	log.Info().Msg("Metrics manager initialized with gate collector")

	return &Manager{
		registry:      registry,
		gateCollector: gateCollector,
	}
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *Manager) GateCollector() *GateCollector {
	return m.gateCollector
}
