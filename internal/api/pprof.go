// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/rs/zerolog/log"

	"github.com/talentgate/talentgate/internal/config"
)

const pprofAddr = "localhost:6060"

// StartPprofServer starts the profiling listener when enabled. Bound to
// localhost only; it carries no authentication.
func StartPprofServer(cfg *config.AppConfig) {
	if !cfg.Config.PprofEnabled {
		return
	}

	go func() {
		log.Info().Str("addr", pprofAddr).Msg("Starting pprof server")

		// net/http/pprof registers on the default mux.
		if err := http.ListenAndServe(pprofAddr, nil); err != nil {
			log.Error().Err(err).Msg("Profiling server failed")
		}
	}()
}
