// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/talentgate/talentgate/internal/services/access"
)

// RequireModule gates a route behind a module license. A denied request
// gets a 403 with the marketplace location so the client can redirect;
// denial is an expected state, not an error page. Every request re-checks,
// so expiry or revocation takes effect on the next navigation.
func RequireModule(gate *access.Gate, moduleCode string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate.CanEnterModule(r.Context(), moduleCode) == access.DecisionDeny {
				log.Debug().
					Str("module", moduleCode).
					Str("path", r.URL.Path).
					Msg("module gate denied request")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"Module license required","redirect":"` + access.MarketplaceHref + `"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
