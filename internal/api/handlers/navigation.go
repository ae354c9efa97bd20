// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/talentgate/talentgate/internal/features"
	"github.com/talentgate/talentgate/internal/models"
	"github.com/talentgate/talentgate/internal/services/access"
)

// NavigationHandler serves the navigation menu filtered by the license
// directory. The menu is recomputed from a fresh snapshot on every request;
// nothing here caches a filtered result.
type NavigationHandler struct {
	registry  *features.Registry
	directory *access.Directory
}

func NewNavigationHandler(registry *features.Registry, directory *access.Directory) *NavigationHandler {
	return &NavigationHandler{
		registry:  registry,
		directory: directory,
	}
}

func (h *NavigationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/navigation", h.GetNavigation)
	r.Get("/features", h.GetFeatures)
}

// GetNavigation returns the menu entries the tenant may see. A directory
// fetch failure hides every gated entry rather than erroring: ungated pages
// must stay reachable when the platform is down.
func (h *NavigationHandler) GetNavigation(w http.ResponseWriter, r *http.Request) {
	directory, err := h.directory.Snapshot(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("navigation falling back to ungated entries")
		directory = nil
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"items": access.FilterNavigation(h.registry.All(), directory),
	})
}

// FeatureState is a feature descriptor annotated with the current access
// decision, for UI surfaces that show locked entries instead of hiding them.
type FeatureState struct {
	models.FeatureDescriptor
	HasAccess bool `json:"hasAccess"`
}

// GetFeatures returns the gated features with per-feature access flags.
// Ungated entries are always reachable and carry no state worth reporting.
func (h *NavigationHandler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	directory, err := h.directory.Snapshot(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("feature listing falling back to deny-all")
		directory = nil
	}

	items := h.registry.Gated()
	states := make([]FeatureState, 0, len(items))
	for _, item := range items {
		states = append(states, FeatureState{
			FeatureDescriptor: item,
			HasAccess:         access.HasAccess(item.RequiresModule, directory),
		})
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"items": states,
	})
}
