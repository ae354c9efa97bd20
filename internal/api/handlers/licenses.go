// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/talentgate/talentgate/internal/models"
	"github.com/talentgate/talentgate/internal/services/access"
)

// LicensesHandler serves the tenant's license directory. The expiry flags
// in the response are advisory display state; access decisions always come
// from the gate, never from these flags.
type LicensesHandler struct {
	directory *access.Directory
}

func NewLicensesHandler(directory *access.Directory) *LicensesHandler {
	return &LicensesHandler{directory: directory}
}

func (h *LicensesHandler) RegisterRoutes(r chi.Router) {
	r.Route("/licenses", func(r chi.Router) {
		r.Get("/", h.ListLicenses)
		r.Post("/refresh", h.RefreshLicenses)
	})
}

// LicenseView is a license annotated with advisory expiry state.
type LicenseView struct {
	models.License
	Expired       bool `json:"expired"`
	ExpiringSoon  bool `json:"expiringSoon"`
	RemainingDays int  `json:"remainingDays"`
}

// ListLicenses returns the current license directory.
func (h *LicensesHandler) ListLicenses(w http.ResponseWriter, r *http.Request) {
	directory, err := h.directory.Snapshot(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch license directory")
		RespondError(w, http.StatusBadGateway, "Failed to fetch licenses from platform")
		return
	}

	now := time.Now()
	views := make([]LicenseView, 0, len(directory))
	for i := range directory {
		l := directory[i]
		views = append(views, LicenseView{
			License:       l,
			Expired:       l.IsExpired(now),
			ExpiringSoon:  l.IsExpiringSoon(now),
			RemainingDays: l.RemainingDays(now),
		})
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"licenses": views,
	})
}

// RefreshLicenses invalidates the directory and fetches a fresh snapshot.
func (h *LicensesHandler) RefreshLicenses(w http.ResponseWriter, r *http.Request) {
	h.directory.Invalidate()

	if _, err := h.directory.Snapshot(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to refresh license directory")
		RespondError(w, http.StatusBadGateway, "Failed to refresh licenses from platform")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Licenses refreshed",
	})
}
