// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/talentgate/talentgate/internal/models"
	"github.com/talentgate/talentgate/internal/platform"
	"github.com/talentgate/talentgate/internal/services/lifecycle"
)

// MarketplaceHandler serves the module catalog and the license lifecycle
// operations. Catalog listings pass the platform's has_access through
// untouched; it is authoritative for the marketplace page.
type MarketplaceHandler struct {
	client     *platform.Client
	controller *lifecycle.Controller
}

func NewMarketplaceHandler(client *platform.Client, controller *lifecycle.Controller) *MarketplaceHandler {
	return &MarketplaceHandler{
		client:     client,
		controller: controller,
	}
}

func (h *MarketplaceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/marketplace", func(r chi.Router) {
		r.Get("/", h.ListModules)
		r.Route("/{moduleID}", func(r chi.Router) {
			r.Get("/", h.GetModule)
			r.Post("/trial", h.StartTrial)
			r.Post("/purchase", h.Purchase)
			r.Post("/upgrade", h.Upgrade)
		})
	})
}

// ListModules returns the catalog, optionally filtered.
func (h *MarketplaceHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	filter := platform.MarketplaceFilter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("is_featured"); v != "" {
		if featured, err := strconv.ParseBool(v); err == nil {
			filter.IsFeatured = &featured
		}
	}

	modules, err := h.client.Marketplace(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch marketplace catalog")
		respondPlatformError(w, err, "Failed to fetch marketplace catalog")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"modules": modules,
	})
}

// GetModule returns a single catalog entry.
func (h *MarketplaceHandler) GetModule(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := ParseModuleID(w, r)
	if !ok {
		return
	}

	module, err := h.client.Module(r.Context(), moduleID)
	if err != nil {
		log.Error().Err(err).Str("moduleID", moduleID).Msg("Failed to fetch module")
		respondPlatformError(w, err, "Failed to fetch module")
		return
	}

	RespondJSON(w, http.StatusOK, module)
}

// StartTrial begins a trial for the module. Single-shot: the handler never
// retries and never reports success before the platform confirms.
func (h *MarketplaceHandler) StartTrial(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := ParseModuleID(w, r)
	if !ok {
		return
	}

	module, err := h.client.Module(r.Context(), moduleID)
	if err != nil {
		respondPlatformError(w, err, "Failed to fetch module")
		return
	}

	result, err := h.controller.StartTrial(r.Context(), module)
	if err != nil {
		if errors.Is(err, lifecycle.ErrTrialNotOffered) {
			RespondError(w, http.StatusBadRequest, "This module does not offer a trial")
			return
		}
		respondPlatformError(w, err, "Failed to start trial")
		return
	}

	RespondJSON(w, http.StatusCreated, result)
}

// PurchaseModuleRequest is the request body for purchase and upgrade.
type PurchaseModuleRequest struct {
	PlanType         string `json:"planType"`
	PaymentMethodRef string `json:"paymentMethodRef"`
}

// Purchase buys a paid plan for the module.
func (h *MarketplaceHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	h.purchase(w, r, h.controller.Purchase)
}

// Upgrade converts a trial into a paid plan.
func (h *MarketplaceHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	h.purchase(w, r, h.controller.Upgrade)
}

func (h *MarketplaceHandler) purchase(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, module *models.Module, planType, paymentMethodRef string) (*lifecycle.Result, error)) {
	moduleID, ok := ParseModuleID(w, r)
	if !ok {
		return
	}

	var req PurchaseModuleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	module, err := h.client.Module(r.Context(), moduleID)
	if err != nil {
		respondPlatformError(w, err, "Failed to fetch module")
		return
	}

	result, err := op(r.Context(), module, req.PlanType, req.PaymentMethodRef)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrInvalidPlan):
			RespondError(w, http.StatusBadRequest, "Invalid plan type")
		case errors.Is(err, lifecycle.ErrPaymentMethodRequired):
			RespondError(w, http.StatusBadRequest, "Payment method is required")
		default:
			respondPlatformError(w, err, "Failed to purchase module")
		}
		return
	}

	RespondJSON(w, http.StatusCreated, result)
}

// respondPlatformError maps platform client failures onto API responses,
// preserving the platform's message where one exists so the UI can show it.
func respondPlatformError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, platform.ErrTrialAlreadyUsed):
		RespondError(w, http.StatusConflict, "You already have an active license for this module")
	case errors.Is(err, platform.ErrAlreadyLicensed):
		RespondError(w, http.StatusConflict, "You already have an active paid license for this module")
	case errors.Is(err, platform.ErrPaymentFailed):
		RespondError(w, http.StatusPaymentRequired, platformMessage(err, "Payment failed"))
	case errors.Is(err, platform.ErrModuleNotFound):
		RespondError(w, http.StatusNotFound, "Module not found")
	case errors.Is(err, platform.ErrUnauthorized):
		RespondError(w, http.StatusBadGateway, "Platform rejected gateway credentials")
	default:
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			RespondError(w, http.StatusBadGateway, apiErr.Message)
			return
		}
		RespondError(w, http.StatusBadGateway, fallback)
	}
}

// platformMessage returns the platform's own message when the error wraps an
// APIError, otherwise the fallback.
func platformMessage(err error, fallback string) string {
	var apiErr *platform.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
