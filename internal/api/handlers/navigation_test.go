// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentgate/talentgate/internal/features"
	"github.com/talentgate/talentgate/internal/models"
	"github.com/talentgate/talentgate/internal/services/access"
)

type stubFetcher struct {
	licenses []models.License
	err      error
}

func (f *stubFetcher) MyModules(_ context.Context) ([]models.License, error) {
	return f.licenses, f.err
}

func activeLicense(code string) models.License {
	return models.License{
		Module:      models.Module{Code: code},
		LicenseType: models.LicenseTypeMonthly,
		IsActive:    true,
	}
}

func newNavigationRouter(fetcher *stubFetcher) chi.Router {
	registry := features.NewRegistry(features.Defaults())
	directory := access.NewDirectory(fetcher)

	r := chi.NewRouter()
	NewNavigationHandler(registry, directory).RegisterRoutes(r)
	return r
}

func TestGetNavigationFiltersGatedEntries(t *testing.T) {
	t.Parallel()

	router := newNavigationRouter(&stubFetcher{
		licenses: []models.License{activeLicense(models.ModuleCVJobMatcher)},
	})

	req := httptest.NewRequest(http.MethodGet, "/navigation", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []models.FeatureDescriptor `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	names := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		names = append(names, item.Name)
	}

	// Ungated entries plus the single licensed module, in menu order.
	assert.Equal(t, []string{"Dashboard", "CV-Job Matcher", "Marketplace", "My Modules"}, names)
}

func TestGetNavigationFetchFailureHidesGatedEntries(t *testing.T) {
	t.Parallel()

	router := newNavigationRouter(&stubFetcher{err: assert.AnError})

	req := httptest.NewRequest(http.MethodGet, "/navigation", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []models.FeatureDescriptor `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	for _, item := range resp.Items {
		assert.Empty(t, item.RequiresModule, "gated entry %q should be hidden", item.Name)
	}
}

func TestGetFeaturesAnnotatesAccess(t *testing.T) {
	t.Parallel()

	router := newNavigationRouter(&stubFetcher{
		licenses: []models.License{activeLicense(models.ModuleATSChecker)},
	})

	req := httptest.NewRequest(http.MethodGet, "/features", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []FeatureState `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	gated := 0
	for _, item := range features.Defaults() {
		if item.Gated() {
			gated++
		}
	}
	require.Len(t, resp.Items, gated)

	byName := make(map[string]FeatureState)
	for _, item := range resp.Items {
		byName[item.Name] = item
		assert.NotEmpty(t, item.RequiresModule, "only gated features are listed")
	}

	assert.NotContains(t, byName, "Dashboard")
	assert.True(t, byName["ATS Checker"].HasAccess)
	assert.False(t, byName["CV-Job Matcher"].HasAccess)
	assert.False(t, byName["Interview Simulator"].HasAccess)
}
