// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentgate/talentgate/internal/models"
	"github.com/talentgate/talentgate/internal/services/access"
)

func newLicensesRouter(fetcher *stubFetcher) (chi.Router, *access.Directory) {
	directory := access.NewDirectory(fetcher)

	r := chi.NewRouter()
	NewLicensesHandler(directory).RegisterRoutes(r)
	return r, directory
}

func TestListLicensesAnnotatesExpiry(t *testing.T) {
	t.Parallel()

	soon := time.Now().Add(49 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	router, _ := newLicensesRouter(&stubFetcher{
		licenses: []models.License{
			{
				ID:          "lic-1",
				Module:      models.Module{Code: models.ModuleATSChecker},
				LicenseType: models.LicenseTypeTrial,
				IsActive:    true,
				ExpiresAt:   &soon,
			},
			{
				ID:          "lic-2",
				Module:      models.Module{Code: models.ModuleCVJobMatcher},
				LicenseType: models.LicenseTypeMonthly,
				IsActive:    false,
				ExpiresAt:   &past,
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/licenses/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Licenses []LicenseView `json:"licenses"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Licenses, 2)

	trial := resp.Licenses[0]
	assert.False(t, trial.Expired)
	assert.True(t, trial.ExpiringSoon)
	assert.Equal(t, 2, trial.RemainingDays)

	lapsed := resp.Licenses[1]
	assert.True(t, lapsed.Expired)
	assert.False(t, lapsed.ExpiringSoon)
	assert.Zero(t, lapsed.RemainingDays)
}

func TestListLicensesFetchFailure(t *testing.T) {
	t.Parallel()

	router, _ := newLicensesRouter(&stubFetcher{err: assert.AnError})

	req := httptest.NewRequest(http.MethodGet, "/licenses/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRefreshLicensesForcesRefetch(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	router, directory := newLicensesRouter(fetcher)

	// Prime the cache with an empty directory.
	_, err := directory.Snapshot(t.Context())
	require.NoError(t, err)

	fetcher.licenses = []models.License{activeLicense(models.ModuleAdvancedAnalyzer)}

	req := httptest.NewRequest(http.MethodPost, "/licenses/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	cached, ok := directory.Cached()
	require.True(t, ok)
	assert.True(t, access.HasAccess(models.ModuleAdvancedAnalyzer, cached))
}

func TestRefreshLicensesFetchFailure(t *testing.T) {
	t.Parallel()

	router, _ := newLicensesRouter(&stubFetcher{err: assert.AnError})

	req := httptest.NewRequest(http.MethodPost, "/licenses/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
