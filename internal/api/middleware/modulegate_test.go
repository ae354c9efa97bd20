// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentgate/talentgate/internal/models"
	"github.com/talentgate/talentgate/internal/services/access"
)

type staticFetcher struct {
	licenses []models.License
	err      error
}

func (f *staticFetcher) MyModules(_ context.Context) ([]models.License, error) {
	return f.licenses, f.err
}

func TestRequireModule(t *testing.T) {
	t.Parallel()

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	licensed := []models.License{
		{Module: models.Module{Code: models.ModuleCVJobMatcher}, LicenseType: models.LicenseTypeMonthly, IsActive: true},
	}

	tests := []struct {
		name       string
		fetcher    *staticFetcher
		moduleCode string
		wantStatus int
	}{
		{
			name:       "licensed module passes",
			fetcher:    &staticFetcher{licenses: licensed},
			moduleCode: models.ModuleCVJobMatcher,
			wantStatus: http.StatusOK,
		},
		{
			name:       "unlicensed module denied",
			fetcher:    &staticFetcher{licenses: licensed},
			moduleCode: models.ModuleInterviewSimulator,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "ungated route passes without licenses",
			fetcher:    &staticFetcher{},
			moduleCode: "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "fetch failure denies",
			fetcher:    &staticFetcher{err: assert.AnError},
			moduleCode: models.ModuleCVJobMatcher,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gate := access.NewGate(access.NewDirectory(tc.fetcher), nil)
			handler := RequireModule(gate, tc.moduleCode)(inner)

			req := httptest.NewRequest(http.MethodGet, "/cv-analysis/cv-job-matcher", nil)
			resp := httptest.NewRecorder()

			handler.ServeHTTP(resp, req)
			assert.Equal(t, tc.wantStatus, resp.Code)

			if tc.wantStatus == http.StatusForbidden {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, access.MarketplaceHref, body["redirect"])
			}
		})
	}
}

func TestRequireModuleReChecksEveryRequest(t *testing.T) {
	t.Parallel()

	fetcher := &staticFetcher{licenses: []models.License{
		{Module: models.Module{Code: models.ModuleATSChecker}, LicenseType: models.LicenseTypeTrial, IsActive: true},
	}}
	gate := access.NewGate(access.NewDirectory(fetcher), nil)

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireModule(gate, models.ModuleATSChecker)(inner)

	req := httptest.NewRequest(http.MethodGet, "/cv-analysis/ats-checker", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	// Platform deactivates the trial; the very next request is denied.
	expired := time.Now().Add(-time.Hour)
	fetcher.licenses = []models.License{
		{Module: models.Module{Code: models.ModuleATSChecker}, LicenseType: models.LicenseTypeTrial, IsActive: false, ExpiresAt: &expired},
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}
