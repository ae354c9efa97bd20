// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import "time"

// Known module codes from the platform catalog.
const (
	ModuleATSChecker         = "ats_checker"
	ModuleCVJobMatcher       = "cv_job_matcher"
	ModuleAdvancedAnalyzer   = "advanced_analyzer"
	ModuleInterviewSimulator = "interview_simulator"
	ModuleCodeAssessment     = "code_assessment"
)

// Module represents a purchasable feature unit in the platform marketplace.
// The catalog is owned by the platform; talentgate only reads it.
type Module struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	PriceMonthly  *float64  `json:"price_monthly"`
	PriceAnnual   *float64  `json:"price_annual"`
	PriceLifetime *float64  `json:"price_lifetime"`
	TrialDays     int       `json:"trial_days"`
	IsActive      bool      `json:"is_active"`
	IsFeatured    bool      `json:"is_featured"`
	Version       string    `json:"version"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags"`
	Features      []string  `json:"features"`
	CreatedAt     time.Time `json:"created_at"`

	// HasAccess is computed server-side for the marketplace listing and is
	// the source of truth on that page. Navigation and the feature gate use
	// the client-side evaluator against the license directory instead.
	HasAccess bool `json:"has_access"`
}

// OffersTrial reports whether the module can be trialed at all.
func (m *Module) OffersTrial() bool {
	return m.TrialDays > 0
}

// Purchasable reports whether the module has at least one price or a trial.
func (m *Module) Purchasable() bool {
	if !m.IsActive {
		return false
	}
	return m.OffersTrial() || m.PriceMonthly != nil || m.PriceAnnual != nil || m.PriceLifetime != nil
}

// PriceFor returns the price for the given license type, or nil if the
// module does not offer that plan.
func (m *Module) PriceFor(licenseType string) *float64 {
	switch licenseType {
	case LicenseTypeMonthly:
		return m.PriceMonthly
	case LicenseTypeAnnual:
		return m.PriceAnnual
	case LicenseTypeLifetime:
		return m.PriceLifetime
	default:
		return nil
	}
}
