// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package features holds the static feature descriptors: the navigable
// surface of the product and the module code gating each entry. This is
// configuration, not fetched state.
package features

import "github.com/talentgate/talentgate/internal/models"

// Registry answers descriptor lookups for the navigation handler and the
// route gate. Order is significant and caller-defined.
type Registry struct {
	items []models.FeatureDescriptor
}

// Defaults mirrors the product navigation.
func Defaults() []models.FeatureDescriptor {
	return []models.FeatureDescriptor{
		{Name: "Dashboard", Href: "/dashboard", Icon: "layout-dashboard"},
		{Name: "ATS Checker", Href: "/cv-analysis/ats-checker", Icon: "file-text", RequiresModule: models.ModuleATSChecker},
		{Name: "CV-Job Matcher", Href: "/cv-analysis/cv-job-matcher", Icon: "file-text", RequiresModule: models.ModuleCVJobMatcher},
		{Name: "Advanced Analyzer", Href: "/cv-analysis/advanced-analyzer", Icon: "file-text", RequiresModule: models.ModuleAdvancedAnalyzer},
		{Name: "Interview Simulator", Href: "/interview-simulator", Icon: "mic", RequiresModule: models.ModuleInterviewSimulator},
		{Name: "Code Challenges", Href: "/code-assessment", Icon: "code", RequiresModule: models.ModuleCodeAssessment},
		{Name: "Marketplace", Href: "/marketplace", Icon: "shopping-bag"},
		{Name: "My Modules", Href: "/my-modules", Icon: "package"},
	}
}

// NewRegistry builds a registry from the given descriptors; pass Defaults()
// unless config overrides the set.
func NewRegistry(items []models.FeatureDescriptor) *Registry {
	return &Registry{items: items}
}

// All returns the descriptors in registration order.
func (r *Registry) All() []models.FeatureDescriptor {
	out := make([]models.FeatureDescriptor, len(r.items))
	copy(out, r.items)
	return out
}

// Gated returns only the descriptors that require a module license.
func (r *Registry) Gated() []models.FeatureDescriptor {
	var out []models.FeatureDescriptor
	for _, item := range r.items {
		if item.Gated() {
			out = append(out, item)
		}
	}
	return out
}
