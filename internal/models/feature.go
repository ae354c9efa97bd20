// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

// FeatureDescriptor maps a navigable feature to the module code that gates
// it. An empty RequiresModule means the feature is ungated. Descriptors are
// static configuration, never fetched from the platform.
type FeatureDescriptor struct {
	Name           string `json:"name"`
	Href           string `json:"href"`
	Icon           string `json:"icon"`
	RequiresModule string `json:"requiresModule,omitempty"`
}

// Gated reports whether entering the feature requires a module license.
func (f *FeatureDescriptor) Gated() bool {
	return f.RequiresModule != ""
}
