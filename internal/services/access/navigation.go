// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package access

import "github.com/talentgate/talentgate/internal/models"

// FilterNavigation returns the descriptors the directory allows, preserving
// the caller-defined order. The result is always re-derived from the
// directory; nothing here caches a filtered menu, so a revoked module
// disappears on the next recomputation.
func FilterNavigation(items []models.FeatureDescriptor, directory []models.License) []models.FeatureDescriptor {
	filtered := make([]models.FeatureDescriptor, 0, len(items))
	for _, item := range items {
		if !item.Gated() || HasAccess(item.RequiresModule, directory) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
