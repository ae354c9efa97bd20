// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package access implements the module-access gate: the license directory,
// the pure access evaluator, the navigation filter and the feature gate.
package access

import "github.com/talentgate/talentgate/internal/models"

// HasAccess reports whether the directory grants access to the given module
// code. Pure and order-independent: any active license for the code grants
// access, since the platform keeps at most one relevant license per module.
//
// A nil directory means "not loaded yet" and always denies, so protected
// content never flashes while the directory is in flight. An empty module
// code means the feature is ungated and always allows; that is a distinct
// rule, not a fallthrough of the license search.
func HasAccess(moduleCode string, directory []models.License) bool {
	if moduleCode == "" {
		return true
	}
	if directory == nil {
		return false
	}

	for i := range directory {
		l := &directory[i]
		if l.Module.Code == moduleCode && l.Usable() {
			return true
		}
	}
	return false
}
