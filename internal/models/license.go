// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import "time"

// License types as reported by the platform.
const (
	LicenseTypeTrial    = "trial"
	LicenseTypeMonthly  = "monthly"
	LicenseTypeAnnual   = "annual"
	LicenseTypeLifetime = "lifetime"
)

// ExpiringSoonWindow is the advisory lead time used to warn about licenses
// that are about to lapse. It never affects access decisions.
const ExpiringSoonWindow = 3 * 24 * time.Hour

// License binds the tenant to one Module with a temporal grant. The platform
// is authoritative for IsActive; expiry is enforced server-side and the
// derived helpers below are advisory UI state only.
type License struct {
	ID          string     `json:"id"`
	Module      Module     `json:"module"`
	LicenseType string     `json:"license_type"`
	IsActive    bool       `json:"is_active"`
	ActivatedAt time.Time  `json:"activated_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	UsageLimit  *int       `json:"usage_limit"`
	UsageCount  int        `json:"usage_count"`
}

// IsTrial reports whether this is a trial grant.
func (l *License) IsTrial() bool {
	return l.LicenseType == LicenseTypeTrial
}

// Usable reports whether the license currently grants access. IsActive is
// the sole authoritative bit; a stale ExpiresAt does not flip it locally.
func (l *License) Usable() bool {
	return l.IsActive
}

// IsExpired reports whether the license expiry lies in the past. Advisory.
func (l *License) IsExpired(now time.Time) bool {
	if l.ExpiresAt == nil {
		return false
	}
	return l.ExpiresAt.Before(now)
}

// IsExpiringSoon reports whether the license lapses within the warning
// window. Advisory; already-expired licenses are not "expiring soon".
func (l *License) IsExpiringSoon(now time.Time) bool {
	if l.ExpiresAt == nil || l.IsExpired(now) {
		return false
	}
	return l.ExpiresAt.Sub(now) <= ExpiringSoonWindow
}

// RemainingDays returns the whole days left until expiry, or -1 for
// licenses without an expiry.
func (l *License) RemainingDays(now time.Time) int {
	if l.ExpiresAt == nil {
		return -1
	}
	remaining := l.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining / (24 * time.Hour))
}
