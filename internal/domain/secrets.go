// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// RedactedStr is the placeholder returned in place of secret values.
const RedactedStr = "<redacted>"

// RedactString replaces a non-empty secret with the redacted placeholder.
func RedactString(s string) string {
	if len(s) == 0 {
		return ""
	}

	return RedactedStr
}

// IsRedactedString checks if a value is the redacted placeholder, meaning
// the caller sent back a previously redacted secret unchanged.
func IsRedactedString(value string) bool {
	return value == RedactedStr
}
