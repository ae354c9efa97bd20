// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package httphelpers holds small HTTP path utilities shared by the handlers
// that must work when the gateway is served under a subpath.
package httphelpers

import "strings"

// NormalizeBasePath canonicalizes a configured base URL into either the empty
// string (served at root) or a path with a leading slash and no trailing
// slash, e.g. "/talentgate".
func NormalizeBasePath(basePath string) string {
	trimmed := strings.Trim(strings.TrimSpace(basePath), "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}

// JoinBasePath prefixes a request path with the normalized base path.
func JoinBasePath(basePath, suffix string) string {
	suffix = strings.TrimPrefix(suffix, "/")
	if basePath == "" {
		return "/" + suffix
	}
	if suffix == "" {
		return basePath
	}
	return basePath + "/" + suffix
}

// StripBasePath removes the normalized base path prefix from a request path.
// Paths outside the base path are returned unchanged.
func StripBasePath(basePath, requestPath string) string {
	if basePath == "" {
		return requestPath
	}
	if after, found := strings.CutPrefix(requestPath, basePath); found {
		if after == "" {
			return "/"
		}
		return after
	}
	return requestPath
}
