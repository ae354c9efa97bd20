// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package web serves the embedded browser UI. All application state comes
// from the API; this package only delivers static assets and the SPA shell.
package web

import (
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/talentgate/talentgate/pkg/httphelpers"
)

// mimeTypes pins content types for asset extensions so responses do not
// depend on the host's mime database.
var mimeTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".js":    "application/javascript",
	".mjs":   "application/javascript",
	".css":   "text/css",
	".json":  "application/json",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
}

// hashedAssetRe matches build-fingerprinted filenames like app-abc123.js.
var hashedAssetRe = regexp.MustCompile(`-[A-Za-z0-9_]{6,}\.(js|css)$`)

type Handler struct {
	version  string
	baseURL  string
	basePath string
	fs       fs.FS
}

func NewHandler(version, baseURL string, assets fs.FS) *Handler {
	return &Handler{
		version:  version,
		baseURL:  baseURL,
		basePath: httphelpers.NormalizeBasePath(baseURL),
		fs:       assets,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create compression adapter, serving uncompressed")
		compress = func(next http.Handler) http.Handler { return next }
	}

	r.Group(func(r chi.Router) {
		r.Use(compress)
		r.Get("/", h.serve)
		r.Get("/*", h.serve)
	})
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	if h.fs == nil {
		http.Error(w, "Frontend not built", http.StatusNotFound)
		return
	}

	// Mounting under a base URL leaves the prefix on URL.Path; strip it so
	// asset lookups hit the embedded filesystem.
	name := strings.TrimPrefix(httphelpers.StripBasePath(h.basePath, r.URL.Path), "/")

	// Paths with a file extension are asset requests; everything else falls
	// through to the SPA shell so client-side routing works on deep links.
	if name != "" && path.Ext(name) != "" {
		h.serveAsset(w, r, name)
		return
	}

	h.serveIndex(w, r)
}

func (h *Handler) serveAsset(w http.ResponseWriter, r *http.Request, name string) {
	data, err := fs.ReadFile(h.fs, name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if ct, ok := mimeTypes[path.Ext(name)]; ok {
		w.Header().Set("Content-Type", ct)
	}

	if hashedAssetRe.MatchString(name) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}

	w.Write(data)
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.fs, "index.html")
	if err != nil {
		http.Error(w, "Frontend not built", http.StatusNotFound)
		return
	}

	inject := fmt.Sprintf(
		`<script>window.__TALENTGATE_BASE_URL__=%q;window.__TALENTGATE_VERSION__=%q</script>`,
		h.baseURL, h.version,
	)
	page := strings.Replace(string(data), "</head>", inject+"</head>", 1)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(page))
}
