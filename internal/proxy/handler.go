// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package proxy forwards gated feature requests to the platform. The gateway
// holds no feature logic: once the module gate admits a request, the body
// passes through untouched with the gateway's platform credentials attached.
package proxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/talentgate/talentgate/internal/api/middleware"
	"github.com/talentgate/talentgate/internal/buildinfo"
	"github.com/talentgate/talentgate/internal/models"
	"github.com/talentgate/talentgate/internal/services/access"
	"github.com/talentgate/talentgate/pkg/httphelpers"
)

const (
	gatewayFeaturePrefix = "/api/features"
	proxyErrorPayload    = `{"error":"Failed to reach the platform"}`
)

// featureRoutes maps gateway route prefixes onto the module that licenses
// them. Every prefix is guarded by the module gate before a request reaches
// the platform.
var featureRoutes = []struct {
	prefix string
	module string
}{
	{"cv-analysis/ats-checker", models.ModuleATSChecker},
	{"cv-analysis/job-matcher", models.ModuleCVJobMatcher},
	{"cv-analysis/advanced", models.ModuleAdvancedAnalyzer},
	{"interview-simulator", models.ModuleInterviewSimulator},
	{"code-assessment", models.ModuleCodeAssessment},
}

// Handler reverse-proxies gated feature routes to the platform API.
type Handler struct {
	target     *url.URL
	token      string
	basePath   string
	bufferPool *BufferPool
	proxy      *httputil.ReverseProxy
}

func NewHandler(platformURL, token, baseURL string) (*Handler, error) {
	target, err := url.Parse(platformURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid platform URL")
	}

	h := &Handler{
		target:     target,
		token:      token,
		basePath:   httphelpers.NormalizeBasePath(baseURL),
		bufferPool: NewBufferPool(),
	}

	h.proxy = &httputil.ReverseProxy{
		Rewrite:      h.rewriteRequest,
		BufferPool:   h.bufferPool,
		ErrorHandler: h.errorHandler,
	}

	return h, nil
}

// Routes mounts the gated feature route groups. Each group re-evaluates the
// gate per request; an allow is never cached across requests.
func (h *Handler) Routes(r chi.Router, gate *access.Gate) {
	r.Route("/features", func(r chi.Router) {
		for _, route := range featureRoutes {
			r.Route("/"+route.prefix, func(gr chi.Router) {
				gr.Use(middleware.RequireModule(gate, route.module))
				gr.HandleFunc("/", h.ServeHTTP)
				gr.HandleFunc("/*", h.ServeHTTP)
			})
		}
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.proxy.ServeHTTP(w, r)
}

// rewriteRequest points the outbound request at the platform, collapsing the
// gateway's base path and /api/features prefix back onto the platform's /api
// namespace.
func (h *Handler) rewriteRequest(pr *httputil.ProxyRequest) {
	inPath := httphelpers.StripBasePath(h.basePath, pr.In.URL.Path)
	rest := strings.TrimPrefix(inPath, gatewayFeaturePrefix)

	pr.SetURL(h.target)
	pr.SetXForwarded()

	targetPath := joinProxyPath(h.target.Path, "/api"+rest)
	pr.Out.URL.Path = targetPath
	pr.Out.URL.RawPath = ""
	pr.Out.URL.RawQuery = pr.In.URL.RawQuery
	pr.Out.Host = h.target.Host

	pr.Out.Header.Set("User-Agent", buildinfo.UserAgent)
	if h.token != "" {
		pr.Out.Header.Set("Authorization", "Bearer "+h.token)
	} else {
		pr.Out.Header.Del("Authorization")
	}

	log.Debug().
		Str("path", pr.In.URL.Path).
		Str("targetPath", targetPath).
		Str("targetHost", h.target.Host).
		Msg("Forwarding feature request to platform")
}

func joinProxyPath(base, request string) string {
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return request
	}
	return base + request
}

func (h *Handler) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	log.Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Feature proxy request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_, _ = w.Write([]byte(proxyErrorPayload))
}
