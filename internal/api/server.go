// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/talentgate/talentgate/internal/api/handlers"
	"github.com/talentgate/talentgate/internal/api/middleware"
	"github.com/talentgate/talentgate/internal/auth"
	"github.com/talentgate/talentgate/internal/config"
	"github.com/talentgate/talentgate/internal/features"
	"github.com/talentgate/talentgate/internal/platform"
	"github.com/talentgate/talentgate/internal/proxy"
	"github.com/talentgate/talentgate/internal/services/access"
	"github.com/talentgate/talentgate/internal/services/lifecycle"
	"github.com/talentgate/talentgate/internal/web"
)

const (
	compressMinSize = 1024
	compressLevel   = 5
)

// Dependencies carries everything the HTTP server wires together.
type Dependencies struct {
	Config         *config.AppConfig
	AuthService    *auth.Service
	SessionManager *scs.SessionManager
	PlatformClient *platform.Client
	Directory      *access.Directory
	Gate           *access.Gate
	Controller     *lifecycle.Controller
	Registry       *features.Registry
	ProxyHandler   *proxy.Handler
	WebHandler     *web.Handler
}

type Server struct {
	deps       *Dependencies
	httpServer *http.Server
}

func NewServer(deps *Dependencies) *Server {
	return &Server{deps: deps}
}

// Handler builds the full route tree. Returned as a value so tests can walk
// the router without binding a listener.
func (s *Server) Handler() (http.Handler, error) {
	cfg := s.deps.Config.Config

	if cfg.IsAuthDisabled() {
		if err := cfg.ValidateAuthDisabledConfig(); err != nil {
			return nil, err
		}
		log.Warn().Msg("Built-in authentication is DISABLED; relying on authDisabledAllowedCIDRs and any upstream auth proxy")
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	c := cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequireAuthDisabledIPAllowlist(cfg))
	r.Use(s.deps.SessionManager.LoadAndSave)

	r.Route("/api", s.registerAPIRoutes)

	if s.deps.WebHandler != nil {
		s.deps.WebHandler.RegisterRoutes(r)
	}

	baseURL := normalizeBaseURL(cfg.BaseURL)
	if baseURL == "/" {
		return r, nil
	}

	// Serving under a subpath: mount everything below the base URL and
	// redirect the bare root there.
	root := chi.NewRouter()
	root.Mount(strings.TrimSuffix(baseURL, "/"), r)
	root.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, baseURL, http.StatusMovedPermanently)
	})
	return root, nil
}

func (s *Server) registerAPIRoutes(r chi.Router) {
	cfg := s.deps.Config.Config

	authHandler := handlers.NewAuthHandler(s.deps.AuthService, s.deps.SessionManager, cfg)
	healthHandler := handlers.NewHealthHandler()
	versionHandler := handlers.NewVersionHandler()

	r.Use(middleware.SelectiveCompress(compressMinSize, compressLevel))

	r.Route("/health", healthHandler.Routes)
	r.Get("/version", versionHandler.GetVersion)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSetup(s.deps.AuthService, cfg))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/setup", authHandler.Setup)
			r.Get("/check-setup", authHandler.CheckSetupRequired)
			r.Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(middleware.IsAuthenticated(s.deps.AuthService, s.deps.SessionManager, cfg))

				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.GetCurrentUser)
				r.Post("/change-password", authHandler.ChangePassword)

				r.Route("/api-keys", func(r chi.Router) {
					r.Get("/", authHandler.ListAPIKeys)
					r.Post("/", authHandler.CreateAPIKey)
					r.Delete("/{id}", authHandler.DeleteAPIKey)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyFromQuery("apikey"))
			r.Use(middleware.IsAuthenticated(s.deps.AuthService, s.deps.SessionManager, cfg))

			handlers.NewNavigationHandler(s.deps.Registry, s.deps.Directory).RegisterRoutes(r)
			handlers.NewMarketplaceHandler(s.deps.PlatformClient, s.deps.Controller).RegisterRoutes(r)
			handlers.NewLicensesHandler(s.deps.Directory).RegisterRoutes(r)

			if s.deps.ProxyHandler != nil {
				s.deps.ProxyHandler.Routes(r, s.deps.Gate)
			}
		})
	})
}

// ListenAndServe blocks until the server stops or the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	cfg := s.deps.Config.Config
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("baseUrl", normalizeBaseURL(cfg.BaseURL)).Msg("Starting HTTP server")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		log.Info().Msg("Shutting down HTTP server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func normalizeBaseURL(baseURL string) string {
	trimmed := strings.Trim(baseURL, "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed + "/"
}
