// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/talentgate/talentgate/internal/api"
	"github.com/talentgate/talentgate/internal/auth"
	"github.com/talentgate/talentgate/internal/buildinfo"
	"github.com/talentgate/talentgate/internal/config"
	"github.com/talentgate/talentgate/internal/database"
	"github.com/talentgate/talentgate/internal/domain"
	"github.com/talentgate/talentgate/internal/features"
	"github.com/talentgate/talentgate/internal/logger"
	"github.com/talentgate/talentgate/internal/metrics"
	"github.com/talentgate/talentgate/internal/platform"
	"github.com/talentgate/talentgate/internal/proxy"
	"github.com/talentgate/talentgate/internal/services/access"
	"github.com/talentgate/talentgate/internal/services/lifecycle"
	"github.com/talentgate/talentgate/internal/web"
	"github.com/talentgate/talentgate/pkg/sqlite3store"
)

func RunServeCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the talentgate server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(configDir)
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "", "Directory holding config.toml (created on first run)")

	return cmd
}

func runServe(configDir string) error {
	cfg, err := config.New(configDir)
	if err != nil {
		return err
	}

	if err := logger.Setup(cfg.Config); err != nil {
		return err
	}

	if err := cfg.Config.ValidatePlatformConfig(); err != nil {
		return err
	}

	cfg.Watch(func(newCfg *domain.Config) {
		logger.SetLogLevel(newCfg.LogLevel)
	})

	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		return err
	}
	defer db.Close()

	authService := auth.NewService(db)

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.New(db.Conn())
	sessionManager.Lifetime = 7 * 24 * time.Hour

	client := platform.NewClient(cfg.Config.PlatformURL,
		platform.WithToken(cfg.Config.PlatformToken),
		platform.WithUserAgent(buildinfo.UserAgent),
	)

	directory := access.NewDirectory(client)

	var metricsManager *metrics.Manager
	var gate *access.Gate
	var controller *lifecycle.Controller
	if cfg.Config.MetricsEnabled {
		metricsManager = metrics.NewManager()
		gate = access.NewGate(directory, metricsManager.GateCollector())
		controller = lifecycle.NewController(client, directory, metricsManager.GateCollector())
	} else {
		gate = access.NewGate(directory, nil)
		controller = lifecycle.NewController(client, directory, nil)
	}

	proxyHandler, err := proxy.NewHandler(cfg.Config.PlatformURL, cfg.Config.PlatformToken, cfg.Config.BaseURL)
	if err != nil {
		return err
	}

	dist, err := web.DistFS()
	if err != nil {
		log.Warn().Err(err).Msg("Embedded frontend unavailable")
		dist = nil
	}

	server := api.NewServer(&api.Dependencies{
		Config:         cfg,
		AuthService:    authService,
		SessionManager: sessionManager,
		PlatformClient: client,
		Directory:      directory,
		Gate:           gate,
		Controller:     controller,
		Registry:       features.NewRegistry(features.Defaults()),
		ProxyHandler:   proxyHandler,
		WebHandler:     web.NewHandler(buildinfo.Version, cfg.Config.BaseURL, dist),
	})

	api.StartPprofServer(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})

	licenseUpdates, unsubscribe := directory.Subscribe()
	g.Go(func() error {
		defer unsubscribe()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-licenseUpdates:
				log.Debug().Msg("License directory changed")
			}
		}
	})

	if cfg.Config.MetricsEnabled {
		metricsServer := metrics.NewServer(metricsManager, cfg.Config.MetricsHost, cfg.Config.MetricsPort, cfg.Config.MetricsBasicAuthUsers)

		g.Go(func() error {
			return metricsServer.ListenAndServe()
		})
		g.Go(func() error {
			<-gctx.Done()
			return metricsServer.Stop()
		})
	}

	log.Info().
		Str("version", buildinfo.Version).
		Str("platform", cfg.Config.PlatformURL).
		Str("platformToken", platform.MaskToken(cfg.Config.PlatformToken)).
		Msg("talentgate started")

	return g.Wait()
}
