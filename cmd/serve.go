package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/vdsgateway/internal/agentmgr"
	"github.com/nextlevelbuilder/vdsgateway/internal/cache"
	"github.com/nextlevelbuilder/vdsgateway/internal/config"
	"github.com/nextlevelbuilder/vdsgateway/internal/metadata"
	"github.com/nextlevelbuilder/vdsgateway/internal/mount"
	"github.com/nextlevelbuilder/vdsgateway/internal/toolserver"
	"github.com/nextlevelbuilder/vdsgateway/internal/volume"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runServe() error {
	logger := newLogger()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	searchCache := cache.New(cfg.Cache.SearchSize, time.Duration(cfg.Cache.SearchTTLSec)*time.Second)
	facetsCache := cache.New(cfg.Cache.FacetsSize, time.Duration(cfg.Cache.FacetsTTLSec)*time.Second)

	meta := metadata.New(
		cfg.Index.Endpoint,
		time.Duration(cfg.Index.TimeoutSeconds)*time.Second,
		cfg,
		cfg.DataRoot.MountRoots,
		searchCache, facetsCache,
	)
	meta.Init(cmdContext())

	var mountCheck *mount.Checker
	if cfg.MountHealth.Enabled {
		mountCheck = mount.NewChecker(
			time.Duration(cfg.MountHealth.TimeoutSeconds)*time.Second,
			cfg.MountHealth.Retries,
			2*time.Second,
		)
	}

	access := volume.New(meta)
	agents := agentmgr.New(access, logger)

	srv := toolserver.New(meta, mountCheck, access, agents, toolserver.Config{
		RawDataElementCap: cfg.Server.RawDataElementCap,
		MaxImageBytes:     cfg.Server.MaxImageBytes,
	}, logger)

	logger.Info("starting stdio tool server", "config_hash", cfg.Hash())
	return srv.Serve(cmdContext())
}

func cmdContext() context.Context {
	return context.Background()
}
