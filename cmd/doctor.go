package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/vdsgateway/internal/config"
	"github.com/nextlevelbuilder/vdsgateway/internal/mount"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run a one-shot health check of every configured mount root",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

func runDoctor() error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	checker := mount.NewChecker(
		time.Duration(cfg.MountHealth.TimeoutSeconds)*time.Second,
		cfg.MountHealth.Retries,
		2*time.Second,
	)

	results := checker.CheckMultiple(cmdContext(), cfg.DataRoot.MountRoots)

	unhealthy := 0
	for _, path := range cfg.DataRoot.MountRoots {
		r := results[path]
		fmt.Println(r.String())
		if !r.IsHealthy() {
			unhealthy++
			fmt.Println(mount.Remediation(r))
		}
	}

	if unhealthy > 0 {
		return fmt.Errorf("%d of %d mounts unhealthy", unhealthy, len(cfg.DataRoot.MountRoots))
	}
	fmt.Println("all mounts healthy")
	return nil
}
