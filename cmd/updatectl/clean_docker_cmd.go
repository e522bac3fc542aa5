package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetops/updatectl/pkg/cleanup"
	"github.com/fleetops/updatectl/pkg/config"
	"github.com/fleetops/updatectl/pkg/dockerapi"
	"github.com/fleetops/updatectl/pkg/server"
)

var cleanDockerCmd = &cobra.Command{
	Use:   "clean-docker",
	Short: "Analyze or execute Docker resource cleanup across the fleet",
	RunE:  runCleanDocker,
}

func init() {
	cleanDockerCmd.Flags().String("profile", "conservative", "Cleanup profile: conservative, moderate, aggressive")
	cleanDockerCmd.Flags().Bool("execute", false, "Execute the cleanup instead of only analyzing")
	rootCmd.AddCommand(cleanDockerCmd)
}

func runCleanDocker(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	servers, err := resolveServers(cmd, cfg)
	if err != nil {
		return err
	}

	profileFlag, _ := cmd.Flags().GetString("profile")
	profile := cleanup.Profile(profileFlag)
	execute, _ := cmd.Flags().GetBool("execute")
	th := cleanup.ForProfile(profile).WithLogSizeBytes(cfg.CleanupLogSizeThreshold)

	results := make([]perServerResult, len(servers))
	var g errgroup.Group
	for i, srv := range servers {
		i, srv := i, srv
		g.Go(func() error {
			results[i] = cleanDockerOne(cmd, cfg, srv, profile, th, execute)
			return nil
		})
	}
	_ = g.Wait()

	for i, srv := range servers {
		reportLine(cmd, srv, results[i].body, results[i].err)
	}
	return nil
}

func cleanDockerOne(cmd *cobra.Command, cfg config.Config, srv server.Server, profile cleanup.Profile, th cleanup.Thresholds, execute bool) perServerResult {
	ctx := backgroundContext()

	if !execute {
		if srv.IsLocal() {
			api, err := dockerapi.NewClient()
			if err != nil {
				return perServerResult{err: err}
			}
			defer api.Close()
			report, err := cleanup.AnalyzeLocal(ctx, api, srv.DisplayHost(), th)
			if err != nil {
				return perServerResult{err: err}
			}
			return perServerResult{body: fmt.Sprintf("reclaimable: %d bytes", report.TotalReclaimable)}
		}
		exec := newExecutor(srv, cmd, cfg)
		report, err := cleanup.AnalyzeRemote(ctx, exec, srv.DisplayHost(), th)
		if err != nil {
			return perServerResult{err: err}
		}
		return perServerResult{body: fmt.Sprintf("reclaimable: %d bytes", report.TotalReclaimable)}
	}

	var result cleanup.ExecResult
	if srv.IsLocal() {
		api, err := dockerapi.NewClient()
		if err != nil {
			return perServerResult{err: err}
		}
		defer api.Close()
		result = cleanup.RunProfileLocal(ctx, api, profile, cfg.CleanupLogSizeThreshold)
	} else {
		exec := newExecutor(srv, cmd, cfg)
		result = cleanup.RunProfileRemote(ctx, exec, profile, cfg.CleanupLogSizeThreshold)
	}

	if len(result.Errors) > 0 {
		return perServerResult{body: fmt.Sprintf("reclaimed %d bytes, %d errors", result.BytesReclaimed, len(result.Errors))}
	}
	return perServerResult{body: fmt.Sprintf("reclaimed %d bytes", result.BytesReclaimed)}
}
