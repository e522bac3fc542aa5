package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetops/updatectl/pkg/cleanup"
	"github.com/fleetops/updatectl/pkg/config"
	"github.com/fleetops/updatectl/pkg/dockerapi"
	"github.com/fleetops/updatectl/pkg/metrics"
	"github.com/fleetops/updatectl/pkg/notify"
	"github.com/fleetops/updatectl/pkg/server"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Analyze or execute Docker resource cleanup across the fleet",
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().String("profile", "conservative", "Cleanup profile: conservative, moderate, aggressive")
	cleanupCmd.Flags().Bool("execute", false, "Execute the cleanup instead of only analyzing")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	servers, err := resolveServers(cmd, cfg)
	if err != nil {
		return err
	}

	profileFlag, _ := cmd.Flags().GetString("profile")
	profile := cleanup.Profile(profileFlag)
	execute, _ := cmd.Flags().GetBool("execute")
	th := cleanup.ForProfile(profile).WithLogSizeBytes(cfg.CleanupLogSizeThreshold)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	results := make([]perServerResult, len(servers))
	var g errgroup.Group
	for i, srv := range servers {
		i, srv := i, srv
		g.Go(func() error {
			results[i] = cleanupOne(cmd, cfg, httpClient, srv, profile, th, execute)
			return nil
		})
	}
	_ = g.Wait()

	for i, srv := range servers {
		reportLine(srv, results[i])
	}
	return nil
}

func cleanupOne(cmd *cobra.Command, cfg config.Config, httpClient *http.Client, srv server.Server, profile cleanup.Profile, th cleanup.Thresholds, execute bool) perServerResult {
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
			notifyCleanupAnalysis(cfg, httpClient, srv, report)
			return perServerResult{body: fmt.Sprintf("reclaimable: %d bytes", report.TotalReclaimable)}
		}
		exec := newExecutor(srv, cmd, cfg)
		report, err := cleanup.AnalyzeRemote(ctx, exec, srv.DisplayHost(), th)
		if err != nil {
			return perServerResult{err: err}
		}
		notifyCleanupAnalysis(cfg, httpClient, srv, report)
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

	metrics.CleanupBytesReclaimed.WithLabelValues(srv.Name, string(profile)).Add(float64(result.BytesReclaimed))

	if len(result.Errors) > 0 {
		return perServerResult{body: fmt.Sprintf("reclaimed %d bytes, %d errors", result.BytesReclaimed, len(result.Errors))}
	}
	return perServerResult{body: fmt.Sprintf("reclaimed %d bytes", result.BytesReclaimed)}
}

// notifyCleanupAnalysis implements spec.md §4.7's cleanup-analysis
// notification: attach "Safe Cleanup"/"Prune Unused Images" buttons only
// when the corresponding class has reclaimable content.
func notifyCleanupAnalysis(cfg config.Config, client *http.Client, srv server.Server, report *cleanup.CleanupReport) {
	hasSafeCleanup := report.TotalReclaimable > 0
	hasUnusedImages := report.UnusedImages.TotalSize > 0
	if !hasSafeCleanup && !hasUnusedImages {
		return
	}

	title := fmt.Sprintf("%s - cleanup opportunities", srv.Name)
	body := fmt.Sprintf("reclaimable: %d bytes, unused images: %d bytes", report.TotalReclaimable, report.UnusedImages.TotalSize)
	actions := notify.BuildCleanupActions(cfg.WebhookURL, srv.Name, cfg.WebhookSecret, hasSafeCleanup, hasUnusedImages)
	gotify := notify.GotifyConfig{URL: cfg.GotifyURL, Key: cfg.GotifyKey, Debug: cfg.GotifyDebug, Priority: config.DefaultGotifyPriority}
	ntfy := notify.NtfyConfig{URL: cfg.NtfyURL, Auth: cfg.NtfyAuth, Debug: cfg.NtfyDebug, Priority: config.DefaultNtfyPriority}

	notify.Dispatch(context.Background(), client, gotify, ntfy, title, body, actions)
}
