package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetops/updatectl/pkg/config"
	"github.com/fleetops/updatectl/pkg/dockerapi"
	"github.com/fleetops/updatectl/pkg/dockerhealth"
	"github.com/fleetops/updatectl/pkg/metrics"
	"github.com/fleetops/updatectl/pkg/server"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Sample container health/CPU/memory across the fleet",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	servers, err := resolveServers(cmd, cfg)
	if err != nil {
		return err
	}

	th := dockerhealth.Thresholds{
		CPUWarnPct: cfg.CPUWarnPct,
		MemWarnPct: cfg.MemWarnPct,
		IgnoreSet:  cfg.IgnoreSet,
	}

	results := make([]perServerResult, len(servers))
	var g errgroup.Group
	for i, srv := range servers {
		i, srv := i, srv
		g.Go(func() error {
			results[i] = healthOne(cmd, cfg, srv, th)
			return nil
		})
	}
	_ = g.Wait()

	for i, srv := range servers {
		reportLine(srv, results[i])
	}
	return nil
}

func healthOne(cmd *cobra.Command, cfg config.Config, srv server.Server, th dockerhealth.Thresholds) perServerResult {
	ctx := backgroundContext()

	if srv.IsLocal() {
		api, err := dockerapi.NewClient()
		if err != nil {
			return perServerResult{err: err}
		}
		defer api.Close()
		samples, err := dockerhealth.SampleLocal(ctx, api, th)
		if err != nil {
			return perServerResult{err: err}
		}
		recordProblematic(srv.Name, samples)
		return perServerResult{body: dockerhealth.Report(samples)}
	}

	exec := newExecutor(srv, cmd, cfg)
	samples, err := dockerhealth.SampleRemote(ctx, exec, th)
	if err != nil {
		return perServerResult{err: err}
	}
	recordProblematic(srv.Name, samples)
	return perServerResult{body: dockerhealth.Report(samples)}
}

func recordProblematic(serverName string, samples []dockerhealth.HealthSample) {
	var count int
	for _, s := range samples {
		if s.Problematic {
			count++
		}
	}
	metrics.HealthProblematicContainers.WithLabelValues(serverName).Set(float64(count))
}

// perServerResult is the shared per-server outcome shape for this binary's
// subcommands (mirrors updatectl's cmd-layer type of the same name).
type perServerResult struct {
	body string
	err  error
}

func reportLine(srv server.Server, result perServerResult) {
	if result.err != nil {
		fmt.Printf("[%s] error: %v\n", srv.Name, result.err)
		return
	}
	fmt.Printf("[%s] %s\n", srv.Name, result.body)
}
