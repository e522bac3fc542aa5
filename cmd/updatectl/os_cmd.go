package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetops/updatectl/pkg/config"
	"github.com/fleetops/updatectl/pkg/executor"
	"github.com/fleetops/updatectl/pkg/metrics"
	"github.com/fleetops/updatectl/pkg/osupdate"
	"github.com/fleetops/updatectl/pkg/pkgmanager"
	"github.com/fleetops/updatectl/pkg/server"
)

var osCmd = &cobra.Command{
	Use:   "os",
	Short: "Update OS packages across the fleet",
	RunE:  runOS,
}

func init() {
	osCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	osCmd.Flags().Bool("dry-run", false, "Report what would update without applying")
	rootCmd.AddCommand(osCmd)
}

func runOS(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	servers, err := resolveServers(cmd, cfg)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if !dryRun {
		ok, err := confirm(cmd, fmt.Sprintf("Update OS packages on %d server(s)", len(servers)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	results := runOSUpdates(cmd, cfg, servers, dryRun)
	for i, srv := range servers {
		reportLine(cmd, srv, results[i].body, results[i].err)
	}
	return nil
}

type perServerResult struct {
	body string
	err  error
}

// runOSUpdates fans the update out over one goroutine per server (spec.md
// §5's "parallel tasks over a cooperative multiplexer"), collecting results
// into a slice indexed by server so output order is deterministic
// regardless of completion order.
func runOSUpdates(cmd *cobra.Command, cfg config.Config, servers []server.Server, dryRun bool) []perServerResult {
	results := make([]perServerResult, len(servers))
	var g errgroup.Group
	for i, srv := range servers {
		i, srv := i, srv
		g.Go(func() error {
			ctx := backgroundContext()
			exec := newExecutor(srv, cmd, cfg)
			body, err := osupdate.Update(ctx, exec, dryRun)
			if err == nil && !dryRun && updateApplied(body) {
				recordOSUpdateApplied(ctx, exec, srv.Name)
			}
			results[i] = perServerResult{body: body, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// updateApplied reports whether Update's summary indicates packages were
// actually upgraded, as opposed to "no updates"/"already up to date".
func updateApplied(body string) bool {
	return !strings.HasPrefix(body, "No updates") && !strings.HasPrefix(body, "Already up to date")
}

// recordOSUpdateApplied labels the applied-updates counter with the
// detected package manager's display name. Detection is cheap (a binary
// existence probe) and osupdate.Update already performs it internally, so
// this repeats that probe rather than threading the checker back out of
// Update's return value.
func recordOSUpdateApplied(ctx context.Context, exec executor.Executor, serverName string) {
	checker, err := pkgmanager.Detect(ctx, exec)
	if err != nil {
		return
	}
	metrics.OSUpdatesApplied.WithLabelValues(serverName, checker.DisplayName()).Inc()
}
