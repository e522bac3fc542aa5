package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetops/updatectl/pkg/config"
	"github.com/fleetops/updatectl/pkg/imageupdate"
	"github.com/fleetops/updatectl/pkg/osupdate"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Update OS packages then Docker images across the fleet",
	RunE:  runAll,
}

func init() {
	allCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	allCmd.Flags().Bool("dry-run", false, "Report what would update without applying")
	rootCmd.AddCommand(allCmd)
}

func runAll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	servers, err := resolveServers(cmd, cfg)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if !dryRun {
		ok, err := confirm(cmd, fmt.Sprintf("Update OS and Docker on %d server(s)", len(servers)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	policy := restartPolicyFromConfig(cfg)
	results := make([]perServerResult, len(servers))
	var g errgroup.Group
	for i, srv := range servers {
		i, srv := i, srv
		g.Go(func() error {
			exec := newExecutor(srv, cmd, cfg)
			ctx := backgroundContext()

			osBody, err := osupdate.Update(ctx, exec, dryRun)
			if err != nil {
				results[i] = perServerResult{err: err}
				return nil
			}
			if !dryRun && updateApplied(osBody) {
				recordOSUpdateApplied(ctx, exec, srv.Name)
			}

			if dryRun {
				results[i] = perServerResult{body: "OS: " + osBody}
				return nil
			}

			targets, err := imageupdate.ListImages(ctx, exec)
			if err != nil {
				results[i] = perServerResult{body: "OS: " + osBody, err: fmt.Errorf("docker discovery: %w", err)}
				return nil
			}
			outcomes := imageupdate.UpdateImages(ctx, exec, srv.Name, targets, policy)
			recordDockerPulls(srv.Name, outcomes)
			results[i] = perServerResult{body: fmt.Sprintf("OS: %s | Docker: %s", osBody, imageupdate.Summary(outcomes))}
			return nil
		})
	}
	_ = g.Wait()

	for i, srv := range servers {
		reportLine(cmd, srv, results[i].body, results[i].err)
	}
	return nil
}
