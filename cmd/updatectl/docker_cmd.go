package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetops/updatectl/pkg/config"
	"github.com/fleetops/updatectl/pkg/imageupdate"
	"github.com/fleetops/updatectl/pkg/metrics"
	"github.com/fleetops/updatectl/pkg/server"
)

var dockerCmd = &cobra.Command{
	Use:   "docker",
	Short: "Update Docker images across the fleet",
	RunE:  runDocker,
}

func init() {
	dockerCmd.Flags().Bool("all", false, "Update every tagged image on each target")
	dockerCmd.Flags().String("images", "", "Comma-separated image refs to update")
	dockerCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	dockerCmd.Flags().Bool("dry-run", false, "Discover targets without pulling or restarting")
	rootCmd.AddCommand(dockerCmd)
}

func runDocker(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	servers, err := resolveServers(cmd, cfg)
	if err != nil {
		return err
	}

	all, _ := cmd.Flags().GetBool("all")
	imagesCSV, _ := cmd.Flags().GetString("images")
	if !all && imagesCSV == "" {
		return fmt.Errorf("docker: pass --all or --images <csv>")
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if !dryRun {
		ok, err := confirm(cmd, fmt.Sprintf("Update Docker images on %d server(s)", len(servers)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	policy := restartPolicyFromConfig(cfg)
	results := runDockerUpdates(cmd, cfg, servers, all, splitImagesCSV(imagesCSV), policy, dryRun)
	for i, srv := range servers {
		reportLine(cmd, srv, results[i].body, results[i].err)
	}
	return nil
}

func splitImagesCSV(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// restartPolicyFromConfig builds pkg/imageupdate's RestartPolicy from the
// process Config, splitting "server:container" exclude tokens (spec.md §6's
// UPDATECTL_RESTART_EXCLUDE) into a per-server map.
func restartPolicyFromConfig(cfg config.Config) imageupdate.RestartPolicy {
	policy := imageupdate.RestartPolicy{
		Kind:           imageupdate.RestartPolicyKind(cfg.RestartPolicyKind),
		DefaultExclude: cfg.RestartExcludeDefault,
		ServerExclude:  make(map[string][]string),
	}
	for _, tok := range cfg.RestartExclude {
		parts := strings.SplitN(tok, ":", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(parts[0]))
		policy.ServerExclude[name] = append(policy.ServerExclude[name], strings.TrimSpace(parts[1]))
	}
	return policy
}

func runDockerUpdates(cmd *cobra.Command, cfg config.Config, servers []server.Server, all bool, images []string, policy imageupdate.RestartPolicy, dryRun bool) []perServerResult {
	results := make([]perServerResult, len(servers))
	var g errgroup.Group
	for i, srv := range servers {
		i, srv := i, srv
		g.Go(func() error {
			exec := newExecutor(srv, cmd, cfg)
			ctx := backgroundContext()

			targets := images
			if all {
				discovered, err := imageupdate.ListImages(ctx, exec)
				if err != nil {
					results[i] = perServerResult{err: err}
					return nil
				}
				targets = discovered
			}

			if dryRun {
				results[i] = perServerResult{body: fmt.Sprintf("would update %d image(s)", len(targets))}
				return nil
			}

			outcomes := imageupdate.UpdateImages(ctx, exec, srv.Name, targets, policy)
			recordDockerPulls(srv.Name, outcomes)
			results[i] = perServerResult{body: imageupdate.Summary(outcomes)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// recordDockerPulls increments the pull-outcome counter per image (spec.md
// §4.5's pull step), labeled "success"/"failure".
func recordDockerPulls(serverName string, outcomes []imageupdate.Outcome) {
	for _, o := range outcomes {
		outcome := "failure"
		if o.Pulled {
			outcome = "success"
		}
		metrics.DockerImagesPulled.WithLabelValues(serverName, outcome).Inc()
	}
}
