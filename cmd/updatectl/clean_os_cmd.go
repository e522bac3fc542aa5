package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetops/updatectl/pkg/config"
	"github.com/fleetops/updatectl/pkg/osupdate"
)

var cleanOSCmd = &cobra.Command{
	Use:   "clean-os",
	Short: "Clean the package-manager cache and/or orphaned dependencies",
	RunE:  runCleanOS,
}

func init() {
	cleanOSCmd.Flags().Bool("cache", false, "Clear the downloaded-package cache")
	cleanOSCmd.Flags().Bool("autoremove", false, "Remove orphaned dependencies")
	cleanOSCmd.Flags().Bool("all", false, "Shorthand for --cache --autoremove")
	cleanOSCmd.Flags().Bool("execute", false, "Execute the cleanup instead of only describing it")
	rootCmd.AddCommand(cleanOSCmd)
}

func runCleanOS(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	servers, err := resolveServers(cmd, cfg)
	if err != nil {
		return err
	}

	cache, _ := cmd.Flags().GetBool("cache")
	autoremove, _ := cmd.Flags().GetBool("autoremove")
	if all, _ := cmd.Flags().GetBool("all"); all {
		cache, autoremove = true, true
	}
	execute, _ := cmd.Flags().GetBool("execute")

	results := make([]perServerResult, len(servers))
	var g errgroup.Group
	for i, srv := range servers {
		i, srv := i, srv
		g.Go(func() error {
			exec := newExecutor(srv, cmd, cfg)
			body, err := osupdate.Clean(backgroundContext(), exec, cache, autoremove, execute)
			results[i] = perServerResult{body: body, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, srv := range servers {
		reportLine(cmd, srv, results[i].body, results[i].err)
	}
	return nil
}
