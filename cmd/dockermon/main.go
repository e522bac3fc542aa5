// Command dockermon samples Docker container health and analyzes Docker
// resource usage across a fleet (spec.md §6's "dockermon health" / "dockermon
// cleanup" companions to updatectl). Read-only on the health side; cleanup
// supports both analyze (default) and --execute, mirroring updatectl's
// clean-docker subcommand but scoped to this tool's own flag surface.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fleetops/updatectl/pkg/config"
	"github.com/fleetops/updatectl/pkg/executor"
	"github.com/fleetops/updatectl/pkg/log"
	"github.com/fleetops/updatectl/pkg/server"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dockermon",
	Short: "Docker health sampling and cleanup analysis across a fleet",
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("servers", "", "Comma-separated server specs (overrides UPDATE_SERVERS)")
	rootCmd.PersistentFlags().Bool("local", false, "Include the local host as a target")
	rootCmd.PersistentFlags().String("ssh-key", "", "SSH identity file (overrides UPDATE_SSH_KEY)")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

func resolveServers(cmd *cobra.Command, cfg config.Config) ([]server.Server, error) {
	flagServers, _ := cmd.Flags().GetString("servers")
	includeLocal, _ := cmd.Flags().GetBool("local")

	spec := flagServers
	if spec == "" {
		spec = strings.Join(cfg.Servers, ",")
	}

	servers, err := server.ParseAll(spec)
	if err != nil {
		return nil, err
	}
	if includeLocal {
		servers = append(servers, server.Local())
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no servers resolved: pass --servers, set UPDATE_SERVERS, or pass --local")
	}
	return servers, nil
}

func sshKeyPath(cmd *cobra.Command, cfg config.Config) string {
	if key, _ := cmd.Flags().GetString("ssh-key"); key != "" {
		return key
	}
	return cfg.SSHKeyPath
}

func newExecutor(s server.Server, cmd *cobra.Command, cfg config.Config) executor.Executor {
	return executor.New(s, sshKeyPath(cmd, cfg))
}

func backgroundContext() context.Context {
	return context.Background()
}
