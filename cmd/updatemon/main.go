// Command updatemon is the read-only inventory companion to updatectl
// (spec.md §6): it reports which servers have OS package updates or Docker
// image updates pending, without mutating anything. It shares updatectl's
// server-spec format and executor (pkg/server, pkg/executor) but never
// drives an upgrade or restart.
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
	Use:   "updatemon",
	Short: "Read-only OS/Docker update inventory across a fleet",
	Long: `updatemon inspects, but never mutates, OS package state and Docker
image freshness across a fleet of local and SSH-reachable servers, and
reports which servers have updates pending.`,
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
