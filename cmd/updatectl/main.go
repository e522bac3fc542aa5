// Command updatectl is the unified CLI surface of spec.md §6: OS/Docker
// update dispatch, cleanup, and the webhook server, fanned out over one or
// many servers concurrently.
package main

import (
	"bufio"
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
	Use:   "updatectl",
	Short: "Fleet OS/Docker update and cleanup orchestrator",
	Long: `updatectl drives OS package updates, Docker image updates, and
Docker/package-cache cleanup across a fleet of local and SSH-reachable
servers, and serves an authenticated webhook for triggering the same
operations from external schedulers.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("servers", "", "Comma-separated server specs (overrides UPDATE_SERVERS)")
	rootCmd.PersistentFlags().Bool("local", false, "Include the local host as a target")
	rootCmd.PersistentFlags().String("ssh-key", "", "SSH identity file (overrides UPDATE_SSH_KEY)")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress per-server progress output")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

// resolveServers implements spec.md §6's server-resolution rule: the
// --servers flag overrides UPDATE_SERVERS; --local adds the local host.
// Resolving to zero servers is a usage error (exit code 1).
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

// confirm implements the --yes confirmation gate shared by mutating
// subcommands: skip the prompt when --yes or --dry-run is set, otherwise
// ask on stdin.
func confirm(cmd *cobra.Command, action string) (bool, error) {
	yes, _ := cmd.Flags().GetBool("yes")
	if yes {
		return true, nil
	}
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return true, nil
	}

	fmt.Printf("%s? [y/N] ", action)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, nil
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes", nil
}

// reportLine prints one server's result, unless --quiet is set.
func reportLine(cmd *cobra.Command, srv server.Server, body string, err error) {
	quiet, _ := cmd.Flags().GetBool("quiet")
	if quiet {
		return
	}
	if err != nil {
		fmt.Printf("[%s] error: %v\n", srv.Name, err)
		return
	}
	fmt.Printf("[%s] %s\n", srv.Name, body)
}

// backgroundContext is used by the fan-out helpers: command timeouts are
// enforced inside pkg/executor per call, not at the top level.
func backgroundContext() context.Context {
	return context.Background()
}
