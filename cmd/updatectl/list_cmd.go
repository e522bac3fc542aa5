package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetops/updatectl/pkg/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Inventory and usage help",
}

var listServersCmd = &cobra.Command{
	Use:   "servers",
	Short: "List the servers resolved from --servers/UPDATE_SERVERS/--local",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		servers, err := resolveServers(cmd, cfg)
		if err != nil {
			return err
		}
		fmt.Printf("%-20s %s\n", "NAME", "HOST")
		for _, srv := range servers {
			fmt.Printf("%-20s %s\n", srv.Name, srv.DisplayHost())
		}
		return nil
	},
}

var listExamplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "Show example server-spec syntax",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Server spec formats (comma-separate multiple, e.g. for --servers or UPDATE_SERVERS):")
		fmt.Println("  local | localhost                 the local host")
		fmt.Println("  name:local                         the local host, displayed as 'name'")
		fmt.Println("  user@host                           SSH target, named after the host")
		fmt.Println("  name:user@host                      SSH target, named 'name'")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  UPDATE_SERVERS=\"web:deploy@web1.example.com,db:deploy@db1.example.com\"")
		fmt.Println("  updatectl os --servers local,edge:deploy@edge1.example.com")
		return nil
	},
}

func init() {
	listCmd.AddCommand(listServersCmd)
	listCmd.AddCommand(listExamplesCmd)
	rootCmd.AddCommand(listCmd)
}
