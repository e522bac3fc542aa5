package main

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetops/updatectl/pkg/config"
	"github.com/fleetops/updatectl/pkg/imageupdate"
	"github.com/fleetops/updatectl/pkg/notify"
	"github.com/fleetops/updatectl/pkg/pkgmanager"
	"github.com/fleetops/updatectl/pkg/server"
)

func init() {
	rootCmd.RunE = runInventory
}

// serverInventory is one server's read-only finding set (spec.md §3's
// UpdateReport, restricted to the "what's pending" half — updatemon never
// drives the mutating half).
type serverInventory struct {
	server        server.Server
	osUpdates     []string
	dockerUpdates []string
	err           error
}

func runInventory(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	servers, err := resolveServers(cmd, cfg)
	if err != nil {
		return err
	}

	results := make([]serverInventory, len(servers))
	var g errgroup.Group
	for i, srv := range servers {
		i, srv := i, srv
		g.Go(func() error {
			results[i] = inventoryOne(cmd, cfg, srv)
			return nil
		})
	}
	_ = g.Wait()

	client := &http.Client{Timeout: 30 * time.Second}
	for _, inv := range results {
		printInventory(inv)
		notifyInventory(cfg, client, inv)
	}
	return nil
}

// notifyInventory implements spec.md §4.7's update-inventory notification:
// one fan-out per server that has pending updates, with action buttons for
// whichever update types were found, omitted entirely when the webhook
// secret is unconfigured (notify.BuildUpdateActions already enforces that).
func notifyInventory(cfg config.Config, client *http.Client, inv serverInventory) {
	if inv.err != nil {
		return
	}
	hasOS, hasDocker := len(inv.osUpdates) > 0, len(inv.dockerUpdates) > 0
	if !hasOS && !hasDocker {
		return
	}

	title := notify.UpdateTitle(inv.server.Name, hasOS, hasDocker)
	actions := notify.BuildUpdateActions(cfg.WebhookURL, inv.server.Name, cfg.WebhookSecret, hasOS, hasDocker)
	gotify := notify.GotifyConfig{URL: cfg.GotifyURL, Key: cfg.GotifyKey, Debug: cfg.GotifyDebug, Priority: config.DefaultGotifyPriority}
	ntfy := notify.NtfyConfig{URL: cfg.NtfyURL, Auth: cfg.NtfyAuth, Debug: cfg.NtfyDebug, Priority: config.DefaultNtfyPriority}

	notify.Dispatch(context.Background(), client, gotify, ntfy, title, inventoryBody(inv), actions)
}

func inventoryBody(inv serverInventory) string {
	var b strings.Builder
	for _, pkg := range inv.osUpdates {
		fmt.Fprintf(&b, "os: %s\n", pkg)
	}
	for _, image := range inv.dockerUpdates {
		fmt.Fprintf(&b, "docker: %s\n", image)
	}
	return strings.TrimRight(b.String(), "\n")
}

func inventoryOne(cmd *cobra.Command, cfg config.Config, srv server.Server) serverInventory {
	inv := serverInventory{server: srv}
	ctx := backgroundContext()
	exec := newExecutor(srv, cmd, cfg)

	if _, updates, err := pkgmanager.CheckUpdates(ctx, exec); err != nil {
		inv.err = fmt.Errorf("os check: %w", err)
	} else {
		inv.osUpdates = updates
	}

	images, err := imageupdate.ListImages(ctx, exec)
	if err != nil {
		if inv.err == nil {
			inv.err = fmt.Errorf("docker discovery: %w", err)
		}
		return inv
	}
	for _, image := range images {
		check := imageupdate.CheckUpdateAvailable(ctx, exec, image)
		if check.UpdateAvailable {
			inv.dockerUpdates = append(inv.dockerUpdates, image)
		}
	}
	sort.Strings(inv.dockerUpdates)
	return inv
}

func printInventory(inv serverInventory) {
	if inv.err != nil {
		fmt.Printf("[%s] error: %v\n", inv.server.Name, inv.err)
		return
	}
	if len(inv.osUpdates) == 0 && len(inv.dockerUpdates) == 0 {
		fmt.Printf("[%s] up to date\n", inv.server.Name)
		return
	}
	var types []string
	if len(inv.osUpdates) > 0 {
		types = append(types, "OS")
	}
	if len(inv.dockerUpdates) > 0 {
		types = append(types, "Docker")
	}
	fmt.Printf("[%s] %s updates available\n", inv.server.Name, strings.Join(types, "+"))
	for _, pkg := range inv.osUpdates {
		fmt.Printf("  os:     %s\n", pkg)
	}
	for _, image := range inv.dockerUpdates {
		fmt.Printf("  docker: %s\n", image)
	}
}
