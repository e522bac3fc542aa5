package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetops/updatectl/pkg/config"
	"github.com/fleetops/updatectl/pkg/log"
	"github.com/fleetops/updatectl/pkg/metrics"
	"github.com/fleetops/updatectl/pkg/notify"
	"github.com/fleetops/updatectl/pkg/server"
	"github.com/fleetops/updatectl/pkg/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8089, "Port to listen on")
	serveCmd.Flags().Int("metrics-port", 0, "Separate port for /metrics; 0 serves it on --port alongside the webhook routes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.WebhookSecret == "" {
		return fmt.Errorf("serve: UPDATECTL_WEBHOOK_SECRET must be set")
	}

	servers, err := resolveServers(cmd, cfg)
	if err != nil {
		servers = []server.Server{server.Local()}
	}
	registry, err := server.NewRegistry(servers)
	if err != nil {
		return err
	}

	state := &webhook.State{
		Client:        &http.Client{Timeout: 30 * time.Second},
		Secret:        cfg.WebhookSecret,
		Registry:      registry,
		SSHKeyPath:    sshKeyPath(cmd, cfg),
		WebhookURL:    cfg.WebhookURL,
		RestartPolicy: restartPolicyFromConfig(cfg),
		LogSizeBytes:  cfg.CleanupLogSizeThreshold,
		ImageAgeDays:  cfg.CleanupImageAgeDays,
		Gotify:        notify.GotifyConfig{URL: cfg.GotifyURL, Key: cfg.GotifyKey, Debug: cfg.GotifyDebug, Priority: config.DefaultGotifyPriority},
		Ntfy:          notify.NtfyConfig{URL: cfg.NtfyURL, Auth: cfg.NtfyAuth, Debug: cfg.NtfyDebug, Priority: config.DefaultNtfyPriority},
	}

	srv := webhook.NewServer(state)

	port, _ := cmd.Flags().GetInt("port")
	metricsPort, _ := cmd.Flags().GetInt("metrics-port")

	if metricsPort != 0 && metricsPort != port {
		go func() {
			log.WithComponent("serve").Info().Int("port", metricsPort).Msg("metrics server listening")
			if err := http.ListenAndServe(fmt.Sprintf(":%d", metricsPort), metrics.Handler()); err != nil {
				log.WithComponent("serve").Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	log.WithComponent("serve").Info().Int("port", port).Int("servers", registry.Len()).Msg("webhook server listening")
	return http.ListenAndServe(fmt.Sprintf(":%d", port), srv)
}
