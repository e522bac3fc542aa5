// Package config parses the environment-variable table of spec.md §6 once,
// at the process boundary, into an immutable struct. Apart from pkg/server,
// which reads UPDATE_LOCAL_NAME and UPDATE_LOCAL_DISPLAY itself, no package
// below the CLI layer reads os.Getenv directly — this is the required redesign of
// spec.md §9: thresholds and policy are explicit parameters everywhere
// else, never ambient process state read mid-operation.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/fleetops/updatectl/pkg/sizefmt"
)

// Defaults ported from original_source/common/src/constants.rs.
const (
	DefaultCPUWarnPct = 85.0
	DefaultMemWarnPct = 90.0

	DefaultStoppedContainerAgeDays = 30
	DefaultUnusedImageAgeDays      = 90
	DefaultLogSizeThreshold        = "100M"

	DefaultGotifyPriority = 5
	DefaultNtfyPriority   = 4
)

// Config is the immutable, process-wide configuration snapshot.
type Config struct {
	Servers      []string
	SSHKeyPath   string
	LocalName    string
	LocalDisplay string

	WebhookSecret string
	WebhookURL    string

	RestartPolicyKind      string // "none" | "all-except-webhook" | "exclusion"
	RestartExcludeDefault  []string
	RestartExclude         []string // "server:container" tokens

	CleanupStoppedAgeDays   int
	CleanupImageAgeDays     int
	CleanupLogSizeThreshold uint64

	IgnoreSet map[string]struct{}

	CPUWarnPct float64
	MemWarnPct float64

	GotifyURL     string
	GotifyKey     string
	GotifyDebug   bool
	NtfyURL       string
	NtfyAuth      string
	NtfyDebug     bool
}

// Load reads every environment variable named in spec.md §6 and returns an
// immutable Config. Called once, at the CLI or webhook-server entry point.
func Load() Config {
	cfg := Config{
		Servers:      splitCSV(os.Getenv("UPDATE_SERVERS")),
		SSHKeyPath:   os.Getenv("UPDATE_SSH_KEY"),
		LocalName:    getOr("UPDATE_LOCAL_NAME", "localhost"),
		LocalDisplay: getOr("UPDATE_LOCAL_DISPLAY", "local"),

		WebhookSecret: os.Getenv("UPDATECTL_WEBHOOK_SECRET"),
		WebhookURL:    os.Getenv("UPDATECTL_WEBHOOK_URL"),

		RestartPolicyKind:     getOr("UPDATECTL_RESTART_POLICY", "all-except-webhook"),
		RestartExcludeDefault: splitCSV(os.Getenv("UPDATECTL_RESTART_EXCLUDE_DEFAULT")),
		RestartExclude:        splitCSV(os.Getenv("UPDATECTL_RESTART_EXCLUDE")),

		CleanupStoppedAgeDays: getIntOr("DOCKERMON_CLEANUP_STOPPED_AGE_DAYS", DefaultStoppedContainerAgeDays),
		CleanupImageAgeDays:   getIntOr("DOCKERMON_CLEANUP_IMAGE_AGE_DAYS", DefaultUnusedImageAgeDays),

		CPUWarnPct: getFloatOr("CPU_WARN_PCT", DefaultCPUWarnPct),
		MemWarnPct: getFloatOr("MEM_WARN_PCT", DefaultMemWarnPct),

		GotifyURL:   os.Getenv("GOTIFY_URL"),
		GotifyDebug: getBoolOr("GOTIFY_DEBUG", false),
		NtfyURL:     os.Getenv("NTFY_URL"),
		NtfyAuth:    os.Getenv("NTFY_AUTH"),
		NtfyDebug:   getBoolOr("NTFY_DEBUG", false),
	}

	if size, err := sizefmt.Parse(getOr("DOCKERMON_CLEANUP_LOG_SIZE_CONTAINER", DefaultLogSizeThreshold)); err == nil {
		cfg.CleanupLogSizeThreshold = size
	}

	cfg.IgnoreSet = buildIgnoreSet(os.Getenv("DOCKERMON_IGNORE"), os.Getenv("HEALTHMON_IGNORE"))
	cfg.GotifyKey = resolveGotifyKey()

	return cfg
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func buildIgnoreSet(lists ...string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, tok := range splitCSV(list) {
			set[strings.ToLower(tok)] = struct{}{}
		}
	}
	return set
}

func getOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func getFloatOr(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return n
}

func getBoolOr(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}

// resolveGotifyKey implements the multi-source precedence from
// original_source/common/src/lib.rs::send_gotify: a direct key env var
// takes priority over a key-file path.
func resolveGotifyKey() string {
	if key := os.Getenv("UPDATECTL_GOTIFY_KEY"); key != "" {
		return key
	}
	if key := os.Getenv("GOTIFY_KEY"); key != "" {
		return key
	}
	if path := os.Getenv("GOTIFY_KEY_FILE"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return ""
}
