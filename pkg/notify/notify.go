// Package notify implements the notification fan-out (spec.md/SPEC_FULL.md
// C9): a Gotify sender grounded on
// original_source/common/src/lib.rs::send_gotify (URL/key precedence, debug
// token masking), and an ntfy.sh sender — a supplemented feature designed
// from spec.md §3's NtfyAction type and ntfy.sh's documented Actions header
// format, since no Rust ntfy sender body was present in original_source.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fleetops/updatectl/pkg/log"
)

// GotifyConfig carries everything SendGotify needs, resolved once by
// pkg/config at the process boundary.
type GotifyConfig struct {
	URL      string
	Key      string
	Debug    bool
	Priority int
}

// NtfyConfig carries everything SendNtfy needs.
type NtfyConfig struct {
	URL      string
	Auth     string // optional "Authorization" header value
	Debug    bool
	Priority int
}

// NtfyAction is an action-button descriptor (spec.md §3).
type NtfyAction struct {
	Kind    string // "view" | "http-post"
	Label   string
	URL     string
	Method  string
	Headers map[string]string
	Body    string
}

// maskToken mirrors send_gotify's debug-log masking: show the first and
// last three characters, "***" for anything shorter.
func maskToken(token string) string {
	if len(token) > 6 {
		return token[:3] + "***" + token[len(token)-3:]
	}
	return "***"
}

// SendGotify posts a title/body message to Gotify. An empty URL or key means
// Gotify is not configured; that is not an error, matching the Rust
// source's "skip and log" behavior.
func SendGotify(ctx context.Context, client *http.Client, cfg GotifyConfig, title, body string) error {
	if cfg.URL == "" || cfg.Key == "" {
		log.Debug("gotify not configured; skipping notification")
		return nil
	}

	priority := cfg.Priority
	if priority == 0 {
		priority = 5
	}

	if cfg.Debug {
		log.WithComponent("notify").Debug().
			Str("url", cfg.URL).
			Str("key", maskToken(cfg.Key)).
			Int("bytes_title", len(title)).
			Int("bytes_body", len(body)).
			Msg("dispatching gotify notification")
	}

	payload, err := json.Marshal(map[string]any{
		"title":    title,
		"message":  body,
		"priority": priority,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal gotify payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build gotify request: %w", err)
	}
	req.Header.Set("X-Gotify-Key", cfg.Key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send gotify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: gotify returned status %d", resp.StatusCode)
	}
	return nil
}

// SendNtfy posts a title/body message with up to 3 action buttons to an
// ntfy.sh-compatible topic URL, using ntfy's documented `Actions` header
// format (spec.md §3's NtfyAction, supplemented feature).
func SendNtfy(ctx context.Context, client *http.Client, cfg NtfyConfig, title, body string, actions []NtfyAction) error {
	if cfg.URL == "" {
		log.Debug("ntfy not configured; skipping notification")
		return nil
	}

	priority := cfg.Priority
	if priority == 0 {
		priority = 4
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build ntfy request: %w", err)
	}
	req.Header.Set("Title", title)
	req.Header.Set("Priority", fmt.Sprintf("%d", priority))
	if cfg.Auth != "" {
		req.Header.Set("Authorization", cfg.Auth)
	}
	if action := buildActionsHeader(actions); action != "" {
		req.Header.Set("Actions", action)
	}

	if cfg.Debug {
		log.WithComponent("notify").Debug().
			Str("url", cfg.URL).
			Int("actions", len(actions)).
			Msg("dispatching ntfy notification")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send ntfy: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: ntfy returned status %d", resp.StatusCode)
	}
	return nil
}

// buildActionsHeader renders ntfy's comma-within-action, semicolon-between-
// actions Actions header. At most 3 actions are honored (the self-hosted
// limit named in spec.md §4.7).
func buildActionsHeader(actions []NtfyAction) string {
	if len(actions) > 3 {
		actions = actions[:3]
	}
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		switch a.Kind {
		case "view":
			parts = append(parts, fmt.Sprintf("view, %s, %s", a.Label, a.URL))
		case "http-post", "http":
			method := a.Method
			if method == "" {
				method = "POST"
			}
			field := fmt.Sprintf("http, %s, %s, method=%s", a.Label, a.URL, method)
			for k, v := range a.Headers {
				field += fmt.Sprintf(", headers.%s=%s", k, v)
			}
			if a.Body != "" {
				field += fmt.Sprintf(", body=%s", a.Body)
			}
			parts = append(parts, field)
		}
	}
	return strings.Join(parts, "; ")
}

// DispatchResult tallies per-backend send outcomes.
type DispatchResult struct {
	GotifyError error
	NtfyError   error
}

// Dispatch fans out one title/body message to both backends. Per spec.md
// §4.6's "completion path": send errors are logged and never propagated,
// since the triggering HTTP response has already completed.
func Dispatch(ctx context.Context, client *http.Client, gotify GotifyConfig, ntfy NtfyConfig, title, body string, actions []NtfyAction) DispatchResult {
	var result DispatchResult

	if err := SendGotify(ctx, client, gotify, title, body); err != nil {
		result.GotifyError = err
		log.WithComponent("notify").Warn().Err(err).Msg("gotify send failed")
	}
	if err := SendNtfy(ctx, client, ntfy, title, body, actions); err != nil {
		result.NtfyError = err
		log.WithComponent("notify").Warn().Err(err).Msg("ntfy send failed")
	}

	return result
}
