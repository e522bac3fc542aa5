package notify

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildUpdateActions implements spec.md §4.7's update-report action
// buttons: "Update OS" and "Update Docker", present only for the operation
// types actually available, and omitted entirely if the webhook secret (and
// therefore webhookURL/token) is not configured.
func BuildUpdateActions(webhookURL, serverName, token string, hasOSUpdate, hasDockerUpdate bool) []NtfyAction {
	if webhookURL == "" || token == "" {
		return nil
	}

	var actions []NtfyAction
	if hasOSUpdate {
		actions = append(actions, NtfyAction{
			Kind:   "http-post",
			Label:  "Update OS",
			URL:    buildWebhookURL(webhookURL, "/webhook/update/os", serverName, token),
			Method: "POST",
		})
	}
	if hasDockerUpdate {
		actions = append(actions, NtfyAction{
			Kind:   "http-post",
			Label:  "Update Docker",
			URL:    buildWebhookURL(webhookURL, "/webhook/update/docker/all", serverName, token),
			Method: "POST",
		})
	}
	return actions
}

// BuildCleanupActions implements spec.md §4.7's cleanup action buttons,
// present only when the corresponding analysis found reclaimable content.
func BuildCleanupActions(webhookURL, serverName, token string, hasSafeCleanup, hasUnusedImages bool) []NtfyAction {
	if webhookURL == "" || token == "" {
		return nil
	}

	var actions []NtfyAction
	if hasSafeCleanup {
		actions = append(actions, NtfyAction{
			Kind:   "http-post",
			Label:  "Safe Cleanup",
			URL:    buildWebhookURL(webhookURL, "/webhook/cleanup/safe", serverName, token),
			Method: "POST",
		})
	}
	if hasUnusedImages {
		actions = append(actions, NtfyAction{
			Kind:   "http-post",
			Label:  "Prune Unused Images",
			URL:    buildWebhookURL(webhookURL, "/webhook/cleanup/images/prune-unused", serverName, token),
			Method: "POST",
		})
	}
	return actions
}

// buildWebhookURL url-encodes server name and token into a webhook call URL
// (spec.md §4.7's "MUST be URL-encoded" requirement).
func buildWebhookURL(base, path, serverName, token string) string {
	return fmt.Sprintf("%s%s?server=%s&token=%s",
		strings.TrimSuffix(base, "/"), path, url.QueryEscape(serverName), url.QueryEscape(token))
}

// UpdateTitle renders spec.md §4.7's title format: "<server> - <types>
// updates available" where types is OS, Docker, or "OS, Docker".
func UpdateTitle(serverName string, hasOSUpdate, hasDockerUpdate bool) string {
	var types []string
	if hasOSUpdate {
		types = append(types, "OS")
	}
	if hasDockerUpdate {
		types = append(types, "Docker")
	}
	return fmt.Sprintf("%s - %s updates available", serverName, strings.Join(types, ", "))
}
