// Package imageupdate implements the Docker image updater (spec.md/SPEC_FULL.md
// C7): pull, discover dependent containers, restart through a configurable
// policy, and digest-based update-available detection.
//
// Grounded in original_source/updatectl/src/updater.rs::update_docker for the
// pull/discover/restart pipeline, and in
// other_examples/.../updater_remote.go's check-result/structured-logging
// style for the digest comparison code. Both the local and remote paths run
// through pkg/executor uniformly, since every step here is a `docker` CLI
// invocation rather than an Engine API call.
package imageupdate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fleetops/updatectl/pkg/executor"
)

// RestartPolicyKind selects which dependent containers get restarted after a
// successful pull (spec.md §4.5).
type RestartPolicyKind string

const (
	RestartNone             RestartPolicyKind = "none"
	RestartAllExceptWebhook RestartPolicyKind = "all-except-webhook"
	RestartExclusion        RestartPolicyKind = "exclusion"
)

// webhookSelfToken is the substring that marks the webhook host's own
// container under the default policy (spec.md §4.5): it must not restart
// itself mid-operation.
const webhookSelfToken = "updatectl_webhook"

// RestartPolicy bundles a policy kind with its exclusion lists. DefaultExclude
// and ServerExclude tokens are matched case-insensitively as substrings of
// the container name.
type RestartPolicy struct {
	Kind           RestartPolicyKind
	DefaultExclude []string
	ServerExclude  map[string][]string // lowercase server name -> tokens
}

// ShouldRestart implements spec.md §4.5's restart-policy filter.
func (p RestartPolicy) ShouldRestart(serverName, containerName string) bool {
	switch p.Kind {
	case RestartNone:
		return false
	case RestartExclusion:
		name := strings.ToLower(containerName)
		for _, tok := range p.DefaultExclude {
			if tok != "" && strings.Contains(name, strings.ToLower(tok)) {
				return false
			}
		}
		for _, tok := range p.ServerExclude[strings.ToLower(serverName)] {
			if tok != "" && strings.Contains(name, strings.ToLower(tok)) {
				return false
			}
		}
		return true
	default: // RestartAllExceptWebhook
		return !strings.Contains(strings.ToLower(containerName), webhookSelfToken)
	}
}

// Outcome is one target image's pull/discover/restart result.
type Outcome struct {
	Image                string
	Pulled               bool
	PullError            string
	Dependents           []string
	DependentsRestarted  []string
	DependentsExcluded   []string
	RestartErrors        map[string]string
}

// ListImages lists every tagged image on the target, for the "update all"
// input mode (spec.md §4.5).
func ListImages(ctx context.Context, exec executor.Executor) ([]string, error) {
	out, err := exec.Execute(ctx, "docker", "images", "--format", "{{.Repository}}:{{.Tag}}")
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && line != "<none>:<none>" {
			targets = append(targets, line)
		}
	}
	return targets, nil
}

// UpdateImages implements spec.md §4.5's pipeline for every target tag.
func UpdateImages(ctx context.Context, exec executor.Executor, serverName string, targets []string, policy RestartPolicy) []Outcome {
	outcomes := make([]Outcome, 0, len(targets))
	for _, image := range targets {
		outcomes = append(outcomes, updateOne(ctx, exec, serverName, image, policy))
	}
	return outcomes
}

func updateOne(ctx context.Context, exec executor.Executor, serverName, image string, policy RestartPolicy) Outcome {
	outcome := Outcome{Image: image, RestartErrors: make(map[string]string)}

	if _, err := exec.Execute(ctx, "docker", "pull", image); err != nil {
		outcome.PullError = err.Error()
		return outcome
	}
	outcome.Pulled = true

	names, err := dependentContainers(ctx, exec, image)
	if err != nil {
		outcome.RestartErrors["discover"] = err.Error()
		return outcome
	}
	outcome.Dependents = names

	for _, name := range names {
		if !policy.ShouldRestart(serverName, name) {
			outcome.DependentsExcluded = append(outcome.DependentsExcluded, name)
			continue
		}
		if _, err := exec.Execute(ctx, "docker", "restart", name); err != nil {
			outcome.RestartErrors[name] = err.Error()
			continue
		}
		outcome.DependentsRestarted = append(outcome.DependentsRestarted, name)
	}

	return outcome
}

// dependentContainers discovers containers built from the given image
// (spec.md §4.5 step 2): `docker ps --filter ancestor=<image>` with
// `{{.Names}}`, one name per line (a container's first alias if it has
// several comma-separated names).
func dependentContainers(ctx context.Context, exec executor.Executor, image string) ([]string, error) {
	out, err := exec.Execute(ctx, "docker", "ps", "--filter", "ancestor="+image, "--format", "{{.Names}}")
	if err != nil {
		return nil, err
	}
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names = append(names, strings.SplitN(line, ",", 2)[0])
	}
	return names, nil
}

// DigestCheck is the result of comparing a local image's digest against its
// remote manifest (spec.md §4.5).
type DigestCheck struct {
	LocalDigest     string
	RemoteDigest    string
	UpdateAvailable bool
}

// CheckUpdateAvailable implements spec.md §4.5's update-available detection.
// Any error or missing digest on either side yields UpdateAvailable=false —
// the conservative fallback from
// original_source/updatemon/src/docker.rs::check_image_update, preserved
// here even though the crude substring comparison it used is replaced with
// exact digest comparison.
func CheckUpdateAvailable(ctx context.Context, exec executor.Executor, imageRef string) DigestCheck {
	localOut, err := exec.Execute(ctx, "docker", "inspect", "--format", "{{index .RepoDigests 0}}", imageRef)
	if err != nil {
		return DigestCheck{}
	}
	localDigest, ok := parseLocalDigest(strings.TrimSpace(string(localOut)))
	if !ok {
		return DigestCheck{}
	}

	remoteOut, err := exec.Execute(ctx, "docker", "manifest", "inspect", imageRef)
	if err != nil {
		return DigestCheck{LocalDigest: localDigest}
	}
	remoteDigest, ok := parseRemoteDigest(remoteOut)
	if !ok {
		return DigestCheck{LocalDigest: localDigest}
	}

	return DigestCheck{
		LocalDigest:     localDigest,
		RemoteDigest:    remoteDigest,
		UpdateAvailable: localDigest != remoteDigest,
	}
}

// parseLocalDigest extracts the portion after "@" from a
// "repo@sha256:..." RepoDigests entry.
func parseLocalDigest(repoDigest string) (string, bool) {
	idx := strings.LastIndex(repoDigest, "@")
	if idx < 0 || idx == len(repoDigest)-1 {
		return "", false
	}
	return repoDigest[idx+1:], true
}

type manifestInspectResult struct {
	Config *struct {
		Digest string `json:"digest"`
	} `json:"config"`
	Manifests []struct {
		Digest string `json:"digest"`
	} `json:"manifests"`
}

// parseRemoteDigest implements spec.md §4.5's lookup order: a single-image
// manifest's config.digest first, falling back to manifests[0].digest for
// manifest lists. The first list entry is taken regardless of its platform,
// so for multi-arch images the result can name another architecture's
// manifest and over- or under-report an available update.
func parseRemoteDigest(raw []byte) (string, bool) {
	var m manifestInspectResult
	if err := json.Unmarshal(bytes.TrimSpace(raw), &m); err != nil {
		return "", false
	}
	if m.Config != nil && m.Config.Digest != "" {
		return m.Config.Digest, true
	}
	if len(m.Manifests) > 0 && m.Manifests[0].Digest != "" {
		return m.Manifests[0].Digest, true
	}
	return "", false
}

// Summary renders a one-line-per-image report, matching the style of
// spec.md §3's UpdateReport.
func Summary(outcomes []Outcome) string {
	var lines []string
	for _, o := range outcomes {
		if !o.Pulled {
			lines = append(lines, fmt.Sprintf("%s: pull failed (%s)", o.Image, o.PullError))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: pulled, %d restarted, %d excluded, %d failed",
			o.Image, len(o.DependentsRestarted), len(o.DependentsExcluded), len(o.RestartErrors)))
	}
	return strings.Join(lines, "\n")
}
