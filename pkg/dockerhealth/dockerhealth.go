// Package dockerhealth implements the Docker health sampler (spec.md C5):
// listing containers, sampling one-shot CPU/memory stats, and evaluating
// problematic state against configurable thresholds.
//
// Local path grounded on original_source/dockermon/src/main.rs (the
// canonical CPU% formula, one-shot 2s-capped stats sampling, online_cpus
// fallback chain). Remote path follows the same CLI-JSON convention as
// pkg/cleanup's remote analyzers, since there is no Docker Engine socket to
// dial over SSH.
package dockerhealth

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"

	"github.com/fleetops/updatectl/pkg/dockerapi"
	"github.com/fleetops/updatectl/pkg/executor"
)

// StatsTimeout is the hard cap on one-shot stats sampling (spec.md §4.3/§5).
const StatsTimeout = 2 * time.Second

// Thresholds bundles the health sampler's configuration, passed explicitly
// rather than read from the environment mid-sample (spec.md §9).
type Thresholds struct {
	CPUWarnPct float64
	MemWarnPct float64
	IgnoreSet  map[string]struct{} // lowercase tokens
}

// HealthSample is one container's evaluated health state. CPUPercent and
// MemPercent are nil when "unknown", distinct from 0.0 (spec.md §4.3/§8).
type HealthSample struct {
	ContainerID string
	Name        string
	Running     bool
	Health      string // healthy | unhealthy | starting | none
	CPUPercent  *float64
	MemPercent  *float64
	Problematic bool
}

func ignored(th Thresholds, name, id, composeService string) bool {
	if len(th.IgnoreSet) == 0 {
		return false
	}
	candidates := []string{strings.ToLower(name), strings.ToLower(id)}
	if len(id) >= 12 {
		candidates = append(candidates, strings.ToLower(id[:12]))
	}
	if composeService != "" {
		candidates = append(candidates, strings.ToLower(composeService))
	}
	for _, c := range candidates {
		if _, ok := th.IgnoreSet[c]; ok {
			return true
		}
	}
	return false
}

func evaluateProblematic(running bool, health string, cpu, mem *float64, th Thresholds) bool {
	if !running {
		return true
	}
	if health != "" && health != "healthy" && health != "none" {
		return true
	}
	if cpu != nil && *cpu > th.CPUWarnPct {
		return true
	}
	if mem != nil && *mem > th.MemWarnPct {
		return true
	}
	return false
}

// SampleLocal lists and samples every container via the Docker Engine API.
func SampleLocal(ctx context.Context, api dockerapi.API, th Thresholds) ([]HealthSample, error) {
	containers, err := api.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("dockerhealth: list containers: %w", err)
	}

	var samples []HealthSample
	for _, c := range containers {
		name := strings.TrimPrefix(firstOr(c.Names, c.ID), "/")
		composeService := c.Labels["com.docker.compose.service"]
		if ignored(th, name, c.ID, composeService) {
			continue
		}

		inspect, err := api.ContainerInspect(ctx, c.ID)
		if err != nil {
			continue
		}

		running := inspect.State != nil && inspect.State.Running
		health := ""
		if inspect.State != nil && inspect.State.Health != nil {
			health = inspect.State.Health.Status
		}

		var cpuPct, memPct *float64
		if running {
			cpuPct, memPct = sampleStatsOneShot(ctx, api, c.ID)
		}

		samples = append(samples, HealthSample{
			ContainerID: c.ID,
			Name:        name,
			Running:     running,
			Health:      health,
			CPUPercent:  cpuPct,
			MemPercent:  memPct,
			Problematic: evaluateProblematic(running, health, cpuPct, memPct, th),
		})
	}
	return samples, nil
}

func firstOr(names []string, fallback string) string {
	if len(names) > 0 {
		return names[0]
	}
	return fallback
}

func sampleStatsOneShot(ctx context.Context, api dockerapi.API, containerID string) (cpuPct, memPct *float64) {
	sctx, cancel := context.WithTimeout(ctx, StatsTimeout)
	defer cancel()

	reader, err := api.ContainerStatsOneShot(sctx, containerID)
	if err != nil {
		return nil, nil
	}
	defer reader.Body.Close()

	var stats container.StatsResponse
	if err := json.NewDecoder(reader.Body).Decode(&stats); err != nil {
		return nil, nil
	}

	cpuPct = computeCPUPercent(stats)
	memPct = computeMemPercent(stats)
	return cpuPct, memPct
}

// computeCPUPercent implements the canonical Docker CPU% formula (spec.md
// §4.3): CPU% is unknown, not zero, when system_delta <= 0 or either system
// value is absent.
func computeCPUPercent(stats container.StatsResponse) *float64 {
	cpuDelta := float64(stats.CPUStats.CPUUsage.TotalUsage) - float64(stats.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(stats.CPUStats.SystemUsage) - float64(stats.PreCPUStats.SystemUsage)

	if stats.CPUStats.SystemUsage == 0 || stats.PreCPUStats.SystemUsage == 0 || systemDelta <= 0 || cpuDelta < 0 {
		return nil
	}

	onlineCPUs := stats.CPUStats.OnlineCPUs
	if onlineCPUs == 0 {
		onlineCPUs = uint32(len(stats.CPUStats.CPUUsage.PercpuUsage))
	}
	if onlineCPUs == 0 {
		onlineCPUs = 1
	}

	pct := (cpuDelta / systemDelta) * float64(onlineCPUs) * 100
	return &pct
}

func computeMemPercent(stats container.StatsResponse) *float64 {
	if stats.MemoryStats.Limit == 0 {
		return nil
	}
	pct := float64(stats.MemoryStats.Usage) / float64(stats.MemoryStats.Limit) * 100
	return &pct
}

// remoteContainerLine mirrors the fields `docker ps -a --format
// '{{json .}}'` emits that this sampler needs.
type remoteContainerLine struct {
	ID     string `json:"ID"`
	Names  string `json:"Names"`
	State  string `json:"State"`
	Labels string `json:"Labels"`
}

type remoteInspectHealth struct {
	State struct {
		Health *struct {
			Status string `json:"Status"`
		} `json:"Health"`
		Running bool `json:"Running"`
	} `json:"State"`
}

type remoteStatsLine struct {
	ID       string `json:"ID"`
	CPUPerc  string `json:"CPUPerc"`
	MemPerc  string `json:"MemPerc"`
}

// SampleRemote lists and samples every container over SSH using `docker`
// CLI JSON output, since there is no Engine socket to dial remotely.
func SampleRemote(ctx context.Context, exec executor.Executor, th Thresholds) ([]HealthSample, error) {
	out, err := exec.Execute(ctx, "docker", "ps", "-a", "--format", "{{json .}}")
	if err != nil {
		return nil, fmt.Errorf("dockerhealth: remote list: %w", err)
	}

	var samples []HealthSample
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var c remoteContainerLine
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			continue
		}
		name := strings.TrimPrefix(c.Names, "/")
		composeService := extractLabel(c.Labels, "com.docker.compose.service")
		if ignored(th, name, c.ID, composeService) {
			continue
		}

		running := strings.EqualFold(c.State, "running")
		health := ""
		var cpuPct, memPct *float64

		if inspectOut, err := exec.Execute(ctx, "docker", "inspect", "--format", "{{json .}}", c.ID); err == nil {
			var insp remoteInspectHealth
			if json.Unmarshal(inspectOut, &insp) == nil {
				running = insp.State.Running
				if insp.State.Health != nil {
					health = strings.ToLower(insp.State.Health.Status)
				}
			}
		}

		if running {
			sctx, cancel := context.WithTimeout(ctx, StatsTimeout)
			statsOut, err := exec.Execute(sctx, "docker", "stats", "--no-stream", "--format", "{{json .}}", c.ID)
			cancel()
			if err == nil {
				var st remoteStatsLine
				if json.Unmarshal(bytes.TrimSpace(statsOut), &st) == nil {
					cpuPct = parsePercent(st.CPUPerc)
					memPct = parsePercent(st.MemPerc)
				}
			}
		}

		samples = append(samples, HealthSample{
			ContainerID: c.ID,
			Name:        name,
			Running:     running,
			Health:      health,
			CPUPercent:  cpuPct,
			MemPercent:  memPct,
			Problematic: evaluateProblematic(running, health, cpuPct, memPct, th),
		})
	}
	return samples, nil
}

func parsePercent(s string) *float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// extractLabel pulls one key's value out of the CLI's comma-joined
// "k1=v1,k2=v2" Labels string.
func extractLabel(labels, key string) string {
	for _, kv := range strings.Split(labels, ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 && parts[0] == key {
			return parts[1]
		}
	}
	return ""
}

// Report renders the sampler's output per spec.md §4.3: "OK (N checked)" or
// "Issues: M detected", plus one line per problematic container.
func Report(samples []HealthSample) string {
	var problems []HealthSample
	for _, s := range samples {
		if s.Problematic {
			problems = append(problems, s)
		}
	}
	if len(problems) == 0 {
		return fmt.Sprintf("OK (%d checked)", len(samples))
	}

	lines := make([]string, 0, len(problems)+1)
	lines = append(lines, fmt.Sprintf("Issues: %d detected", len(problems)))
	for _, s := range problems {
		lines = append(lines, describeSample(s))
	}
	return strings.Join(lines, "\n")
}

func describeSample(s HealthSample) string {
	status := "running"
	if !s.Running {
		status = "not running"
	}
	detail := fmt.Sprintf("  %s: %s", s.Name, status)
	if s.Health != "" {
		detail += fmt.Sprintf(", health=%s", s.Health)
	}
	if s.CPUPercent != nil {
		detail += fmt.Sprintf(", cpu=%.1f%%", *s.CPUPercent)
	}
	if s.MemPercent != nil {
		detail += fmt.Sprintf(", mem=%.1f%%", *s.MemPercent)
	}
	return detail
}
