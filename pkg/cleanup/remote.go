package cleanup

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fleetops/updatectl/pkg/executor"
	"github.com/fleetops/updatectl/pkg/sizefmt"
)

// AnalyzeRemote runs the seven analyzers (minus the layer report, which is
// skipped remotely per original_source/healthmon/src/remote_cleanup.rs's
// documented limitation) against a remote host over SSH, formatting every
// `docker` invocation with `--format '{{json .}}'` and parsing the result.
func AnalyzeRemote(ctx context.Context, exec executor.Executor, serverName string, th Thresholds) (*CleanupReport, error) {
	report := &CleanupReport{ServerName: serverName}

	imgLines, err := runJSONLines(ctx, exec, "docker", "image", "ls", "--all", "--format", "{{json .}}")
	if err != nil {
		report.Errors = append(report.Errors, "list images: "+err.Error())
	}
	ctrLines, err := runJSONLines(ctx, exec, "docker", "ps", "-a", "--format", "{{json .}}")
	if err != nil {
		report.Errors = append(report.Errors, "list containers: "+err.Error())
	}
	netLines, err := runJSONLines(ctx, exec, "docker", "network", "ls", "--format", "{{json .}}")
	if err != nil {
		report.Errors = append(report.Errors, "list networks: "+err.Error())
	}
	volLines, err := runJSONLines(ctx, exec, "docker", "volume", "ls", "--format", "{{json .}}")
	if err != nil {
		report.Errors = append(report.Errors, "list volumes: "+err.Error())
	}

	images := parseRemoteImages(imgLines)
	containers := parseRemoteContainers(ctrLines)

	report.DanglingImages = danglingImagesRemote(images)
	report.UnusedImages = unusedImagesRemote(images, containers, th)
	report.StoppedContainers = stoppedContainersRemote(containers, th)
	report.Networks = unusedNetworksRemote(parseRemoteNetworks(netLines))
	volNames := parseRemoteVolumes(volLines)
	report.Volumes = volumesRemote(ctx, exec, volNames, containerMountsByVolumeRemote(ctrLines, volNames))

	if bc, err := buildCacheRemote(ctx, exec); err != nil {
		report.Errors = append(report.Errors, "build cache: "+err.Error())
	} else {
		report.BuildCache = bc
	}

	report.Logs = largeLogsRemote(ctx, exec, containers, th)

	report.recomputeTotalReclaimable()
	return report, nil
}

func runJSONLines(ctx context.Context, exec executor.Executor, cmd string, args ...string) ([]string, error) {
	out, err := exec.Execute(ctx, cmd, args...)
	if err != nil {
		return nil, err
	}
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// parseRemoteTimestamp treats the first 19 characters of a
// "YYYY-MM-DD HH:MM:SS ±ZZZZ TZ"-style docker timestamp as UTC
// (spec.md §4.4), returning 0 if too short or unparseable.
func parseRemoteTimestamp(s string) int64 {
	if len(s) < 19 {
		return 0
	}
	t, err := time.Parse("2006-01-02 15:04:05", s[:19])
	if err != nil {
		return 0
	}
	return t.Unix()
}

type remoteImageLine struct {
	ID         string `json:"ID"`
	Repository string `json:"Repository"`
	Tag        string `json:"Tag"`
	Size       string `json:"Size"`
	CreatedAt  string `json:"CreatedAt"`
}

func parseRemoteImages(lines []string) []ImageInfo {
	var out []ImageInfo
	for _, l := range lines {
		var r remoteImageLine
		if json.Unmarshal([]byte(l), &r) != nil {
			continue
		}
		size, _ := sizefmt.Parse(r.Size)
		tag := r.Repository + ":" + r.Tag
		tags := []string{tag}
		if r.Repository == "<none>" || r.Tag == "<none>" {
			tags = nil
		}
		out = append(out, ImageInfo{ID: r.ID, Tags: tags, Size: size, Created: parseRemoteTimestamp(r.CreatedAt)})
	}
	return out
}

type remoteContainerLineFull struct {
	ID        string `json:"ID"`
	Names     string `json:"Names"`
	State     string `json:"State"`
	Image     string `json:"Image"`
	Size      string `json:"Size"`
	CreatedAt string `json:"CreatedAt"`
	Mounts    string `json:"Mounts"`
}

func parseRemoteContainers(lines []string) []ContainerInfo {
	var out []ContainerInfo
	for _, l := range lines {
		var r remoteContainerLineFull
		if json.Unmarshal([]byte(l), &r) != nil {
			continue
		}
		sizeStr := strings.SplitN(r.Size, " ", 2)[0]
		size, _ := sizefmt.Parse(sizeStr)
		out = append(out, ContainerInfo{
			ID: r.ID, Name: strings.TrimPrefix(r.Names, "/"), State: strings.ToLower(r.State),
			Size: size, Created: parseRemoteTimestamp(r.CreatedAt),
		})
	}
	return out
}

type remoteNetworkLine struct {
	ID   string `json:"ID"`
	Name string `json:"Name"`
}

func parseRemoteNetworks(lines []string) []remoteNetworkLine {
	var out []remoteNetworkLine
	for _, l := range lines {
		var r remoteNetworkLine
		if json.Unmarshal([]byte(l), &r) == nil {
			out = append(out, r)
		}
	}
	return out
}

type remoteVolumeLine struct {
	Name string `json:"Name"`
}

func parseRemoteVolumes(lines []string) []string {
	var out []string
	for _, l := range lines {
		var r remoteVolumeLine
		if json.Unmarshal([]byte(l), &r) == nil {
			out = append(out, r.Name)
		}
	}
	return out
}

func danglingImagesRemote(images []ImageInfo) ImageStats {
	var stats ImageStats
	for _, img := range images {
		if len(img.Tags) == 0 {
			stats.Images = append(stats.Images, img)
			stats.TotalSize += img.Size
		}
	}
	return stats
}

func unusedImagesRemote(images []ImageInfo, containers []ContainerInfo, th Thresholds) ImageStats {
	referenced := make(map[string]struct{})
	for _, c := range containers {
		referenced[c.ID] = struct{}{}
	}
	cutoff := time.Now().AddDate(0, 0, -th.UnusedImageAgeDays).Unix()

	var stats ImageStats
	for _, img := range images {
		if _, used := referenced[img.ID]; used {
			continue
		}
		if img.Created > cutoff {
			continue
		}
		stats.Images = append(stats.Images, img)
		stats.TotalSize += img.Size
	}
	return stats
}

func stoppedContainersRemote(containers []ContainerInfo, th Thresholds) ContainerStats {
	cutoff := time.Now().AddDate(0, 0, -th.StoppedContainerAgeDays).Unix()
	var stats ContainerStats
	for _, c := range containers {
		if c.State == "running" || c.Created > cutoff {
			continue
		}
		stats.Containers = append(stats.Containers, c)
		stats.TotalSize += c.Size
	}
	sort.Slice(stats.Containers, func(i, j int) bool { return stats.Containers[i].Size > stats.Containers[j].Size })
	return stats
}

func unusedNetworksRemote(nets []remoteNetworkLine) NetworkStats {
	defaults := map[string]struct{}{"bridge": {}, "host": {}, "none": {}}
	var stats NetworkStats
	for _, n := range nets {
		if _, isDefault := defaults[n.Name]; isDefault {
			continue
		}
		stats.Networks = append(stats.Networks, NetworkInfo{ID: n.ID, Name: n.Name})
	}
	return stats
}

func volumesRemote(ctx context.Context, exec executor.Executor, names []string, usedBy map[string][]string) VolumeStats {
	var infos []VolumeInfo
	for _, name := range names {
		mountpointOut, err := exec.Execute(ctx, "docker", "volume", "inspect", "--format", "{{.Mountpoint}}", name)
		var size uint64
		if err == nil {
			size = volumeDiskUsage(ctx, exec, strings.TrimSpace(string(mountpointOut)))
		}
		infos = append(infos, VolumeInfo{Name: name, Size: size, ContainersUsing: usedBy[name]})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Size > infos[j].Size })
	if len(infos) > 10 {
		infos = infos[:10]
	}
	return VolumeStats{Volumes: infos}
}

// containerMountsByVolumeRemote maps each named volume to the containers
// that mount it, grounded in
// original_source/updatectl/src/cleanup/volumes.rs's volume_usage map.
// `docker ps`'s Mounts field is a truncated, comma-separated list of mount
// names with no type tag, so it is intersected against the known volume
// names to exclude bind-mount source paths.
func containerMountsByVolumeRemote(containerLines []string, volumeNames []string) map[string][]string {
	known := make(map[string]struct{}, len(volumeNames))
	for _, n := range volumeNames {
		known[n] = struct{}{}
	}
	usedBy := make(map[string][]string)
	for _, l := range containerLines {
		var r remoteContainerLineFull
		if json.Unmarshal([]byte(l), &r) != nil {
			continue
		}
		name := strings.TrimPrefix(r.Names, "/")
		for _, m := range strings.Split(r.Mounts, ",") {
			m = strings.TrimSpace(m)
			if _, ok := known[m]; ok {
				usedBy[m] = append(usedBy[m], name)
			}
		}
	}
	return usedBy
}

// volumeDiskUsage computes one volume's best-effort size via `du -sb
// <mountpoint>`, 0 on any failure (spec.md §4.4 item 7).
func volumeDiskUsage(ctx context.Context, exec executor.Executor, mountpoint string) uint64 {
	out, err := exec.Execute(ctx, "du", "-sb", mountpoint)
	if err != nil {
		return 0
	}
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func buildCacheRemote(ctx context.Context, exec executor.Executor) (BuildCacheStats, error) {
	out, err := exec.Execute(ctx, "docker", "system", "df", "--verbose", "--format", "{{json .BuildCache}}")
	if err != nil {
		return BuildCacheStats{}, err
	}
	var entries []struct {
		ID         string `json:"ID"`
		Size       string `json:"Size"`
		InUse      bool   `json:"InUse"`
		LastUsedAt string `json:"LastUsedAt"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(out), &entries); err != nil {
		return BuildCacheStats{}, err
	}
	var stats BuildCacheStats
	for _, e := range entries {
		size, _ := sizefmt.Parse(e.Size)
		stats.Items = append(stats.Items, BuildCacheItem{ID: e.ID, Size: size, InUse: e.InUse, LastUsed: parseRemoteTimestamp(e.LastUsedAt)})
		stats.TotalSize += size
		if !e.InUse {
			stats.ReclaimableSize += size
		}
	}
	return stats, nil
}

func largeLogsRemote(ctx context.Context, exec executor.Executor, containers []ContainerInfo, th Thresholds) LogStats {
	var stats LogStats
	for _, c := range containers {
		pathOut, err := exec.Execute(ctx, "docker", "inspect", "--format", "{{.LogPath}}", c.ID)
		if err != nil {
			continue
		}
		path := strings.TrimSpace(string(pathOut))
		if path == "" {
			continue
		}
		sizeOut, err := exec.Execute(ctx, "stat", "-c", "%s", path)
		if err != nil {
			continue
		}
		size, err := strconv.ParseUint(strings.TrimSpace(string(sizeOut)), 10, 64)
		if err != nil || size < th.LogSizeBytes {
			continue
		}
		cfgOut, err := exec.Execute(ctx, "docker", "inspect", "--format", "{{json .HostConfig.LogConfig.Config}}", c.ID)
		hasMaxSize, hasMaxFile := false, false
		if err == nil {
			var cfg map[string]string
			if json.Unmarshal(bytes.TrimSpace(cfgOut), &cfg) == nil {
				_, hasMaxSize = cfg["max-size"]
				_, hasMaxFile = cfg["max-file"]
			}
		}
		stats.Logs = append(stats.Logs, LogInfo{ContainerID: c.ID, ContainerName: c.Name, Path: path, Size: size, HasMaxSize: hasMaxSize, HasMaxFile: hasMaxFile})
	}
	return stats
}

// parsePruneOutput extracts reclaimed bytes and a deletion count from
// `docker ... prune` textual output (spec.md §4.4): the
// "Total reclaimed space: <size>" line, and per-line deletion markers
// ("sha256:", "deleted:", or a bare 12-hex short id), falling back to
// counting deletion-prefixed lines when no markers match.
func parsePruneOutput(output string) (reclaimed uint64, deletedCount int) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	var fallbackLines int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), "total reclaimed space:") {
			sizeStr := strings.TrimSpace(line[len("Total reclaimed space:"):])
			if n, err := sizefmt.Parse(sizeStr); err == nil {
				reclaimed = n
			}
			continue
		}
		if strings.Contains(line, "sha256:") || strings.HasPrefix(strings.ToLower(line), "deleted:") || isShortID(line) {
			deletedCount++
		} else {
			fallbackLines++
		}
	}
	if deletedCount == 0 {
		deletedCount = fallbackLines
	}
	return reclaimed, deletedCount
}

func isShortID(s string) bool {
	if len(s) != 12 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
