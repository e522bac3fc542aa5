package cleanup

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"

	"github.com/fleetops/updatectl/pkg/dockerapi"
)

// AnalyzeLocal runs all seven analyzers plus the layer report against the
// local Docker Engine API (spec.md §4.4's local path).
func AnalyzeLocal(ctx context.Context, api dockerapi.API, serverName string, th Thresholds) (*CleanupReport, error) {
	report := &CleanupReport{ServerName: serverName}

	allImages, err := api.ImageList(ctx, image.ListOptions{All: true})
	if err != nil {
		report.Errors = append(report.Errors, "list images: "+err.Error())
		allImages = nil
	}
	allContainers, err := api.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		report.Errors = append(report.Errors, "list containers: "+err.Error())
		allContainers = nil
	}

	report.DanglingImages = danglingImagesLocal(allImages)
	report.UnusedImages = unusedImagesLocal(allImages, allContainers, th)
	report.StoppedContainers = stoppedContainersLocal(allContainers, th)

	if nets, err := api.NetworkList(ctx, network.ListOptions{}); err != nil {
		report.Errors = append(report.Errors, "list networks: "+err.Error())
	} else {
		report.Networks = unusedNetworksLocal(nets)
	}

	if du, err := duLocal(ctx, api); err != nil {
		report.Errors = append(report.Errors, "disk usage: "+err.Error())
	} else {
		report.BuildCache = du
	}

	report.Logs = largeLogsLocal(ctx, api, allContainers, th)

	if vols, err := volumesLocal(ctx, api, allContainers); err != nil {
		report.Errors = append(report.Errors, "list volumes: "+err.Error())
	} else {
		report.Volumes = vols
	}

	report.Layers = layerAnalysisLocal(ctx, api, allImages)

	report.recomputeTotalReclaimable()
	return report, nil
}

func danglingImagesLocal(images []image.Summary) ImageStats {
	var stats ImageStats
	for _, img := range images {
		if isDanglingTagSet(img.RepoTags) {
			stats.Images = append(stats.Images, ImageInfo{
				ID: img.ID, Tags: img.RepoTags, Size: clampNonNegative(img.Size), Created: img.Created,
			})
			stats.TotalSize += clampNonNegative(img.Size)
		}
	}
	return stats
}

// isDanglingTagSet matches the filter `dangling=true` would apply: no tags,
// or the single synthetic "<none>:<none>" tag the daemon reports.
func isDanglingTagSet(tags []string) bool {
	return len(tags) == 0 || (len(tags) == 1 && tags[0] == "<none>:<none>")
}

func unusedImagesLocal(images []image.Summary, containers []container.Summary, th Thresholds) ImageStats {
	referenced := make(map[string]struct{})
	for _, c := range containers {
		referenced[c.ImageID] = struct{}{}
		referenced[c.Image] = struct{}{}
	}

	cutoff := time.Now().AddDate(0, 0, -th.UnusedImageAgeDays).Unix()
	var stats ImageStats
	for _, img := range images {
		if _, used := referenced[img.ID]; used {
			continue
		}
		tagReferenced := false
		for _, tag := range img.RepoTags {
			if _, ok := referenced[tag]; ok {
				tagReferenced = true
				break
			}
		}
		if tagReferenced {
			continue
		}
		if img.Created > cutoff {
			continue
		}
		stats.Images = append(stats.Images, ImageInfo{ID: img.ID, Tags: img.RepoTags, Size: clampNonNegative(img.Size), Created: img.Created})
		stats.TotalSize += clampNonNegative(img.Size)
	}
	return stats
}

func stoppedContainersLocal(containers []container.Summary, th Thresholds) ContainerStats {
	cutoff := time.Now().AddDate(0, 0, -th.StoppedContainerAgeDays).Unix()
	var stats ContainerStats
	for _, c := range containers {
		if c.State == "running" {
			continue
		}
		if c.Created > cutoff {
			continue
		}
		size := clampNonNegative(c.SizeRw + c.SizeRootFs)
		stats.Containers = append(stats.Containers, ContainerInfo{
			ID: c.ID, Name: firstOrEmpty(c.Names), State: c.State, Size: size, Created: c.Created,
		})
		stats.TotalSize += size
	}
	sort.Slice(stats.Containers, func(i, j int) bool { return stats.Containers[i].Size > stats.Containers[j].Size })
	return stats
}

func firstOrEmpty(names []string) string {
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

func unusedNetworksLocal(nets []network.Summary) NetworkStats {
	defaults := map[string]struct{}{"bridge": {}, "host": {}, "none": {}}
	var stats NetworkStats
	for _, n := range nets {
		if _, isDefault := defaults[n.Name]; isDefault {
			continue
		}
		if len(n.Containers) == 0 {
			stats.Networks = append(stats.Networks, NetworkInfo{ID: n.ID, Name: n.Name})
		}
	}
	return stats
}

func duLocal(ctx context.Context, api dockerapi.API) (BuildCacheStats, error) {
	du, err := api.DiskUsage(ctx, types.DiskUsageOptions{})
	if err != nil {
		return BuildCacheStats{}, err
	}
	var stats BuildCacheStats
	for _, bc := range du.BuildCache {
		size := clampNonNegative(bc.Size)
		var lastUsed int64
		if bc.LastUsedAt != nil {
			lastUsed = bc.LastUsedAt.Unix()
		}
		stats.Items = append(stats.Items, BuildCacheItem{ID: bc.ID, Size: size, InUse: bc.InUse, LastUsed: lastUsed})
		stats.TotalSize += size
		if !bc.InUse {
			stats.ReclaimableSize += size
		}
	}
	return stats, nil
}

func largeLogsLocal(ctx context.Context, api dockerapi.API, containers []container.Summary, th Thresholds) LogStats {
	var stats LogStats
	for _, c := range containers {
		inspect, err := api.ContainerInspect(ctx, c.ID)
		if err != nil || inspect.LogPath == "" {
			continue
		}
		info, err := os.Stat(inspect.LogPath)
		if err != nil {
			continue
		}
		size := clampNonNegative(info.Size())
		if size < th.LogSizeBytes {
			continue
		}
		hasMaxSize, hasMaxFile := false, false
		if inspect.HostConfig != nil {
			_, hasMaxSize = inspect.HostConfig.LogConfig.Config["max-size"]
			_, hasMaxFile = inspect.HostConfig.LogConfig.Config["max-file"]
		}
		stats.Logs = append(stats.Logs, LogInfo{
			ContainerID: c.ID, ContainerName: firstOrEmpty(c.Names), Path: inspect.LogPath,
			Size: size, HasMaxSize: hasMaxSize, HasMaxFile: hasMaxFile,
		})
	}
	return stats
}

func volumesLocal(ctx context.Context, api dockerapi.API, containers []container.Summary) (VolumeStats, error) {
	resp, err := api.VolumeList(ctx, volume.ListOptions{})
	if err != nil {
		return VolumeStats{}, err
	}
	usedBy := containerMountsByVolume(containers)
	var infos []VolumeInfo
	for _, v := range resp.Volumes {
		var size uint64
		if v.UsageData != nil {
			size = clampNonNegative(v.UsageData.Size)
		}
		infos = append(infos, VolumeInfo{Name: v.Name, Size: size, ContainersUsing: usedBy[v.Name]})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Size > infos[j].Size })
	if len(infos) > 10 {
		infos = infos[:10]
	}
	return VolumeStats{Volumes: infos}, nil
}

// containerMountsByVolume maps each named volume to the containers (running
// or stopped) that mount it, grounded in
// original_source/updatectl/src/cleanup/volumes.rs's containers_using field.
func containerMountsByVolume(containers []container.Summary) map[string][]string {
	usedBy := make(map[string][]string)
	for _, c := range containers {
		name := firstOrEmpty(c.Names)
		for _, m := range c.Mounts {
			if m.Type != mount.TypeVolume || m.Name == "" {
				continue
			}
			usedBy[m.Name] = append(usedBy[m.Name], name)
		}
	}
	return usedBy
}

func layerAnalysisLocal(ctx context.Context, api dockerapi.API, images []image.Summary) LayerAnalysis {
	var inputs []imageLayers
	for _, img := range images {
		if isDanglingTagSet(img.RepoTags) {
			continue // dangling images excluded from the layer report
		}
		inspect, err := api.ImageInspect(ctx, img.ID)
		if err != nil {
			continue
		}
		inputs = append(inputs, imageLayers{ID: img.ID, Size: clampNonNegative(img.Size), LayerIDs: inspect.RootFS.Layers})
	}
	return AnalyzeLayers(inputs)
}
