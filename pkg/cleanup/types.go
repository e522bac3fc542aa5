// Package cleanup implements the Docker cleanup engine (spec.md/SPEC_FULL.md
// C6): seven resource analyzers, a layer-sharing report, and profile-driven
// executors, each available over a local Docker Engine API path
// (pkg/dockerapi) and a remote SSH/CLI path (pkg/executor).
//
// Grounded in original_source/{updatectl,dockermon,healthmon}/src/cleanup/*.rs
// (images.rs, networks.rs, build_cache.rs, containers.rs, logs.rs, volumes.rs,
// layers.rs) for the local analyzers, and
// original_source/healthmon/src/remote_cleanup.rs for the CLI-JSON remote
// path. Thresholds are passed explicitly into every function — the
// mutate-env/run/restore pattern in profiles.rs and remote_cleanup.rs is not
// ported (spec.md §9 required redesign).
package cleanup

// ImageInfo is a flat record of one image's identity, size, and tags.
type ImageInfo struct {
	ID      string
	Tags    []string
	Size    uint64
	Created int64
}

// ContainerInfo is a flat record of one container's identity and state.
type ContainerInfo struct {
	ID      string
	Name    string
	State   string
	Size    uint64
	Created int64
}

// NetworkInfo is a flat record of one unused user-defined network.
type NetworkInfo struct {
	ID   string
	Name string
}

// VolumeInfo is a flat record of one volume, its best-effort disk usage, and
// the containers (running or stopped) that mount it.
type VolumeInfo struct {
	Name            string
	Size            uint64
	ContainersUsing []string
}

// BuildCacheItem is one entry of the builder cache.
type BuildCacheItem struct {
	ID       string
	Size     uint64
	InUse    bool
	LastUsed int64
}

// LogInfo is one container's log-file size and rotation configuration.
type LogInfo struct {
	ContainerID   string
	ContainerName string
	Path          string
	Size          uint64
	HasMaxSize    bool
	HasMaxFile    bool
}

// SharedLayer is one image layer used by two or more images.
type SharedLayer struct {
	LayerID     string
	ApproxSize  uint64
	ImagesUsing []string
}

// ImageStats aggregates a set of images (dangling, or unused-and-aged).
type ImageStats struct {
	Images    []ImageInfo
	TotalSize uint64
}

// NetworkStats aggregates unused user-defined networks.
type NetworkStats struct {
	Networks []NetworkInfo
}

// BuildCacheStats aggregates the builder cache.
type BuildCacheStats struct {
	Items           []BuildCacheItem
	TotalSize       uint64
	ReclaimableSize uint64
}

// ContainerStats aggregates stopped containers past the age threshold,
// sorted by size descending.
type ContainerStats struct {
	Containers []ContainerInfo
	TotalSize  uint64
}

// LogStats aggregates containers whose log file exceeds the size threshold.
type LogStats struct {
	Logs []LogInfo
}

// VolumeStats aggregates the ten largest volumes (informational, not sized
// into TotalReclaimable).
type VolumeStats struct {
	Volumes []VolumeInfo
}

// LayerAnalysis is the cross-image layer-sharing report.
type LayerAnalysis struct {
	SharedLayers      []SharedLayer
	TotalSharedBytes  uint64
	TotalUniqueBytes  uint64
	EfficiencyPercent float64
}

// CleanupReport is one server's full analysis pass.
type CleanupReport struct {
	ServerName        string
	DanglingImages    ImageStats
	UnusedImages      ImageStats
	Networks          NetworkStats
	BuildCache        BuildCacheStats
	StoppedContainers ContainerStats
	Logs              LogStats
	Volumes           VolumeStats
	Layers            LayerAnalysis
	TotalReclaimable  uint64
	Errors            []string
}

// recomputeTotalReclaimable implements spec.md §3's invariant: dangling images + build
// cache + stopped containers. Unused images require confirmation and
// networks/logs/volumes are advisory, so none of those count here.
func (r *CleanupReport) recomputeTotalReclaimable() {
	r.TotalReclaimable = r.DanglingImages.TotalSize + r.BuildCache.ReclaimableSize + r.StoppedContainers.TotalSize
}

func clampNonNegative(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}
