// Package dockerapi narrows the Docker Engine SDK client down to the
// surface the Docker resource engine (spec.md C5/C6/C7) actually uses, so
// that package can be exercised against a fake in tests without a real
// daemon. *client.Client already satisfies this interface implicitly,
// exactly as other_examples' docker-interface.go wraps it for the same
// reason.
//
// This is the local path's transport; the remote path (spec.md §4.4) goes
// through pkg/executor and the `docker` CLI instead, since there is no
// Docker Engine socket to dial over SSH.
package dockerapi

import (
	"context"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
)

// API is the subset of the Docker Engine client used locally.
type API interface {
	Close() error

	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerStatsOneShot(ctx context.Context, containerID string) (container.StatsResponseReader, error)
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
	ContainersPrune(ctx context.Context, pruneFilters filters.Args) (container.PruneReport, error)

	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ImageInspect(ctx context.Context, imageID string) (types.ImageInspect, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ImagesPrune(ctx context.Context, pruneFilters filters.Args) (image.PruneReport, error)
	DistributionInspect(ctx context.Context, imageRef, encodedAuth string) (registry.DistributionInspect, error)

	NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error)
	NetworksPrune(ctx context.Context, pruneFilters filters.Args) (network.PruneReport, error)

	VolumeList(ctx context.Context, options volume.ListOptions) (volume.ListResponse, error)

	DiskUsage(ctx context.Context, options types.DiskUsageOptions) (types.DiskUsage, error)
	BuildCachePrune(ctx context.Context, opts types.BuildCachePruneOptions) (*types.BuildCachePruneReport, error)
}

// NewClient dials the local Docker Engine over its default unix socket,
// negotiating the API version with the daemon.
func NewClient() (API, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}
