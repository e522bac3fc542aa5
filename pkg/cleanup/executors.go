package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"

	"github.com/fleetops/updatectl/pkg/dockerapi"
	"github.com/fleetops/updatectl/pkg/executor"
)

// ExecResult tallies one executor pass: bytes reclaimed and any per-step
// errors, matching spec.md §7's "partial results still returned" rule.
type ExecResult struct {
	BytesReclaimed uint64
	Errors         []string
}

func (r *ExecResult) fail(step string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", step, err))
}

// SafeCleanupLocal implements spec.md §4.4's Conservative executor: prune
// dangling images, unused networks, build cache, and stopped containers
// older than the threshold.
func SafeCleanupLocal(ctx context.Context, api dockerapi.API, th Thresholds) ExecResult {
	var result ExecResult

	danglingFilter := filters.NewArgs(filters.Arg("dangling", "true"))
	if report, err := api.ImagesPrune(ctx, danglingFilter); err != nil {
		result.fail("prune dangling images", err)
	} else {
		result.BytesReclaimed += report.SpaceReclaimed
	}

	if _, err := api.NetworksPrune(ctx, filters.NewArgs()); err != nil {
		result.fail("prune networks", err)
	}

	if report, err := api.BuildCachePrune(ctx, types.BuildCachePruneOptions{All: true}); err != nil {
		result.fail("prune build cache", err)
	} else if report != nil {
		result.BytesReclaimed += report.SpaceReclaimed
	}

	cutoff := time.Now().AddDate(0, 0, -th.StoppedContainerAgeDays)
	untilFilter := filters.NewArgs(filters.Arg("until", cutoff.Format(time.RFC3339)))
	if report, err := api.ContainersPrune(ctx, untilFilter); err != nil {
		result.fail("prune stopped containers", err)
	} else {
		result.BytesReclaimed += report.SpaceReclaimed
	}

	return result
}

// UnusedImageCleanupLocal prunes non-dangling images older than the
// threshold (spec.md §4.4), run only when the profile enables it.
func UnusedImageCleanupLocal(ctx context.Context, api dockerapi.API, th Thresholds) ExecResult {
	var result ExecResult
	if !th.PruneUnusedImages {
		return result
	}

	cutoff := time.Now().AddDate(0, 0, -th.UnusedImageAgeDays)
	filterArgs := filters.NewArgs(
		filters.Arg("dangling", "false"),
		filters.Arg("until", cutoff.Format(time.RFC3339)),
	)
	report, err := api.ImagesPrune(ctx, filterArgs)
	if err != nil {
		result.fail("prune unused images", err)
		return result
	}
	result.BytesReclaimed += report.SpaceReclaimed
	return result
}

// RunProfileLocal runs safe cleanup, then conditionally unused-image
// cleanup, for the given profile (spec.md §4.4's profile orchestration).
// There is no environment state to restore under the explicit-parameter
// redesign (spec.md §9) — the original mutate/run/restore shape collapses
// to a plain sequential call.
func RunProfileLocal(ctx context.Context, api dockerapi.API, p Profile, logSizeBytes uint64) ExecResult {
	th := ForProfile(p).WithLogSizeBytes(logSizeBytes)

	result := SafeCleanupLocal(ctx, api, th)
	if th.PruneUnusedImages {
		unused := UnusedImageCleanupLocal(ctx, api, th)
		result.BytesReclaimed += unused.BytesReclaimed
		result.Errors = append(result.Errors, unused.Errors...)
	}
	return result
}

// SafeCleanupRemote implements the same Conservative executor over SSH via
// `docker ... prune --force`, parsing the textual prune output.
func SafeCleanupRemote(ctx context.Context, exec executor.Executor, th Thresholds) ExecResult {
	var result ExecResult

	if out, err := exec.Execute(ctx, "docker", "image", "prune", "--force"); err != nil {
		result.fail("prune dangling images", err)
	} else {
		reclaimed, _ := parsePruneOutput(string(out))
		result.BytesReclaimed += reclaimed
	}

	if _, err := exec.Execute(ctx, "docker", "network", "prune", "--force"); err != nil {
		result.fail("prune networks", err)
	}

	untilArg := fmt.Sprintf("%dh", th.StoppedContainerAgeDays*24)
	if out, err := exec.Execute(ctx, "docker", "builder", "prune", "--filter", "until="+untilArg, "--force"); err != nil {
		result.fail("prune build cache", err)
	} else {
		reclaimed, _ := parsePruneOutput(string(out))
		result.BytesReclaimed += reclaimed
	}

	if out, err := exec.Execute(ctx, "docker", "container", "prune", "--force", "--filter", "until="+untilArg); err != nil {
		result.fail("prune stopped containers", err)
	} else {
		reclaimed, _ := parsePruneOutput(string(out))
		result.BytesReclaimed += reclaimed
	}

	return result
}

// UnusedImageCleanupRemote prunes non-dangling images older than the
// threshold over SSH.
func UnusedImageCleanupRemote(ctx context.Context, exec executor.Executor, th Thresholds) ExecResult {
	var result ExecResult
	if !th.PruneUnusedImages {
		return result
	}
	untilArg := fmt.Sprintf("%dh", th.UnusedImageAgeDays*24)
	out, err := exec.Execute(ctx, "docker", "image", "prune", "--all", "--force", "--filter", "until="+untilArg)
	if err != nil {
		result.fail("prune unused images", err)
		return result
	}
	reclaimed, _ := parsePruneOutput(string(out))
	result.BytesReclaimed += reclaimed
	return result
}

// RunProfileRemote is RunProfileLocal's SSH-path counterpart.
func RunProfileRemote(ctx context.Context, exec executor.Executor, p Profile, logSizeBytes uint64) ExecResult {
	th := ForProfile(p).WithLogSizeBytes(logSizeBytes)

	result := SafeCleanupRemote(ctx, exec, th)
	if th.PruneUnusedImages {
		unused := UnusedImageCleanupRemote(ctx, exec, th)
		result.BytesReclaimed += unused.BytesReclaimed
		result.Errors = append(result.Errors, unused.Errors...)
	}
	return result
}
