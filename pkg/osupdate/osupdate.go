// Package osupdate implements the OS updater (spec.md C4): driving an
// upgrade transaction through the detected package manager and verifying
// post-upgrade state.
//
// Grounded on original_source/updatectl/src/updater.rs::update_os, with the
// apt upgrade step corrected to "full-upgrade" per spec.md §4.2 (the source
// uses plain "upgrade") and the post-upgrade re-check added per spec.md
// §4.2 (not present in the source read).
package osupdate

import (
	"context"
	"fmt"
	"sort"

	"github.com/fleetops/updatectl/pkg/executor"
	"github.com/fleetops/updatectl/pkg/pkgmanager"
)

// resolveStep flattens a package-manager upgrade step's sudo/env
// requirements into a plain bin+args invocation (no shell), using the real
// "env" and "sudo" binaries so the no-shell local executor and the
// single-command-line SSH executor both work unchanged.
func resolveStep(step pkgmanager.UpgradeStep) (string, []string) {
	bin, args := step.Bin, step.Args

	if len(step.Env) > 0 {
		keys := make([]string, 0, len(step.Env))
		for k := range step.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		envArgs := make([]string, 0, len(keys)+1+len(args))
		for _, k := range keys {
			envArgs = append(envArgs, fmt.Sprintf("%s=%s", k, step.Env[k]))
		}
		envArgs = append(envArgs, bin)
		envArgs = append(envArgs, args...)
		bin, args = "env", envArgs
	}

	if step.Sudo {
		args = append([]string{bin}, args...)
		bin = "sudo"
	}

	return bin, args
}

// Update detects the package manager, then drives its upgrade command
// (dry-run short-circuits without mutating), then re-runs the checker to
// verify post-state, per spec.md §4.2.
func Update(ctx context.Context, exec executor.Executor, dryRun bool) (string, error) {
	checker, updates, err := pkgmanager.CheckUpdates(ctx, exec)
	if err != nil {
		return "", fmt.Errorf("osupdate: detect/check: %w", err)
	}

	if dryRun {
		if len(updates) == 0 {
			return "No updates available", nil
		}
		return fmt.Sprintf("Would update %d packages", len(updates)), nil
	}

	if len(updates) == 0 {
		return "Already up to date", nil
	}

	for _, step := range checker.UpgradeSteps() {
		bin, args := resolveStep(step)
		if _, err := exec.Execute(ctx, bin, args...); err != nil {
			return "", fmt.Errorf("osupdate: upgrade: %w", err)
		}
	}

	// Verify post-state: re-run the checker (spec.md §4.2).
	_, remaining, err := pkgmanager.CheckUpdates(ctx, exec)
	if err != nil {
		// The upgrade ran; a failed verification pass is reported but does
		// not undo the upgrade result.
		return fmt.Sprintf("%d packages upgraded (post-check failed: %v)", len(updates), err), nil
	}
	if len(remaining) == 0 {
		return fmt.Sprintf("%d packages upgraded, now up to date", len(updates)), nil
	}
	return fmt.Sprintf("%d packages upgraded, %d updates still available (may require reboot or manual intervention)", len(updates), len(remaining)), nil
}

// Clean drives the `clean-os` subcommand (spec.md §6): detects the package
// manager, then runs its cache/autoremove steps. When execute is false, the
// steps are only described, never run, mirroring Update's dryRun contract.
func Clean(ctx context.Context, exec executor.Executor, cache, autoremove, execute bool) (string, error) {
	checker, err := pkgmanager.Detect(ctx, exec)
	if err != nil {
		return "", fmt.Errorf("osupdate: detect: %w", err)
	}

	steps := checker.CleanSteps(cache, autoremove)
	if len(steps) == 0 {
		return "Nothing to clean (pass --cache and/or --autoremove)", nil
	}

	if !execute {
		return fmt.Sprintf("Would run %d cleanup step(s) via %s", len(steps), checker.DisplayName()), nil
	}

	for _, step := range steps {
		bin, args := resolveStep(step)
		if _, err := exec.Execute(ctx, bin, args...); err != nil {
			return "", fmt.Errorf("osupdate: clean: %w", err)
		}
	}
	return fmt.Sprintf("Ran %d cleanup step(s) via %s", len(steps), checker.DisplayName()), nil
}
