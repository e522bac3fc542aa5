// Package pkgmanager implements the package-manager abstraction (spec.md
// C3): detecting which OS package manager is present on a host and
// producing/parsing its check-update output in a uniform model.
//
// Grounded on original_source/updatectl/src/checkers/{mod,dnf}.rs and
// original_source/updatemon/src/checkers/{apt,pacman}.rs. Implemented as a
// small closed interface with three concrete implementers, per spec.md §9's
// guidance to avoid boxed trait objects for a closed set.
//
// CheckUpdates does not refresh apt's package metadata before running
// "apt list --upgradable", so its apt results reflect whatever metadata the
// host last fetched and can be stale.
package pkgmanager

import (
	"context"
	"strings"
	"time"

	"github.com/fleetops/updatectl/pkg/executor"
	"github.com/fleetops/updatectl/pkg/log"
)

// Checker is implemented by each supported package manager.
type Checker interface {
	// Binary is the absolute path probed for detection (spec.md §3:
	// detection probes /usr/bin/<binary>).
	Binary() string
	// DisplayName is the human-readable name used in reports.
	DisplayName() string
	// CheckCommand returns the command+args whose output ParseUpdates can
	// parse.
	CheckCommand() (string, []string)
	// ParseUpdates extracts the list of upgradable package names from the
	// check command's stdout.
	ParseUpdates(output string) []string
	// UpgradeSteps returns the ordered commands that perform the actual
	// upgrade transaction (spec.md §4.2). Apt requires a metadata refresh
	// step ahead of the upgrade step; Dnf and Pacman are single-step.
	UpgradeSteps() []UpgradeStep
	// CleanSteps returns the ordered commands for the `clean-os` subcommand
	// (spec.md §6): cache clears the downloaded-package cache, autoremove
	// drops orphaned dependencies. Either, both, or neither may be
	// requested; a manager with nothing to do for a given flag omits the
	// corresponding step.
	CleanSteps(cache, autoremove bool) []UpgradeStep
}

// UpgradeStep is one command in an upgrade transaction.
type UpgradeStep struct {
	Bin   string
	Args  []string
	Sudo  bool
	Env   map[string]string
}

// All returns the supported package managers in detection order.
func All() []Checker {
	return []Checker{AptChecker{}, DnfChecker{}, PacmanChecker{}}
}

// Detect probes each candidate in declared order via `test -x <binary>`
// under a minimal shell, returning the first whose binary exists as
// executable (spec.md §3/§4.2).
func Detect(ctx context.Context, exec executor.Executor) (Checker, error) {
	for _, c := range All() {
		out, err := exec.Execute(ctx, "sh", "-c", "test -x "+c.Binary()+" && echo found")
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(out)) == "found" {
			return c, nil
		}
	}
	return nil, errNoPackageManager
}

var errNoPackageManager = &NoPackageManagerError{}

// NoPackageManagerError is returned when none of the supported package
// managers could be detected on a host.
type NoPackageManagerError struct{}

func (*NoPackageManagerError) Error() string {
	return "pkgmanager: no supported package manager detected"
}

// AptChecker implements Checker for Debian/Ubuntu's apt.
type AptChecker struct{}

func (AptChecker) Binary() string      { return "/usr/bin/apt" }
func (AptChecker) DisplayName() string { return "APT (Debian/Ubuntu)" }

func (AptChecker) CheckCommand() (string, []string) {
	return "apt", []string{"list", "--upgradable"}
}

// ParseUpdates skips the "Listing..." header line, keeps lines containing
// "[upgradable from:", takes the package name as the text before the first
// '/', and appends " (security)" when the repository component names the
// security pocket. Ported from
// original_source/updatemon/src/checkers/apt.rs.
func (AptChecker) ParseUpdates(output string) []string {
	var updates []string
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if i == 0 {
			continue // "Listing..." header
		}
		if !strings.Contains(line, "[upgradable from:") {
			continue
		}
		idx := strings.Index(line, "/")
		if idx < 0 {
			continue
		}
		name := line[:idx]
		if strings.Contains(line, "-security") {
			name += " (security)"
		}
		updates = append(updates, name)
	}
	return updates
}

// UpgradeSteps runs a quiet metadata refresh followed by a non-interactive
// full-upgrade, per spec.md §4.2 (the distillation preserves "full-upgrade",
// not the plain "upgrade" subcommand used in the original Rust source).
func (AptChecker) UpgradeSteps() []UpgradeStep {
	noninteractive := map[string]string{"DEBIAN_FRONTEND": "noninteractive"}
	return []UpgradeStep{
		{Bin: "apt-get", Args: []string{"update", "-qq"}, Sudo: true},
		{Bin: "apt-get", Args: []string{"full-upgrade", "-y"}, Sudo: true, Env: noninteractive},
	}
}

// CleanSteps runs "apt-get clean" and/or "apt-get autoremove -y" as
// requested.
func (AptChecker) CleanSteps(cache, autoremove bool) []UpgradeStep {
	var steps []UpgradeStep
	if cache {
		steps = append(steps, UpgradeStep{Bin: "apt-get", Args: []string{"clean"}, Sudo: true})
	}
	if autoremove {
		noninteractive := map[string]string{"DEBIAN_FRONTEND": "noninteractive"}
		steps = append(steps, UpgradeStep{Bin: "apt-get", Args: []string{"autoremove", "-y"}, Sudo: true, Env: noninteractive})
	}
	return steps
}

// DnfChecker implements Checker for Fedora/RHEL's dnf.
type DnfChecker struct{}

func (DnfChecker) Binary() string      { return "/usr/bin/dnf" }
func (DnfChecker) DisplayName() string { return "DNF (Fedora/RHEL)" }

func (DnfChecker) CheckCommand() (string, []string) {
	return "/usr/bin/dnf", []string{"check-update", "--quiet", "--cacheonly"}
}

// ParseUpdates drops blank lines and comment lines, keeps lines with at
// least three whitespace-separated fields, and strips the dot-arch suffix
// from the package name. Ported from
// original_source/updatectl/src/checkers/dnf.rs.
func (DnfChecker) ParseUpdates(output string) []string {
	var updates []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		name := fields[0]
		if idx := strings.Index(name, "."); idx >= 0 {
			name = name[:idx]
		}
		updates = append(updates, name)
	}
	return updates
}

func (DnfChecker) UpgradeSteps() []UpgradeStep {
	return []UpgradeStep{{Bin: "dnf", Args: []string{"upgrade", "-y"}, Sudo: true}}
}

// CleanSteps runs "dnf clean all" and/or "dnf autoremove -y" as requested.
func (DnfChecker) CleanSteps(cache, autoremove bool) []UpgradeStep {
	var steps []UpgradeStep
	if cache {
		steps = append(steps, UpgradeStep{Bin: "dnf", Args: []string{"clean", "all"}, Sudo: true})
	}
	if autoremove {
		steps = append(steps, UpgradeStep{Bin: "dnf", Args: []string{"autoremove", "-y"}, Sudo: true})
	}
	return steps
}

// PacmanChecker implements Checker for Arch's pacman.
type PacmanChecker struct{}

func (PacmanChecker) Binary() string      { return "/usr/bin/checkupdates" }
func (PacmanChecker) DisplayName() string { return "Pacman (Arch)" }

func (PacmanChecker) CheckCommand() (string, []string) {
	return "/usr/bin/checkupdates", nil
}

// ParseUpdates takes the first whitespace-separated token of each non-blank
// line. Ported from original_source/updatemon/src/checkers/pacman.rs.
func (PacmanChecker) ParseUpdates(output string) []string {
	var updates []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		updates = append(updates, fields[0])
	}
	return updates
}

func (PacmanChecker) UpgradeSteps() []UpgradeStep {
	return []UpgradeStep{{Bin: "pacman", Args: []string{"-Syu", "--noconfirm"}, Sudo: true}}
}

// CleanSteps runs "pacman -Sc" and/or removes orphaned dependencies.
// Orphan removal needs a subshell to expand "pacman -Qtdq"'s package list
// into -Rns's arguments, so that one step is routed through "sh -c" rather
// than the no-shell single-command form the other steps use.
func (PacmanChecker) CleanSteps(cache, autoremove bool) []UpgradeStep {
	var steps []UpgradeStep
	if cache {
		steps = append(steps, UpgradeStep{Bin: "pacman", Args: []string{"-Sc", "--noconfirm"}, Sudo: true})
	}
	if autoremove {
		steps = append(steps, UpgradeStep{
			Bin:  "sh",
			Args: []string{"-c", "pacman -Qtdq | xargs -r pacman -Rns --noconfirm"},
			Sudo: true,
		})
	}
	return steps
}

// DnfMakecacheCommand returns the background cache-refresh command run
// after a DNF check-update (spec.md §4.2).
func DnfMakecacheCommand() (string, []string) {
	return "/usr/bin/dnf", []string{"makecache", "--quiet"}
}

// CheckUpdates runs the detected checker's check command and parses its
// output. When the detected checker is DNF, it also launches a
// fire-and-forget "dnf makecache --quiet" on its own background context, so
// that the next check on this server sees fresh metadata — this background
// refresh must never block or fail the foreground call (spec.md §4.2/§9).
func CheckUpdates(ctx context.Context, exec executor.Executor) (Checker, []string, error) {
	checker, err := Detect(ctx, exec)
	if err != nil {
		return nil, nil, err
	}

	bin, args := checker.CheckCommand()
	out, err := exec.Execute(ctx, bin, args...)
	if err != nil {
		return checker, nil, err
	}
	updates := checker.ParseUpdates(string(out))

	if IsDnf(checker) {
		go refreshDnfCache(exec)
	}

	return checker, updates, nil
}

func refreshDnfCache(exec executor.Executor) {
	bgCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	bin, args := DnfMakecacheCommand()
	if _, err := exec.Execute(bgCtx, bin, args...); err != nil {
		log.WithComponent("pkgmanager").Debug().Err(err).Msg("background dnf makecache failed")
	}
}

// IsDnf reports whether a checker is the DNF implementation, used by
// callers deciding whether to schedule the background cache refresh.
func IsDnf(c Checker) bool {
	_, ok := c.(DnfChecker)
	return ok
}
