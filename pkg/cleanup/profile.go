package cleanup

import "math"

// Profile is the three-tier aggressiveness sum type (spec.md §3).
type Profile string

const (
	Conservative Profile = "conservative"
	Moderate     Profile = "moderate"
	Aggressive   Profile = "aggressive"
)

// Thresholds is the required-redesign replacement (spec.md §9) for the
// original mutate-env/run/restore pattern: every analyzer and executor takes
// this as an explicit parameter instead of reading process environment
// mid-operation.
type Thresholds struct {
	StoppedContainerAgeDays int
	UnusedImageAgeDays      int
	PruneUnusedImages       bool
	LogSizeBytes            uint64
}

// ForProfile resolves a CleanupProfile to its two thresholds and prune
// flag (spec.md §3): stopped-container age 30/7/0 days, unused-image age
// +inf (math.MaxInt32)/90/30 days, prune-unused-images false/true/true. LogSizeBytes is
// carried from configuration, not the profile, and filled in by the caller.
func ForProfile(p Profile) Thresholds {
	switch p {
	case Aggressive:
		return Thresholds{StoppedContainerAgeDays: 0, UnusedImageAgeDays: 30, PruneUnusedImages: true}
	case Moderate:
		return Thresholds{StoppedContainerAgeDays: 7, UnusedImageAgeDays: 90, PruneUnusedImages: true}
	default:
		return Thresholds{StoppedContainerAgeDays: 30, UnusedImageAgeDays: math.MaxInt32, PruneUnusedImages: false}
	}
}

// WithLogSizeBytes returns a copy of th with LogSizeBytes set, for chaining
// onto ForProfile's result at the call site.
func (th Thresholds) WithLogSizeBytes(n uint64) Thresholds {
	th.LogSizeBytes = n
	return th
}
