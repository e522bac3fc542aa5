package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDanglingTagSet(t *testing.T) {
	assert.True(t, isDanglingTagSet(nil))
	assert.True(t, isDanglingTagSet([]string{"<none>:<none>"}))
	assert.False(t, isDanglingTagSet([]string{"nginx:latest"}))
}

func TestFirstOrEmpty(t *testing.T) {
	assert.Equal(t, "web", firstOrEmpty([]string{"web", "other"}))
	assert.Equal(t, "", firstOrEmpty(nil))
}

func TestClampNonNegative(t *testing.T) {
	assert.Equal(t, uint64(5), clampNonNegative(5))
	assert.Equal(t, uint64(0), clampNonNegative(-5))
}

func TestRecomputeTotalReclaimable(t *testing.T) {
	report := CleanupReport{
		DanglingImages:    ImageStats{TotalSize: 10},
		BuildCache:        BuildCacheStats{ReclaimableSize: 20},
		StoppedContainers: ContainerStats{TotalSize: 30},
		UnusedImages:      ImageStats{TotalSize: 1000}, // must not count
	}
	report.recomputeTotalReclaimable()
	assert.Equal(t, uint64(60), report.TotalReclaimable)
}
