package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForProfileConservative(t *testing.T) {
	th := ForProfile(Conservative)
	assert.Equal(t, 30, th.StoppedContainerAgeDays)
	assert.False(t, th.PruneUnusedImages)
}

func TestForProfileModerate(t *testing.T) {
	th := ForProfile(Moderate)
	assert.Equal(t, 7, th.StoppedContainerAgeDays)
	assert.Equal(t, 90, th.UnusedImageAgeDays)
	assert.True(t, th.PruneUnusedImages)
}

func TestForProfileAggressive(t *testing.T) {
	th := ForProfile(Aggressive)
	assert.Equal(t, 0, th.StoppedContainerAgeDays)
	assert.Equal(t, 30, th.UnusedImageAgeDays)
	assert.True(t, th.PruneUnusedImages)
}

func TestWithLogSizeBytes(t *testing.T) {
	th := ForProfile(Moderate).WithLogSizeBytes(1024)
	assert.Equal(t, uint64(1024), th.LogSizeBytes)
}
