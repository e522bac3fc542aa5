package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeLayersSharedAndUnique(t *testing.T) {
	images := []imageLayers{
		{ID: "img1", Size: 100, LayerIDs: []string{"base", "app1"}},
		{ID: "img2", Size: 100, LayerIDs: []string{"base", "app2"}},
	}

	result := AnalyzeLayers(images)

	assert.Len(t, result.SharedLayers, 1)
	assert.Equal(t, "base", result.SharedLayers[0].LayerID)
	assert.Equal(t, uint64(50), result.SharedLayers[0].ApproxSize)
	assert.ElementsMatch(t, []string{"img1", "img2"}, result.SharedLayers[0].ImagesUsing)
	assert.Equal(t, uint64(50), result.TotalSharedBytes)
	assert.Equal(t, uint64(100), result.TotalUniqueBytes) // app1 (50) + app2 (50)

	// theoretical = 200, actual = 50+100 = 150, efficiency = (1-150/200)*100 = 25
	assert.InDelta(t, 25.0, result.EfficiencyPercent, 0.001)
}

func TestAnalyzeLayersNoSharingIsZeroEfficiency(t *testing.T) {
	images := []imageLayers{
		{ID: "img1", Size: 100, LayerIDs: []string{"a"}},
		{ID: "img2", Size: 100, LayerIDs: []string{"b"}},
	}
	result := AnalyzeLayers(images)
	assert.Empty(t, result.SharedLayers)
	assert.InDelta(t, 0.0, result.EfficiencyPercent, 0.001)
}

func TestAnalyzeLayersEmptyInput(t *testing.T) {
	result := AnalyzeLayers(nil)
	assert.Equal(t, 0.0, result.EfficiencyPercent)
	assert.Empty(t, result.SharedLayers)
}

func TestAnalyzeLayersSortedBySizeThenShareCount(t *testing.T) {
	images := []imageLayers{
		{ID: "a", Size: 300, LayerIDs: []string{"small", "big"}},
		{ID: "b", Size: 300, LayerIDs: []string{"small", "big"}},
		{ID: "c", Size: 300, LayerIDs: []string{"small"}},
	}
	result := AnalyzeLayers(images)
	// "big": used by a,b -> size 150 each sample contributes once (approx per image)
	// "small": used by a,b,c
	if assert.Len(t, result.SharedLayers, 2) {
		assert.GreaterOrEqual(t, result.SharedLayers[0].ApproxSize, result.SharedLayers[1].ApproxSize)
	}
}
