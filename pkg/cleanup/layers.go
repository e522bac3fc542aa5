package cleanup

import "sort"

// imageLayers is the minimal input AnalyzeLayers needs per image: its total
// size and the list of layer ids making it up. Local and remote analyzers
// each assemble this slice their own way (Engine RootFS.Layers vs. `docker
// inspect --format '{{json .RootFS.Layers}}'`).
type imageLayers struct {
	ID       string
	Size     uint64
	LayerIDs []string
}

type layerAccum struct {
	approxSize uint64
	images     []string
}

// AnalyzeLayers implements spec.md §4.4's layer-sharing report: approximate
// per-layer size is image.size / len(layers), layers used by >= 2 images are
// "shared", and efficiency is 1 - (shared+unique)/sum(image.size) clamped to
// >= 0 (the Rust layers.rs source does not clamp this; spec.md §3/§4.4
// requires it, so the clamp is a corrected defect, not a new behavior).
func AnalyzeLayers(images []imageLayers) LayerAnalysis {
	accum := make(map[string]*layerAccum)
	var theoretical uint64

	for _, img := range images {
		theoretical += img.Size
		if len(img.LayerIDs) == 0 {
			continue
		}
		approx := img.Size / uint64(len(img.LayerIDs))
		for _, layerID := range img.LayerIDs {
			a, ok := accum[layerID]
			if !ok {
				a = &layerAccum{approxSize: approx}
				accum[layerID] = a
			}
			a.images = append(a.images, img.ID)
		}
	}

	var shared []SharedLayer
	var totalShared, totalUnique uint64
	for layerID, a := range accum {
		if len(a.images) >= 2 {
			shared = append(shared, SharedLayer{LayerID: layerID, ApproxSize: a.approxSize, ImagesUsing: a.images})
			totalShared += a.approxSize
		} else {
			totalUnique += a.approxSize
		}
	}

	sort.Slice(shared, func(i, j int) bool {
		if shared[i].ApproxSize != shared[j].ApproxSize {
			return shared[i].ApproxSize > shared[j].ApproxSize
		}
		return len(shared[i].ImagesUsing) > len(shared[j].ImagesUsing)
	})

	efficiency := 0.0
	if theoretical > 0 {
		actual := float64(totalShared + totalUnique)
		efficiency = (1 - actual/float64(theoretical)) * 100
		if efficiency < 0 {
			efficiency = 0
		}
	}

	return LayerAnalysis{
		SharedLayers:      shared,
		TotalSharedBytes:  totalShared,
		TotalUniqueBytes:  totalUnique,
		EfficiencyPercent: efficiency,
	}
}
