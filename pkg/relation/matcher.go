package relation

import (
	"fmt"

	"maskstats/internal/models"
	"maskstats/pkg/spatial"
)

// Match pairs every dependent object with the reference object that contains
// its centroid. The centroid is truncated to integer pixel coordinates
// before lookup. Dependent objects whose centroid lands on background or
// outside the map, or whose area is zero, produce no pair. Results follow
// dependent stack order.
//
// Stacks with different extents, or masks that do not cover their stack's
// extent, yield models.ErrShapeMismatch.
func Match(ref, dep *models.MaskStack) ([]models.MatchedPair, error) {
	if !ref.SameExtent(dep) {
		return nil, fmt.Errorf("reference %dx%d vs dependent %dx%d: %w",
			ref.Height, ref.Width, dep.Height, dep.Width, models.ErrShapeMismatch)
	}
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("reference stack: %w", err)
	}
	if err := dep.Validate(); err != nil {
		return nil, fmt.Errorf("dependent stack: %w", err)
	}

	pairs := []models.MatchedPair{}
	if ref.Len() == 0 || dep.Len() == 0 {
		return pairs, nil
	}

	labels := BuildLabelMap(ref)
	refAreas := make(map[int]int)

	for _, c := range spatial.ExtractCentroids(dep) {
		label, ok := labels.At(int(c.Row), int(c.Col))
		if !ok || label == 0 {
			continue
		}

		depArea := dep.Masks[c.Index].Area()
		if depArea == 0 {
			continue
		}

		refIdx := int(label) - 1
		refArea, seen := refAreas[refIdx]
		if !seen {
			refArea = ref.Masks[refIdx].Area()
			refAreas[refIdx] = refArea
		}

		pairs = append(pairs, models.MatchedPair{
			DependentIndex: c.Index,
			ReferenceIndex: refIdx,
			ReferenceArea:  refArea,
			DependentArea:  depArea,
			Ratio:          float64(refArea) / float64(depArea),
		})
	}
	return pairs, nil
}
