// Package relation correlates two mask stacks, such as cells and their
// nuclei, by testing whether each dependent object's centroid falls inside a
// reference object.
package relation

import (
	"maskstats/internal/models"
)

// BuildLabelMap rasterizes a reference stack into one label map. Pixel values
// are 1-based stack positions; 0 is background.
//
// Reference objects are expected to be disjoint. Where they overlap, the
// later object in the stack wins. Pixels beyond the stack extent are
// ignored.
func BuildLabelMap(ref *models.MaskStack) *models.LabelMap {
	if ref == nil {
		return &models.LabelMap{}
	}

	lm := &models.LabelMap{
		Height: ref.Height,
		Width:  ref.Width,
		Labels: make([]int32, ref.Height*ref.Width),
	}
	for i, m := range ref.Masks {
		label := int32(i + 1)
		for p, v := range m.Pix {
			if v != 0 && p < len(lm.Labels) {
				lm.Labels[p] = label
			}
		}
	}
	return lm
}
