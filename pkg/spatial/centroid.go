// Package spatial computes centroid positions, nearest-neighbour distances
// and local density statistics for segmented objects.
package spatial

import (
	"maskstats/internal/models"
)

// ExtractCentroids returns the centroid of every mask that has at least one
// foreground pixel, in stack order. Empty masks produce no centroid, so the
// result may be shorter than the stack.
func ExtractCentroids(stack *models.MaskStack) []models.Centroid {
	centroids := make([]models.Centroid, 0, stack.Len())
	if stack == nil {
		return centroids
	}

	for i, m := range stack.Masks {
		if c, ok := maskCentroid(m, stack.Width); ok {
			c.Index = i
			centroids = append(centroids, c)
		}
	}
	return centroids
}

// maskCentroid returns the mean foreground (row, col) of a single mask
func maskCentroid(m models.Mask, width int) (models.Centroid, bool) {
	if width <= 0 {
		return models.Centroid{}, false
	}

	var sumRow, sumCol float64
	n := 0
	for p, v := range m.Pix {
		if v == 0 {
			continue
		}
		sumRow += float64(p / width)
		sumCol += float64(p % width)
		n++
	}
	if n == 0 {
		return models.Centroid{}, false
	}

	return models.Centroid{
		Row: sumRow / float64(n),
		Col: sumCol / float64(n),
	}, true
}
