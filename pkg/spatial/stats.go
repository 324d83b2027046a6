package spatial

import (
	"gonum.org/v1/gonum/stat"

	"maskstats/internal/models"
)

// NeighborRadiusPx is the search radius for neighbour counting. It is always
// applied in raw pixel space, even when a physical pixel scale is given and
// distances are reported in physical units.
const NeighborRadiusPx = 100.0

const (
	// physicalAreaDivisor converts µm² to mm²
	physicalAreaDivisor = 1_000_000.0

	// pixelAreaDivisor expresses pixel density per 10,000 px²
	pixelAreaDivisor = 10_000.0
)

// Units describes how pixel measurements are converted for reporting
type Units struct {
	// Linear multiplies pixel distances
	Linear float64

	// AreaDivisor turns a raw (possibly scaled) image area into the area
	// density is reported against
	AreaDivisor float64

	DistUnit    string
	DensityUnit string
	AreaUnit    string
}

// UnitsFor selects the unit system. A nil scale keeps pixel-native units.
func UnitsFor(pixelScale *float64) Units {
	if pixelScale == nil {
		return Units{
			Linear:      1,
			AreaDivisor: pixelAreaDivisor,
			DistUnit:    "px",
			DensityUnit: "objects/10k px²",
			AreaUnit:    "px²",
		}
	}
	return Units{
		Linear:      *pixelScale,
		AreaDivisor: physicalAreaDivisor,
		DistUnit:    "µm",
		DensityUnit: "objects/mm²",
		AreaUnit:    "µm²",
	}
}

// ImageArea returns the normalized area of an extent in the density unit's
// denominator
func (u Units) ImageArea(height, width int) float64 {
	raw := float64(height) * float64(width) * u.Linear * u.Linear
	return raw / u.AreaDivisor
}

// ComputeStats derives nearest-neighbour, neighbour-count and density
// statistics for a stack. Degenerate input (no stack, empty stack, a single
// object, zero image area) yields a zero-valued record rather than an error.
func ComputeStats(stack *models.MaskStack, pixelScale *float64) models.SpatialStats {
	result, _ := ComputeStatsWithDistances(stack, pixelScale)
	return result
}

// ComputeStatsWithDistances is ComputeStats that also returns the
// unit-converted nearest-neighbour distance of every object, nil when fewer
// than two objects exist.
func ComputeStatsWithDistances(stack *models.MaskStack, pixelScale *float64) (models.SpatialStats, []float64) {
	units := UnitsFor(pixelScale)
	result := models.SpatialStats{
		DistUnit:    units.DistUnit,
		DensityUnit: units.DensityUnit,
	}

	centroids := ExtractCentroids(stack)
	n := len(centroids)
	result.Count = n

	if stack != nil {
		if area := units.ImageArea(stack.Height, stack.Width); area > 0 {
			result.Density = float64(n) / area
		}
	}

	if n < 2 {
		return result, nil
	}

	index, err := NewIndex(centroids)
	if err != nil {
		return result, nil
	}

	nnd, err := index.NearestDistances()
	if err != nil {
		return result, nil
	}
	for i := range nnd {
		nnd[i] *= units.Linear
	}
	result.AvgNND, result.StdNND = stat.PopMeanStdDev(nnd, nil)

	counts := index.CountWithinRadius(NeighborRadiusPx)
	fc := make([]float64, len(counts))
	for i, c := range counts {
		fc[i] = float64(c)
	}
	result.AvgNeighborCount, result.StdNeighborCount = stat.PopMeanStdDev(fc, nil)

	return result, nnd
}
