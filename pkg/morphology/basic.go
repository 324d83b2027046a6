// Package morphology computes per-object area and shape aggregates for a
// mask stack.
package morphology

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"maskstats/internal/models"
	"maskstats/pkg/spatial"
)

// Object holds the measurements of one non-empty mask
type Object struct {
	Index        int
	Area         int
	Eccentricity float64
}

// Measure returns one Object per non-empty mask, in stack order
func Measure(stack *models.MaskStack) []Object {
	var objects []Object
	if stack == nil {
		return objects
	}

	for i, m := range stack.Masks {
		area := m.Area()
		if area == 0 {
			continue
		}
		objects = append(objects, Object{
			Index:        i,
			Area:         area,
			Eccentricity: eccentricity(m, stack.Width),
		})
	}
	return objects
}

// BasicStats aggregates object count, area and eccentricity. Areas are
// reported in µm² when a pixel scale is given, px² otherwise.
func BasicStats(stack *models.MaskStack, pixelScale *float64) models.BasicStats {
	units := spatial.UnitsFor(pixelScale)
	result := models.BasicStats{Unit: units.AreaUnit}

	objects := Measure(stack)
	if len(objects) == 0 {
		return result
	}

	areas := make([]float64, len(objects))
	eccs := make([]float64, len(objects))
	for i, o := range objects {
		areas[i] = float64(o.Area) * units.Linear * units.Linear
		eccs[i] = o.Eccentricity
	}

	result.Count = len(objects)
	result.AreaMean, result.AreaStd = stat.PopMeanStdDev(areas, nil)
	result.EccentricityMean, result.EccentricityStd = stat.PopMeanStdDev(eccs, nil)
	return result
}

// eccentricity of the ellipse with the same second central moments as the
// mask: sqrt(1 - λmin/λmax). Degenerate footprints give 0.
func eccentricity(m models.Mask, width int) float64 {
	var rows, cols []float64
	for p, v := range m.Pix {
		if v != 0 {
			rows = append(rows, float64(p/width))
			cols = append(cols, float64(p%width))
		}
	}
	if len(rows) < 2 {
		return 0
	}

	cov := mat.NewSymDense(2, []float64{
		stat.PopVariance(rows, nil), popCovariance(rows, cols),
		popCovariance(rows, cols), stat.PopVariance(cols, nil),
	})

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, false); !ok {
		return 0
	}
	// Values are returned in ascending order
	vals := eig.Values(nil)
	lo, hi := vals[0], vals[1]
	if hi <= 0 {
		return 0
	}
	if lo < 0 {
		lo = 0
	}
	return math.Sqrt(1 - lo/hi)
}

func popCovariance(x, y []float64) float64 {
	n := float64(len(x))
	return stat.Covariance(x, y, nil) * (n - 1) / n
}
