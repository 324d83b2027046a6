package spatial

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"maskstats/internal/models"
)

// ErrTooFewPoints is returned when a query needs more points than the index
// holds
var ErrTooFewPoints = errors.New("too few points")

// Index answers nearest-neighbour and fixed-radius queries over a set of
// centroids using a KD-tree built once at construction
type Index struct {
	// pts keeps the caller's order; the tree reorders its own copy
	pts  []point
	tree *kdtree.Tree
}

// NewIndex builds a KD-tree over the given centroids. At least one centroid
// is required.
func NewIndex(centroids []models.Centroid) (*Index, error) {
	if len(centroids) == 0 {
		return nil, ErrTooFewPoints
	}

	pts := make([]point, len(centroids))
	for i, c := range centroids {
		pts[i] = point{Row: c.Row, Col: c.Col, id: i}
	}

	treePts := make(points, len(pts))
	copy(treePts, pts)

	return &Index{
		pts:  pts,
		tree: kdtree.New(treePts, true),
	}, nil
}

// Len returns the number of indexed points
func (ix *Index) Len() int { return len(ix.pts) }

// NearestDistances returns, for every point, the Euclidean distance to its
// closest other point. Coincident points are distinct neighbours at
// distance 0.
func (ix *Index) NearestDistances() ([]float64, error) {
	if len(ix.pts) < 2 {
		return nil, ErrTooFewPoints
	}

	dists := make([]float64, len(ix.pts))
	for i, p := range ix.pts {
		// Two slots: the point itself plus its nearest neighbour
		keeper := kdtree.NewNKeeper(2)
		ix.tree.NearestSet(keeper, p)

		best := math.Inf(1)
		for _, item := range keeper.Heap {
			if item.Comparable == nil {
				continue
			}
			if item.Comparable.(point).id == p.id {
				continue
			}
			if item.Dist < best {
				best = item.Dist
			}
		}
		dists[i] = math.Sqrt(best)
	}
	return dists, nil
}

// CountWithinRadius returns, for every point, how many other points lie at
// Euclidean distance <= r
func (ix *Index) CountWithinRadius(r float64) []int {
	counts := make([]int, len(ix.pts))
	if len(ix.pts) < 2 || r < 0 {
		return counts
	}

	for i, p := range ix.pts {
		keeper := kdtree.NewDistKeeper(r * r)
		ix.tree.NearestSet(keeper, p)

		n := 0
		for _, item := range keeper.Heap {
			if item.Comparable == nil {
				continue
			}
			if item.Comparable.(point).id == p.id {
				continue
			}
			n++
		}
		counts[i] = n
	}
	return counts
}
