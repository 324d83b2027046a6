package relation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maskstats/internal/models"
)

// rectMask fills rows [r0, r1) and columns [c0, c1)
func rectMask(height, width, r0, c0, r1, c1 int) models.Mask {
	pix := make([]uint8, height*width)
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			pix[r*width+c] = 255
		}
	}
	return models.Mask{Pix: pix}
}

func mustStack(t *testing.T, height, width int, masks ...models.Mask) *models.MaskStack {
	t.Helper()
	s, err := models.NewMaskStack(height, width, masks)
	require.NoError(t, err)
	return s
}

func TestBuildLabelMap(t *testing.T) {
	ref := mustStack(t, 4, 4,
		rectMask(4, 4, 0, 0, 2, 2),
		rectMask(4, 4, 2, 2, 4, 4),
	)

	lm := BuildLabelMap(ref)
	want := []int32{
		1, 1, 0, 0,
		1, 1, 0, 0,
		0, 0, 2, 2,
		0, 0, 2, 2,
	}
	if diff := cmp.Diff(want, lm.Labels); diff != "" {
		t.Errorf("label map mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildLabelMapLastWriteWins(t *testing.T) {
	ref := mustStack(t, 3, 3,
		rectMask(3, 3, 0, 0, 3, 3),
		rectMask(3, 3, 1, 1, 2, 2),
	)

	lm := BuildLabelMap(ref)
	v, ok := lm.At(1, 1)
	require.True(t, ok)
	assert.Equal(t, int32(2), v)

	v, _ = lm.At(0, 0)
	assert.Equal(t, int32(1), v)

	_, ok = lm.At(3, 0)
	assert.False(t, ok)
}

func TestMatchCentroidInsideReference(t *testing.T) {
	const h, w = 40, 40
	cells := mustStack(t, h, w,
		rectMask(h, w, 0, 0, 10, 10),   // area 100
		rectMask(h, w, 20, 20, 40, 40), // area 400
	)
	nuclei := mustStack(t, h, w,
		rectMask(h, w, 28, 28, 32, 32), // centroid (29.5, 29.5) inside cell 1
	)

	pairs, err := Match(cells, nuclei)
	require.NoError(t, err)

	want := []models.MatchedPair{{
		DependentIndex: 0,
		ReferenceIndex: 1,
		ReferenceArea:  400,
		DependentArea:  16,
		Ratio:          25,
	}}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Errorf("pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchCentroidOnBackground(t *testing.T) {
	const h, w = 40, 40
	cells := mustStack(t, h, w, rectMask(h, w, 0, 0, 10, 10))
	nuclei := mustStack(t, h, w, rectMask(h, w, 15, 15, 18, 18))

	pairs, err := Match(cells, nuclei)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestMatchManyToOne(t *testing.T) {
	const h, w = 30, 30
	cells := mustStack(t, h, w, rectMask(h, w, 0, 0, 30, 15))
	nuclei := mustStack(t, h, w,
		rectMask(h, w, 2, 2, 4, 4),
		models.Mask{Pix: make([]uint8, h*w)},
		rectMask(h, w, 20, 5, 25, 10),
		rectMask(h, w, 20, 20, 25, 25),
	)

	pairs, err := Match(cells, nuclei)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, 0, pairs[0].DependentIndex)
	assert.Equal(t, 2, pairs[1].DependentIndex)
	for _, p := range pairs {
		assert.Equal(t, 0, p.ReferenceIndex)
		assert.Equal(t, 450, p.ReferenceArea)
	}
	assert.InDelta(t, 450.0/4.0, pairs[0].Ratio, 1e-12)
	assert.InDelta(t, 450.0/25.0, pairs[1].Ratio, 1e-12)
}

func TestMatchTruncatesCentroid(t *testing.T) {
	// Dependent centroid at (0.5, 0.5) truncates to (0, 0)
	const h, w = 4, 4
	cells := mustStack(t, h, w, rectMask(h, w, 0, 0, 1, 1))
	nuclei := mustStack(t, h, w, rectMask(h, w, 0, 0, 2, 2))

	pairs, err := Match(cells, nuclei)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.InDelta(t, 0.25, pairs[0].Ratio, 1e-12)
}

func TestMatchShapeMismatch(t *testing.T) {
	cells := mustStack(t, 10, 10, rectMask(10, 10, 0, 0, 5, 5))
	nuclei := mustStack(t, 10, 12, rectMask(10, 12, 0, 0, 2, 2))

	pairs, err := Match(cells, nuclei)
	assert.True(t, errors.Is(err, models.ErrShapeMismatch))
	assert.Nil(t, pairs)

	_, _, err = Analyze(cells, nuclei)
	assert.ErrorIs(t, err, models.ErrShapeMismatch)
}

func TestMatchRejectsMasksOutsideExtent(t *testing.T) {
	cells := mustStack(t, 4, 4, rectMask(4, 4, 0, 0, 2, 2))
	long := &models.MaskStack{
		Height: 4,
		Width:  4,
		Masks:  []models.Mask{{Pix: make([]uint8, 20)}},
	}
	long.Masks[0].Pix[18] = 1

	for name, tc := range map[string]struct{ ref, dep *models.MaskStack }{
		"reference": {long, cells},
		"dependent": {cells, long},
	} {
		t.Run(name, func(t *testing.T) {
			pairs, err := Match(tc.ref, tc.dep)
			assert.ErrorIs(t, err, models.ErrShapeMismatch)
			assert.Nil(t, pairs)
		})
	}

	lm := BuildLabelMap(long)
	assert.Len(t, lm.Labels, 16)
	for _, l := range lm.Labels {
		assert.Zero(t, l)
	}
}

func TestMatchEmptyStacks(t *testing.T) {
	cells := mustStack(t, 10, 10, rectMask(10, 10, 0, 0, 5, 5))

	for name, tc := range map[string]struct{ ref, dep *models.MaskStack }{
		"nil dependent":   {cells, nil},
		"nil reference":   {nil, cells},
		"blank dependent": {cells, &models.MaskStack{}},
		"empty same size": {cells, mustStack(t, 10, 10)},
	} {
		t.Run(name, func(t *testing.T) {
			pairs, err := Match(tc.ref, tc.dep)
			require.NoError(t, err)
			assert.Empty(t, pairs)
		})
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize([]models.MatchedPair{{Ratio: 2}, {Ratio: 4}})
	assert.Equal(t, models.RelationalStats{MatchedPairs: 2, AvgRatio: 3, StdRatio: 1}, got)

	assert.Equal(t, models.RelationalStats{}, Summarize(nil))
}

func TestAnalyzeIdempotent(t *testing.T) {
	const h, w = 50, 50
	cells := mustStack(t, h, w,
		rectMask(h, w, 0, 0, 25, 25),
		rectMask(h, w, 25, 25, 50, 50),
	)
	nuclei := mustStack(t, h, w,
		rectMask(h, w, 5, 5, 10, 12),
		rectMask(h, w, 30, 30, 33, 33),
		rectMask(h, w, 40, 2, 45, 7),
	)

	first, firstPairs, err := Analyze(cells, nuclei)
	require.NoError(t, err)
	assert.Equal(t, 2, first.MatchedPairs)

	for i := 0; i < 3; i++ {
		again, pairs, err := Analyze(cells, nuclei)
		require.NoError(t, err)
		assert.Equal(t, first, again)
		assert.Empty(t, cmp.Diff(firstPairs, pairs))
	}
}
