// Package analysis runs the full statistics pass over a cell stack and an
// optional nucleus stack.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"maskstats/internal/logging"
	"maskstats/internal/models"
	"maskstats/pkg/maskio"
	"maskstats/pkg/morphology"
	"maskstats/pkg/relation"
	"maskstats/pkg/spatial"
)

// Params holds the inputs of one analysis pass
type Params struct {
	// CellFile is the reference mask source. Empty skips cell statistics.
	CellFile string

	// NucleiFile is the dependent mask source. Empty skips nucleus and
	// relationship statistics.
	NucleiFile string

	// PixelSize is the physical pixel edge in µm; nil keeps pixel units
	PixelSize *float64
}

// LoadFunc reads a mask stack from a path
type LoadFunc func(path string) (*models.MaskStack, error)

// Result is everything one pass produces
type Result struct {
	Stats models.ComprehensiveStats

	// Pairs are the cell/nucleus correspondences behind Stats.RelationalStats
	Pairs []models.MatchedPair

	// NearestDistances are the per-cell NND values behind Stats.SpatialStats
	NearestDistances []float64

	// Cells and Nuclei are the stacks as loaded; a failed load leaves an
	// empty stack
	Cells  *models.MaskStack
	Nuclei *models.MaskStack

	Elapsed time.Duration
}

// Analyzer runs morphometric, spatial and relationship statistics
type Analyzer struct {
	params *Params
	load   LoadFunc
	log    zerolog.Logger
}

// NewAnalyzer creates an analyzer reading masks with maskio.Load
func NewAnalyzer(params *Params, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		params: params,
		load:   maskio.Load,
		log:    logging.Component(log, "analysis"),
	}
}

// WithLoader replaces the mask loader
func (a *Analyzer) WithLoader(load LoadFunc) *Analyzer {
	a.load = load
	return a
}

// Process loads the configured stacks and computes every statistic the
// inputs allow. Load failures degrade to empty stacks; a shape mismatch
// between cells and nuclei aborts the pass.
func (a *Analyzer) Process(ctx context.Context) (*Result, error) {
	if a.params.CellFile == "" && a.params.NucleiFile == "" {
		return nil, errors.New("no mask files given")
	}
	start := time.Now()
	res := &Result{}

	a.log.Info().Str("cells", a.params.CellFile).Str("nuclei", a.params.NucleiFile).
		Msg("Step 1: Loading mask stacks...")

	var wg sync.WaitGroup
	if a.params.CellFile != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.Cells = a.loadStack(a.params.CellFile)
		}()
	}
	if a.params.NucleiFile != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.Nuclei = a.loadStack(a.params.NucleiFile)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if res.Cells != nil && res.Nuclei != nil && !res.Cells.SameExtent(res.Nuclei) {
		return nil, fmt.Errorf("cells %dx%d vs nuclei %dx%d: %w",
			res.Cells.Height, res.Cells.Width, res.Nuclei.Height, res.Nuclei.Width,
			models.ErrShapeMismatch)
	}

	a.log.Info().Msg("Step 2: Computing statistics...")
	scale := a.params.PixelSize

	var relErr error
	if res.Cells != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			basic := morphology.BasicStats(res.Cells, scale)
			spat, nnd := spatial.ComputeStatsWithDistances(res.Cells, scale)
			res.Stats.CellStats = &basic
			res.Stats.SpatialStats = &spat
			res.NearestDistances = nnd
		}()
	}
	if res.Nuclei != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			basic := morphology.BasicStats(res.Nuclei, scale)
			res.Stats.NucleiStats = &basic
		}()
	}
	if res.Cells != nil && res.Nuclei != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel, pairs, err := relation.Analyze(res.Cells, res.Nuclei)
			if err != nil {
				relErr = err
				return
			}
			res.Stats.RelationalStats = &rel
			res.Pairs = pairs
		}()
	}
	wg.Wait()

	if relErr != nil {
		return nil, relErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	a.logSummary(res)
	return res, nil
}

// loadStack absorbs load failures into an empty stack
func (a *Analyzer) loadStack(path string) *models.MaskStack {
	return LoadOrEmpty(a.load, path, a.log)
}

// LoadOrEmpty reads a stack with load. A failed load is logged as a warning
// and yields an empty stack.
func LoadOrEmpty(load LoadFunc, path string, log zerolog.Logger) *models.MaskStack {
	stack, err := load(path)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Failed to load masks, treating as empty")
		return &models.MaskStack{}
	}
	if stack == nil {
		return &models.MaskStack{}
	}
	log.Debug().Str("file", path).Int("objects", stack.Len()).
		Int("height", stack.Height).Int("width", stack.Width).Msg("Loaded masks")
	return stack
}

func (a *Analyzer) logSummary(res *Result) {
	ev := a.log.Info().Dur("elapsed", res.Elapsed)
	if s := res.Stats.CellStats; s != nil {
		ev = ev.Int("cells", s.Count)
	}
	if s := res.Stats.NucleiStats; s != nil {
		ev = ev.Int("nuclei", s.Count)
	}
	if s := res.Stats.RelationalStats; s != nil {
		ev = ev.Int("matched_pairs", s.MatchedPairs)
	}
	ev.Msg("Analysis completed")
}
